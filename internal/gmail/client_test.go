package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type fakeGmail struct {
	mux        *http.ServeMux
	listQuery  atomic.Value
	listLabels atomic.Value
	listMax    atomic.Value
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func header(name, value string) map[string]string {
	return map[string]string{"name": name, "value": value}
}

func newFakeGmail(t *testing.T) (*fakeGmail, *Client) {
	t.Helper()

	f := &fakeGmail{mux: http.NewServeMux()}

	f.mux.HandleFunc("GET /gmail/v1/users/me/threads", func(w http.ResponseWriter, r *http.Request) {
		f.listQuery.Store(r.URL.Query().Get("q"))
		f.listLabels.Store(r.URL.Query().Get("labelIds"))
		f.listMax.Store(r.URL.Query().Get("maxResults"))
		writeJSON(w, http.StatusOK, map[string]any{
			"threads": []map[string]string{
				{"id": "t1"}, {"id": "t-broken"}, {"id": "t2"},
			},
			"nextPageToken":      "page-2",
			"resultSizeEstimate": 42,
		})
	})

	f.mux.HandleFunc("GET /gmail/v1/users/me/threads/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "t1":
			writeJSON(w, http.StatusOK, map[string]any{
				"id": "t1",
				"messages": []map[string]any{
					{
						"id": "m-reply", "threadId": "t1", "internalDate": "2000",
						"labelIds": []string{"INBOX", "UNREAD"},
						"snippet":  "reply",
						"payload": map[string]any{"headers": []map[string]string{
							header("Subject", "Re: Budget"),
						}},
					},
					{
						"id": "m-first", "threadId": "t1", "internalDate": "1000",
						"labelIds": []string{"INBOX"},
						"snippet":  "Numbers &amp; charts",
						"payload": map[string]any{
							"mimeType": "text/plain",
							"headers": []map[string]string{
								header("Subject", "Budget"),
								header("From", "Jane <jane@example.com>"),
								header("To", "me@example.com"),
								header("Date", "Fri, 10 Oct 2025 14:30:00 +0000"),
							},
							"body": map[string]any{"data": b64("See attached")},
						},
					},
				},
			})
		case "t2":
			writeJSON(w, http.StatusOK, map[string]any{
				"id": "t2",
				"messages": []map[string]any{
					{"id": "m-solo", "threadId": "t2", "internalDate": "5000", "snippet": "solo"},
				},
			})
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error": map[string]any{"code": 404, "message": "Requested entity was not found."},
			})
		}
	})

	f.mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "m1" {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error": map[string]any{"code": 404, "message": "Not Found"},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id": "m1", "threadId": "t1", "labelIds": []string{"UNREAD"},
			"payload": map[string]any{
				"mimeType": "multipart/mixed",
				"headers":  []map[string]string{header("subject", "Invoice")},
				"parts": []map[string]any{
					{"mimeType": "text/plain", "body": map[string]any{"data": b64("pay me")}},
					{
						"mimeType": "application/pdf", "filename": "invoice.pdf",
						"body": map[string]any{"attachmentId": "a1", "size": 10},
					},
				},
			},
		})
	})

	f.mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}/attachments/{aid}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("aid") {
		case "a1":
			writeJSON(w, http.StatusOK, map[string]any{
				"size": 11,
				"data": base64.URLEncoding.EncodeToString([]byte("%PDF-binary")),
			})
		case "huge":
			writeJSON(w, http.StatusOK, map[string]any{"size": MaxAttachmentSize + 1, "data": ""})
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error": map[string]any{"code": 404, "message": "Not Found"},
			})
		}
	})

	f.mux.HandleFunc("GET /gmail/v1/users/me/profile", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"emailAddress": "me@example.com"})
	})

	srv := httptest.NewServer(f.mux)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return f, client
}

func TestClient_ListThreads(t *testing.T) {
	f, client := newFakeGmail(t)

	list, err := client.ListThreads(context.Background(), ListOptions{Query: "is:unread"})
	require.NoError(t, err)

	assert.Equal(t, "is:unread", f.listQuery.Load())
	assert.Equal(t, "INBOX", f.listLabels.Load())
	assert.Equal(t, "10", f.listMax.Load())

	assert.Equal(t, "page-2", list.NextPageToken)
	assert.Equal(t, int64(42), list.TotalThreads)
	require.Equal(t, 2, list.Total, "failed thread must be skipped")
	require.Len(t, list.Messages, 2)

	first := list.Messages[0]
	assert.Equal(t, "m-first", first.ID, "oldest message represents the thread")
	assert.Equal(t, "t1", first.ThreadID)
	assert.Equal(t, "Budget", first.Subject)
	assert.Equal(t, "Numbers & charts", first.Snippet)
	assert.Equal(t, "Jane <jane@example.com>", first.From)
	assert.Equal(t, "jane@example.com", first.FromAddress)
	assert.Equal(t, "2025-10-10T14:30:00Z", first.DisplayDate)
	assert.Equal(t, 2, first.ThreadCount)
	assert.Equal(t, 1, first.UnreadInThread)
	assert.True(t, first.Unread)
	assert.False(t, first.Date.IsZero())

	second := list.Messages[1]
	assert.Equal(t, "m-solo", second.ID)
	assert.Equal(t, "(no subject)", second.Subject)
	assert.False(t, second.Unread)
	assert.True(t, second.Date.IsZero())
	assert.Equal(t, "Unknown date", second.DisplayDate)
}

func TestClient_ListThreadsMaxResults(t *testing.T) {
	f, client := newFakeGmail(t)

	_, err := client.ListThreads(context.Background(), ListOptions{MaxResults: 25, PageToken: "p"})
	require.NoError(t, err)
	assert.Equal(t, "25", f.listMax.Load())
}

func TestClient_GetMessage(t *testing.T) {
	_, client := newFakeGmail(t)

	msg, err := client.GetMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Invoice", msg.Subject)
	assert.Equal(t, "pay me", msg.Body.Text)
	assert.True(t, msg.Unread)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, Attachment{ID: "a1", Filename: "invoice.pdf", MimeType: "application/pdf", Size: 10}, msg.Attachments[0])

	_, err = client.GetMessage(context.Background(), "missing")
	require.Error(t, err)
	var apiErr *googleapi.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Code)
}

func TestClient_GetThread(t *testing.T) {
	_, client := newFakeGmail(t)

	thread, err := client.GetThread(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", thread.ThreadID)
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, "m-reply", thread.Messages[0].ID, "thread order is preserved")
	assert.Equal(t, "See attached", thread.Messages[1].Body.Text)
}

func TestClient_GetAttachment(t *testing.T) {
	_, client := newFakeGmail(t)
	ctx := context.Background()

	data, err := client.GetAttachment(ctx, "m1", "a1")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-binary"), data)

	_, err = client.GetAttachment(ctx, "m1", "huge")
	assert.ErrorContains(t, err, "exceeds maximum size")

	_, err = client.GetAttachment(ctx, "", "a1")
	assert.Error(t, err)
	_, err = client.GetAttachment(ctx, "m1", "")
	assert.Error(t, err)
}

func TestClient_Profile(t *testing.T) {
	_, client := newFakeGmail(t)

	email, err := client.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", email)
}

func TestMessage_MarshalJSON(t *testing.T) {
	msg := decodeMessage(mustMessage(t))

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "2025-10-10T14:30:00Z", out["date"])
	assert.Equal(t, "2025-10-10T14:30:00Z", out["displayDate"])
	assert.Equal(t, "Hello", out["subject"])
	assert.Equal(t, []any{}, out["attachments"])
}
