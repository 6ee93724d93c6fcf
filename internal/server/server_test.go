package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/ai"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/gmail"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/google"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/store"
)

const testUser = "jane@example.com"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeMailbox struct {
	mu        sync.Mutex
	threads   map[string]*gmail.Thread
	err       error
	email     string
	lastQuery string
	opened    int
}

func (m *fakeMailbox) ListThreads(_ context.Context, opts gmail.ListOptions) (*gmail.ThreadList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = opts.Query
	if m.err != nil {
		return nil, m.err
	}
	return &gmail.ThreadList{Messages: []gmail.ThreadSummary{{ID: "m1", ThreadID: "t1", Subject: "Budget"}}, Total: 1}, nil
}

func (m *fakeMailbox) GetMessage(_ context.Context, id string) (*gmail.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, t := range m.threads {
		for i := range t.Messages {
			if t.Messages[i].ID == id {
				return &t.Messages[i], nil
			}
		}
	}
	return nil, &googleapi.Error{Code: http.StatusNotFound, Message: "Requested entity was not found."}
}

func (m *fakeMailbox) GetThread(_ context.Context, id string) (*gmail.Thread, error) {
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.threads[id]
	if !ok {
		return nil, &googleapi.Error{Code: http.StatusNotFound, Message: "Requested entity was not found."}
	}
	return t, nil
}

func (m *fakeMailbox) GetAttachment(_ context.Context, messageID, attachmentID string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []byte("%PDF " + messageID + "/" + attachmentID), nil
}

func (m *fakeMailbox) Profile(context.Context) (string, error) {
	return m.email, nil
}

// fakeAI is an in-process AI backend.
type fakeAI struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool

	// scheduleDelay slows down calendar bookings.
	scheduleDelay time.Duration
}

func (f *fakeAI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls[r.URL.Path]++
	fail := f.fail[r.URL.Path]
	delay := f.scheduleDelay
	f.mu.Unlock()

	if r.URL.Path == ai.EndpointCalendarSchedule && delay > 0 {
		time.Sleep(delay)
	}

	w.Header().Set("Content-Type", "application/json")
	if fail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"detail":"model crashed"}`)
		return
	}

	var body string
	switch r.URL.Path {
	case ai.EndpointSummary:
		body = `{"summary":"short","key_points":["a"],"detected_language":"en","was_translated":false}`
	case ai.EndpointTasks:
		body = `{"tasks":[{"task_description":"Send report","assignee":"Bob","deadline":"Friday","priority":"high"}],"task_count":1,"has_tasks":true}`
	case ai.EndpointAttachmentProcess:
		body = `{"processing_successful":true,"metadata":{"size_kb":1.5,"mime_type":"application/pdf","extension":".pdf"},"extracted_text":"quarterly numbers","text_length":17}`
	case ai.EndpointClassifyThemes:
		body = `{"themes":[{"theme_id":0,"description":"finance","representative_text":"numbers"}],"total_themes":1,"total_chunks":1,"processing_time_seconds":0.1}`
	case ai.EndpointRAGAsk:
		body = `{"question":"q","answer":"42","context_chunks":["quarterly numbers"],"total_chunks":1,"generation_time_seconds":0.2}`
	case ai.EndpointCalendarAnalyze:
		body = `{"status":"free","proposed_event":{"date":"2025-10-14","heure":"10:00","duree_minutes":30,"summary":"Budget sync"}}`
	case ai.EndpointCalendarSchedule:
		body = `{"htmlLink":"https://calendar.google.com/event?eid=1"}`
	case ai.EndpointDatabaseClearAll:
		body = `{"message":"cleared"}`
	case ai.EndpointHealth:
		body = `{"status":"ok"}`
	default:
		w.WriteHeader(http.StatusNotFound)
		body = `{"detail":"Not Found"}`
	}
	_, _ = io.WriteString(w, body)
}

type testEnv struct {
	server  *Server
	mailbox *fakeMailbox
	ai      *fakeAI
	tokens  *google.Manager
	store   store.Store
	session *Session
}

func newTestEnv(t *testing.T, tokenURL string) *testEnv {
	t.Helper()

	backend := &fakeAI{calls: map[string]int{}, fail: map[string]bool{}}
	aiSrv := httptest.NewServer(backend)
	t.Cleanup(aiSrv.Close)

	if tokenURL == "" {
		tokenURL = "https://accounts.example.com/o/oauth2/token"
	}

	tokenStore := google.NewStore(time.Hour)
	t.Cleanup(tokenStore.Stop)
	tokens := google.NewManager(google.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/auth/google/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/o/oauth2/auth",
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}, tokenStore)

	mailbox := &fakeMailbox{
		email: testUser,
		threads: map[string]*gmail.Thread{
			"t1": {ThreadID: "t1", Messages: []gmail.Message{
				{ID: "m1", ThreadID: "t1", Subject: "Budget", Body: gmail.Body{Text: "Meet Tuesday 10:00?"},
					Attachments: []gmail.Attachment{{ID: "a1", Filename: "report.pdf"}}},
				{ID: "m2", ThreadID: "t1", Subject: "Re: Budget", Snippet: "sounds good"},
			}},
			"t2": {ThreadID: "t2", Messages: []gmail.Message{{ID: "m3", ThreadID: "t2", Subject: "Other"}}},
		},
	}

	kv := store.NewMemory()
	srv, err := New(Config{BaseURL: "http://localhost:8080/"}, Deps{
		Tokens: tokens,
		Store:  kv,
		AI:     ai.New(ai.Config{BaseURL: aiSrv.URL}),
		Mailboxes: func(context.Context, *google.TokenRecord) (Mailbox, error) {
			mailbox.mu.Lock()
			mailbox.opened++
			mailbox.mu.Unlock()
			return mailbox, nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	session := srv.sessions.Create(context.Background(), testUser)
	require.NoError(t, tokens.Save(testUser, &google.TokenRecord{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}))

	return &testEnv{server: srv, mailbox: mailbox, ai: backend, tokens: tokens, store: kv, session: session}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return e.doWithCookie(t, method, path, body, &http.Cookie{Name: SessionCookieName, Value: e.session.ID})
}

func (e *testEnv) doWithCookie(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)

	kv := store.NewMemory()
	tokens := google.NewManager(google.Config{}, google.NewStore(time.Hour))
	_, err = New(Config{CalendarBackend: "outlook"}, Deps{Tokens: tokens, Store: kv, AI: ai.New(ai.Config{})})
	assert.Error(t, err)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, "")

	tests := []struct {
		name   string
		cookie *http.Cookie
		setup  func()
	}{
		{name: "no cookie"},
		{name: "unknown session", cookie: &http.Cookie{Name: SessionCookieName, Value: "nope"}},
		{
			name:   "no token",
			cookie: &http.Cookie{Name: SessionCookieName, Value: env.session.ID},
			setup:  func() { env.tokens.Forget(testUser) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			rec := env.doWithCookie(t, http.MethodGet, "/api/gmail/messages", nil, tt.cookie)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.NotEmpty(t, decodeBody(t, rec)["error"])
		})
	}

	assert.Zero(t, env.mailbox.opened, "no upstream call before authentication")
}

func TestListMessages_AppliesFilters(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodPut, "/api/filters", map[string]any{
		"activeFilters": map[string]any{
			"enabled":           true,
			"individualSenders": []string{"boss@example.com"},
			"readStatus":        "unread",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "(from:boss@example.com) is:unread", decodeBody(t, rec)["query"])

	rec = env.do(t, http.MethodGet, "/api/gmail/messages?q=budget&maxResults=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "(from:boss@example.com) is:unread budget", env.mailbox.lastQuery)

	body := decodeBody(t, rec)
	assert.Len(t, body["messages"], 1)

	rec = env.do(t, http.MethodGet, "/api/filters", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testUser, decodeBody(t, rec)["userId"])
}

func TestListMessages_BadMaxResults(t *testing.T) {
	env := newTestEnv(t, "")
	rec := env.do(t, http.MethodGet, "/api/gmail/messages?maxResults=lots", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPutFilters_Invalid(t *testing.T) {
	env := newTestEnv(t, "")
	rec := env.do(t, http.MethodPut, "/api/filters", map[string]any{
		"activeFilters": map[string]any{"enabled": true, "readStatus": "starred"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpstreamErrors(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodGet, "/api/gmail/messages/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "failed to get message", body["error"])
	assert.Equal(t, "Requested entity was not found.", body["detail"])

	env.mailbox.err = &googleapi.Error{Code: http.StatusForbidden, Message: "Insufficient Permission"}
	rec = env.do(t, http.MethodGet, "/api/gmail/messages", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	env.mailbox.err = io.ErrUnexpectedEOF
	rec = env.do(t, http.MethodGet, "/api/gmail/threads/t1", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetAttachment(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodGet, "/api/gmail/messages/m1/attachments/a1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "%PDF m1/a1", rec.Body.String())
}

func readEvents(t *testing.T, rec *httptest.ResponseRecorder) []actionEvent {
	t.Helper()
	var events []actionEvent
	sc := bufio.NewScanner(rec.Body)
	for sc.Scan() {
		var ev actionEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev), sc.Text())
		events = append(events, ev)
	}
	require.NoError(t, sc.Err())
	return events
}

func TestRunAction_Streams(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodPost, "/api/threads/t1/actions/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

	events := readEvents(t, rec)
	require.Len(t, events, 3)
	assert.Equal(t, eventProgress, events[0].Type)
	assert.Equal(t, 1, events[0].Index)
	assert.Equal(t, 2, events[0].Total)
	assert.Len(t, events[0].Results, 1)
	assert.Equal(t, eventProgress, events[1].Type)
	assert.Len(t, events[1].Results, 2)
	assert.Equal(t, eventDone, events[2].Type)
	assert.Len(t, events[2].Results, 2)

	assert.Equal(t, 2, env.ai.count(ai.EndpointSummary))
	assert.Equal(t, "t1", env.session.Thread())
}

func TestRunAction_Failure(t *testing.T) {
	env := newTestEnv(t, "")
	env.ai.fail[ai.EndpointSummary] = true

	rec := env.do(t, http.MethodPost, "/api/threads/t1/actions/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	events := readEvents(t, rec)
	require.Len(t, events, 1)
	assert.Equal(t, eventError, events[0].Type)
	require.NotNil(t, events[0].Error)
	assert.Equal(t, "model crashed", events[0].Error.Detail)
	assert.Equal(t, 1, env.ai.count(ai.EndpointSummary), "fail fast")
}

func TestRunAction_UnknownAction(t *testing.T) {
	env := newTestEnv(t, "")
	rec := env.do(t, http.MethodPost, "/api/threads/t1/actions/delete-all", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportTasks(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodGet, "/api/threads/t1/actions/task-detection/export", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/threads/t1/actions/task-detection", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/threads/t1/actions/task-detection/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Task Description,Assignee,Deadline,Priority\n"+
		"Send report,Bob,Friday,high\n"+
		"Send report,Bob,Friday,high\n", rec.Body.String())
}

func TestMeetings_DetectScheduleReload(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodPost, "/api/meetings/schedule", map[string]any{"messageId": "m1"})
	assert.Equal(t, http.StatusConflict, rec.Code, "nothing detected yet")

	rec = env.do(t, http.MethodGet, "/api/threads/t1/meetings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decodeBody(t, rec)["results"].([]any)
	require.Len(t, results, 2)
	assert.Equal(t, "free", results[0].(map[string]any)["status"])
	assert.Equal(t, 2, env.ai.count(ai.EndpointCalendarAnalyze))

	rec = env.do(t, http.MethodPost, "/api/meetings/schedule", map[string]any{"messageId": "m1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "https://calendar.google.com/event?eid=1", decodeBody(t, rec)["calendarLink"])

	rec = env.do(t, http.MethodPost, "/api/meetings/schedule", map[string]any{"messageId": "m1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, env.ai.count(ai.EndpointCalendarSchedule))

	rec = env.do(t, http.MethodGet, "/api/threads/t1/meetings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results = decodeBody(t, rec)["results"].([]any)
	require.Len(t, results, 2)
	assert.Equal(t, "scheduled", results[0].(map[string]any)["status"])
	assert.Equal(t, 3, env.ai.count(ai.EndpointCalendarAnalyze), "booked message is not analyzed again")

	var stored map[string]any
	ok, err := env.store.Get(context.Background(), "scheduledMeetings/jane@example_com/m1", &stored)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMeetings_ConcurrentScheduleBooksOnce(t *testing.T) {
	env := newTestEnv(t, "")
	env.ai.mu.Lock()
	env.ai.scheduleDelay = 50 * time.Millisecond
	env.ai.mu.Unlock()

	rec := env.do(t, http.MethodGet, "/api/threads/t1/meetings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	const requests = 4
	codes := make([]int, requests)
	var wg sync.WaitGroup
	for i := range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = env.do(t, http.MethodPost, "/api/meetings/schedule", map[string]any{"messageId": "m1"}).Code
		}()
	}
	wg.Wait()

	var ok, conflict int
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, requests-1, conflict)
	assert.Equal(t, 1, env.ai.count(ai.EndpointCalendarSchedule), "calendar event created more than once")
}

func TestAttachmentsAndRAG(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodPost, "/api/rag/ask", map[string]any{"messageId": "m1", "attachmentId": "a1", "question": "total?"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/threads/t1/attachments", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	require.Len(t, body["attachments"], 1)
	assert.Equal(t, map[string]any{"succeeded": float64(1), "attempted": float64(1)}, body["summary"])

	env.server.pipeline.Wait()

	rec = env.do(t, http.MethodGet, "/api/threads/t1/attachments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody(t, rec)["attachments"].([]any)
	require.Len(t, list, 1)
	assert.NotNil(t, list[0].(map[string]any)["classification"])

	rec = env.do(t, http.MethodPost, "/api/rag/ask", map[string]any{"messageId": "m1", "attachmentId": "a1", "question": "total?"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", decodeBody(t, rec)["answer"])

	rec = env.do(t, http.MethodPost, "/api/rag/ask", map[string]any{"messageId": "m1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestThreadSwitchPurges(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodPost, "/api/threads/t1/attachments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env.server.pipeline.Wait()
	require.Len(t, env.session.Attachments.List(), 1)
	assert.Zero(t, env.ai.count(ai.EndpointDatabaseClearAll))

	rec = env.do(t, http.MethodGet, "/api/gmail/threads/t1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.session.Attachments.List(), 1, "reopening the same thread keeps state")

	rec = env.do(t, http.MethodGet, "/api/gmail/threads/t2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.session.Attachments.List())
	assert.Equal(t, 1, env.ai.count(ai.EndpointDatabaseClearAll))
	assert.Equal(t, "t2", env.session.Thread())
}

func TestLeaveThread(t *testing.T) {
	env := newTestEnv(t, "")
	env.ai.fail[ai.EndpointDatabaseClearAll] = true

	rec := env.do(t, http.MethodPost, "/api/threads/t1/actions/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/session/thread", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code, "backend cleanup failure is swallowed")
	assert.Equal(t, "", env.session.Thread())
	_, ok := env.session.Results("summary")
	assert.False(t, ok)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.doWithCookie(t, http.MethodGet, "/auth/google/login", nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.example.com", loc.Host)
	assert.Equal(t, "offline", loc.Query().Get("access_type"))
	assert.Equal(t, "consent", loc.Query().Get("prompt"))

	var state *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookieName {
			state = c
		}
	}
	require.NotNil(t, state)
	assert.Equal(t, state.Value, loc.Query().Get("state"))
	assert.True(t, state.HttpOnly)
}

func TestCallback(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"new-access","refresh_token":"new-refresh","expires_in":3600,"token_type":"Bearer"}`)
	}))
	defer tokenSrv.Close()

	env := newTestEnv(t, tokenSrv.URL)
	env.mailbox.email = "bob@example.com"

	t.Run("state mismatch", func(t *testing.T) {
		rec := env.doWithCookie(t, http.MethodGet, "/auth/google/callback?state=a&code=the-code", nil,
			&http.Cookie{Name: stateCookieName, Value: "b"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("consent denied", func(t *testing.T) {
		rec := env.doWithCookie(t, http.MethodGet, "/auth/google/callback?error=access_denied", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		before := env.server.sessions.Len()
		rec := env.doWithCookie(t, http.MethodGet, "/auth/google/callback?state=s1&code=the-code", nil,
			&http.Cookie{Name: stateCookieName, Value: "s1"})
		require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
		assert.Equal(t, "http://localhost:8080/", rec.Header().Get("Location"))
		assert.Equal(t, before+1, env.server.sessions.Len())

		var session *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == SessionCookieName {
				session = c
			}
		}
		require.NotNil(t, session)

		tok, err := env.tokens.Token(context.Background(), "bob@example.com")
		require.NoError(t, err)
		assert.Equal(t, "new-access", tok.AccessToken)
		assert.Equal(t, "new-refresh", tok.RefreshToken)

		me := env.doWithCookie(t, http.MethodGet, "/api/me", nil, session)
		require.Equal(t, http.StatusOK, me.Code)
		assert.Equal(t, "bob@example.com", decodeBody(t, me)["email"])
	})
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, ok := env.server.sessions.Get(env.session.ID)
	assert.False(t, ok)
	_, err := env.tokens.Token(context.Background(), testUser)
	assert.ErrorIs(t, err, google.ErrNoToken)

	rec = env.do(t, http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.doWithCookie(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.doWithCookie(t, http.MethodGet, "/readyz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["checks"].(map[string]any)["store"])

	rec = env.doWithCookie(t, http.MethodGet, "/healthz/detailed", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	checks := decodeBody(t, rec)["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["ai_backend"])

	env.server.Health().SetReady(false)
	rec = env.doWithCookie(t, http.MethodGet, "/readyz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), healthStatusNotReady))
}
