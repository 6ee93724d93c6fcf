package gmail

import (
	"encoding/json"
	"time"
)

// Body holds the first text/plain and first text/html bodies of a message.
type Body struct {
	Text string `json:"text,omitempty"`
	HTML string `json:"html,omitempty"`
}

// Attachment describes one attachment part of a message. The ID is only
// meaningful together with the owning message ID.
type Attachment struct {
	ID          string `json:"attachmentId"`
	Filename    string `json:"filename"`
	MimeType    string `json:"mimeType"`
	Disposition string `json:"disposition"`
	ContentID   string `json:"contentId,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// Message is a fully decoded Gmail message.
type Message struct {
	ID          string            `json:"id"`
	ThreadID    string            `json:"threadId"`
	Subject     string            `json:"subject"`
	From        string            `json:"from"`
	FromAddress string            `json:"fromAddress"`
	To          string            `json:"to"`
	Date        time.Time         `json:"-"`
	RawDate     string            `json:"rawDate,omitempty"`
	DisplayDate string            `json:"displayDate"`
	Snippet     string            `json:"snippet"`
	Body        Body              `json:"body"`
	Attachments []Attachment      `json:"attachments"`
	Unread      bool              `json:"unread"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// Text returns the plain-text body, or the snippet when there is none.
func (m *Message) Text() string {
	if m.Body.Text != "" {
		return m.Body.Text
	}
	return m.Snippet
}

// MarshalJSON emits Date as RFC 3339, or an empty string when the header
// could not be parsed.
func (m Message) MarshalJSON() ([]byte, error) {
	type alias Message
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{alias: alias(m), Date: isoDate(m.Date)})
}

// ThreadSummary is the inbox list entry for a thread. It describes the
// oldest message of the thread plus unread aggregates.
type ThreadSummary struct {
	ID             string    `json:"id"`
	ThreadID       string    `json:"threadId"`
	Subject        string    `json:"subject"`
	From           string    `json:"from"`
	FromAddress    string    `json:"fromAddress"`
	To             string    `json:"to"`
	Date           time.Time `json:"-"`
	RawDate        string    `json:"rawDate,omitempty"`
	DisplayDate    string    `json:"displayDate"`
	Snippet        string    `json:"snippet"`
	Unread         bool      `json:"unread"`
	ThreadCount    int       `json:"threadCount"`
	UnreadInThread int       `json:"unreadInThread"`
}

func (s ThreadSummary) MarshalJSON() ([]byte, error) {
	type alias ThreadSummary
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{alias: alias(s), Date: isoDate(s.Date)})
}

// ThreadList is one page of the inbox.
type ThreadList struct {
	Messages      []ThreadSummary `json:"messages"`
	NextPageToken string          `json:"nextPageToken,omitempty"`
	Total         int             `json:"total"`
	TotalThreads  int64           `json:"totalThreads"`
}

// Thread is a thread with every message decoded.
type Thread struct {
	ThreadID string    `json:"threadId"`
	Messages []Message `json:"messages"`
}

// ListOptions selects a page of inbox threads.
type ListOptions struct {
	PageToken  string
	MaxResults int64
	Query      string
}

func isoDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
