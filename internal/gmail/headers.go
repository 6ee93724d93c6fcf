package gmail

import (
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

const noSubject = "(no subject)"

// Headers is a case-insensitive view over message headers. Keys are
// lower-cased; when a header repeats, the last occurrence wins.
type Headers map[string]string

// NewHeaders builds a Headers map from raw Gmail part headers.
func NewHeaders(raw []*gmail.MessagePartHeader) Headers {
	h := make(Headers, len(raw))
	for _, hdr := range raw {
		if hdr == nil {
			continue
		}
		h[strings.ToLower(hdr.Name)] = hdr.Value
	}
	return h
}

// Get returns the value of the named header, or "".
func (h Headers) Get(name string) string {
	return h[strings.ToLower(name)]
}

// Subject returns the subject header, defaulting to "(no subject)".
func (h Headers) Subject() string {
	if s := h.Get("subject"); s != "" {
		return s
	}
	return noSubject
}

// SenderAddress extracts the address from a From header such as
// "Jane Doe <jane@example.com>". Headers without angle brackets are
// returned trimmed.
func SenderAddress(from string) string {
	if start := strings.LastIndex(from, "<"); start >= 0 {
		if end := strings.Index(from[start:], ">"); end > 0 {
			return strings.TrimSpace(from[start+1 : start+end])
		}
	}
	return strings.TrimSpace(from)
}
