package instrumentation

import (
	"net/http"
	"strings"
)

// Label values used when the real value would be unbounded.
const (
	LabelUnknown   = "unknown"
	LabelUnmatched = "unmatched"
	LabelOther     = "other"
)

// ExtractUserDomain returns the lower-cased domain of an email address, or
// LabelUnknown. Per-user labels carry the domain only.
func ExtractUserDomain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return LabelUnknown
	}
	return strings.ToLower(email[at+1:])
}

// RouteLabel returns the route pattern of a request, or LabelUnmatched
// for requests that matched no route. Raw paths carry message and thread
// IDs and must never be used as labels.
func RouteLabel(pattern string) string {
	if pattern == "" {
		return LabelUnmatched
	}
	return pattern
}

var knownMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// MethodLabel maps non-standard HTTP methods to LabelOther.
func MethodLabel(method string) string {
	if knownMethods[method] {
		return method
	}
	return LabelOther
}

// Operation types for Google API metrics.
const (
	OperationListThreads   = "list_threads"
	OperationGetThread     = "get_thread"
	OperationGetMessage    = "get_message"
	OperationGetAttachment = "get_attachment"
	OperationGetProfile    = "get_profile"
	OperationCreateEvent   = "create_event"
)
