package gmail

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
)

// UnknownDate is shown when a date header cannot be parsed.
const UnknownDate = "Unknown date"

var nativeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04 -0700",
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var (
	trailingComment = regexp.MustCompile(`\s*\([^()]*\)\s*$`)
	dayFirstPattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}( \d{2}:\d{2}:\d{2})?$`)
	gmailTextDate   = regexp.MustCompile(`[A-Za-z]{3} [A-Za-z]{3} \d{1,2}, \d{4} \d{1,2}:\d{2}[ap]m`)
)

// ParseDate parses a mail date header. It tries, in order, the formats
// mail clients emit natively (RFC 3339, RFC 5322 and variants, with or
// without a trailing "(UTC)" style comment), DD/MM/YYYY with an optional
// HH:mm:ss, and the Gmail display form "Fri Oct 10, 2025 2:30am". Forms
// without a zone are read in the local time zone.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, ok := parseNative(s); ok {
		return t, true
	}

	if dayFirstPattern.MatchString(s) {
		layout := "02/01/2006"
		if len(s) > len(layout) {
			layout += " 15:04:05"
		}
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}

	if m := gmailTextDate.FindString(s); m != "" {
		if t, err := time.ParseInLocation("Mon Jan 2, 2006 3:04pm", m, time.Local); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func parseNative(s string) (time.Time, bool) {
	if t, err := mail.ParseDate(s); err == nil {
		return t, true
	}

	stripped := trailingComment.ReplaceAllString(s, "")
	for _, layout := range nativeLayouts {
		if t, err := time.ParseInLocation(layout, stripped, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DisplayDate formats a raw date header as RFC 3339, or UnknownDate.
func DisplayDate(raw string) string {
	t, ok := ParseDate(raw)
	if !ok {
		return UnknownDate
	}
	return t.Format(time.RFC3339)
}
