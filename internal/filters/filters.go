package filters

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Read status values.
const (
	ReadStatusAll    = "all"
	ReadStatusRead   = "read"
	ReadStatusUnread = "unread"
)

const queryDateLayout = "2006/01/02"

// ErrInvalid is returned for settings that cannot be saved.
var ErrInvalid = errors.New("invalid filter settings")

// DateRange bounds messages by date. Either side may be empty.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// InboxFilters are the filters applied to the inbox listing.
type InboxFilters struct {
	Enabled            bool       `json:"enabled"`
	ActiveSenderGroups []string   `json:"activeSenderGroups"`
	IndividualSenders  []string   `json:"individualSenders"`
	DateRange          *DateRange `json:"dateRange,omitempty"`
	ReadStatus         string     `json:"readStatus,omitempty"`
}

// SenderGroup is a named list of sender addresses.
type SenderGroup struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Senders   []string  `json:"senders"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserSettings is everything stored for one user.
type UserSettings struct {
	UserID        string        `json:"userId"`
	SenderGroups  []SenderGroup `json:"senderGroups"`
	ActiveFilters InboxFilters  `json:"activeFilters"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// DefaultFilters returns enabled filters that match everything.
func DefaultFilters() InboxFilters {
	return InboxFilters{
		Enabled:            true,
		ActiveSenderGroups: []string{},
		IndividualSenders:  []string{},
		ReadStatus:         ReadStatusAll,
	}
}

// Validate checks values that cannot be turned into a query.
func (f InboxFilters) Validate() error {
	switch f.ReadStatus {
	case "", ReadStatusAll, ReadStatusRead, ReadStatusUnread:
	default:
		return fmt.Errorf("%w: read status %q", ErrInvalid, f.ReadStatus)
	}
	if f.DateRange != nil {
		if _, err := parseDate(f.DateRange.Start); err != nil {
			return fmt.Errorf("%w: start date: %v", ErrInvalid, err)
		}
		if _, err := parseDate(f.DateRange.End); err != nil {
			return fmt.Errorf("%w: end date: %v", ErrInvalid, err)
		}
	}
	return nil
}

// Senders returns the individual senders followed by the senders of every
// active group, without duplicates and in first-seen order.
func Senders(f InboxFilters, groups []SenderGroup) []string {
	active := make(map[string]bool, len(f.ActiveSenderGroups))
	for _, id := range f.ActiveSenderGroups {
		active[id] = true
	}

	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, s := range f.IndividualSenders {
		add(s)
	}
	for _, g := range groups {
		if !active[g.ID] {
			continue
		}
		for _, s := range g.Senders {
			add(s)
		}
	}
	return out
}

// BuildQuery returns the Gmail search query for f, or "" when the filters
// are disabled or match everything.
func BuildQuery(f InboxFilters, groups []SenderGroup) string {
	if !f.Enabled {
		return ""
	}

	var parts []string

	if senders := Senders(f, groups); len(senders) > 0 {
		from := make([]string, len(senders))
		for i, s := range senders {
			from[i] = "from:" + s
		}
		parts = append(parts, "("+strings.Join(from, " OR ")+")")
	}

	if f.DateRange != nil {
		if t, err := parseDate(f.DateRange.Start); err == nil && !t.IsZero() {
			parts = append(parts, "after:"+t.Format(queryDateLayout))
		}
		if t, err := parseDate(f.DateRange.End); err == nil && !t.IsZero() {
			parts = append(parts, "before:"+t.Format(queryDateLayout))
		}
	}

	switch f.ReadStatus {
	case ReadStatusUnread:
		parts = append(parts, "is:unread")
	case ReadStatusRead:
		parts = append(parts, "is:read")
	}

	return strings.Join(parts, " ")
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. Timestamps
// are reduced to their UTC date. Empty input yields the zero time.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
