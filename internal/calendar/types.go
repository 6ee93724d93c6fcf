package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

const (
	// PrimaryCalendar is the calendar ID of the user's own calendar.
	PrimaryCalendar = "primary"

	// DefaultDescription is used when a booked meeting has no description.
	DefaultDescription = "Meeting scheduled via SmartMail AI"

	dateLayout = "2006-01-02"
	slotLayout = "2006-01-02 15:04"
)

// EventInput represents the input for creating a calendar event
type EventInput struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
}

// EventSummary represents a created calendar event
type EventSummary struct {
	ID       string
	Summary  string
	Start    time.Time
	End      time.Time
	Status   string
	HTMLLink string
}

// toEventSummary converts a Google Calendar event to an EventSummary
func toEventSummary(event *calendar.Event) EventSummary {
	if event == nil {
		return EventSummary{}
	}

	return EventSummary{
		ID:       event.Id,
		Summary:  event.Summary,
		Status:   event.Status,
		HTMLLink: event.HtmlLink,
		Start:    parseEventTime(event.Start),
		End:      parseEventTime(event.End),
	}
}

func parseEventTime(dt *calendar.EventDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t
		}
	} else if dt.Date != "" {
		if t, err := time.Parse(dateLayout, dt.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}
