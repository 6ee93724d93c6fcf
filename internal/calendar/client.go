package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/ai"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/instrumentation"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/logging"
)

const defaultDuration = 60 * time.Minute

// Client wraps the Google Calendar service for one signed-in user.
type Client struct {
	svc      *calendar.Service
	location *time.Location
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
}

// NewClient creates a Calendar client that authenticates with httpClient.
// Extra options (for example option.WithEndpoint) are applied after it.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	all := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := calendar.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		svc:      svc,
		location: time.Local,
		logger:   logging.WithService(slog.Default(), instrumentation.ServiceCalendar),
	}, nil
}

// SetMetrics sets the metrics recorder used for API calls.
func (c *Client) SetMetrics(m *instrumentation.Metrics) {
	c.metrics = m
}

// SetLogger sets a custom logger for the client
func (c *Client) SetLogger(logger *slog.Logger) {
	c.logger = logging.WithService(logger, instrumentation.ServiceCalendar)
}

// SetLocation sets the time zone proposed slots are interpreted in.
// The default is the server's local zone.
func (c *Client) SetLocation(loc *time.Location) {
	if loc != nil {
		c.location = loc
	}
}

// CreateEvent inserts a timed event into the primary calendar.
func (c *Client) CreateEvent(ctx context.Context, input EventInput) (*EventSummary, error) {
	if input.Summary == "" {
		return nil, errors.New("event summary is required")
	}
	if !input.End.After(input.Start) {
		return nil, errors.New("event end must be after its start")
	}
	if input.TimeZone == "" {
		input.TimeZone = "UTC"
	}

	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: input.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: input.TimeZone,
		},
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationCreateEvent)
	start := time.Now()

	created, err := c.svc.Events.Insert(PrimaryCalendar, event).Context(ctx).Do()

	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, instrumentation.OperationCreateEvent, instrumentation.StatusOf(err), time.Since(start))
	instrumentation.EndSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	summary := toEventSummary(created)
	c.logger.Info("Calendar event created",
		"event_id", summary.ID,
		logging.Duration(time.Since(start)))
	return &summary, nil
}

// ScheduleMeeting books a proposed slot and returns the event's link.
// The slot's date and time are read in the client's location and the event
// is stored in UTC.
func (c *Client) ScheduleMeeting(ctx context.Context, proposed ai.ProposedEvent) (string, error) {
	input, err := EventFromProposal(proposed, c.location)
	if err != nil {
		return "", err
	}

	created, err := c.CreateEvent(ctx, input)
	if err != nil {
		return "", err
	}
	return created.HTMLLink, nil
}

// EventFromProposal converts a proposed slot into an event input.
// A non-positive duration defaults to one hour.
func EventFromProposal(proposed ai.ProposedEvent, loc *time.Location) (EventInput, error) {
	if loc == nil {
		loc = time.Local
	}

	start, err := time.ParseInLocation(slotLayout, proposed.Date+" "+proposed.Heure, loc)
	if err != nil {
		return EventInput{}, fmt.Errorf("invalid meeting slot %q %q: %w", proposed.Date, proposed.Heure, err)
	}

	duration := time.Duration(proposed.DureeMinutes) * time.Minute
	if duration <= 0 {
		duration = defaultDuration
	}

	start = start.UTC()
	return EventInput{
		Summary:     proposed.Summary,
		Description: DefaultDescription,
		Start:       start,
		End:         start.Add(duration),
		TimeZone:    "UTC",
	}, nil
}
