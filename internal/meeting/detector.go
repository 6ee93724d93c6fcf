package meeting

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/ai"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/gmail"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/instrumentation"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/logging"
)

const (
	previouslyScheduledSummary = "Previously Scheduled Meeting"
	defaultDurationMinutes     = 60
)

// Analyzer classifies message text for meeting intent.
type Analyzer interface {
	AnalyzeMeeting(ctx context.Context, text string) (*ai.MeetingAnalysis, error)
}

// Result is the detection outcome for one message.
type Result struct {
	MessageID string            `json:"messageId"`
	Subject   string            `json:"subject"`
	Kind      Kind              `json:"status"`
	Event     *ai.ProposedEvent `json:"proposedEvent,omitempty"`
	Message   string            `json:"message,omitempty"`
	Slots     []ai.Slot         `json:"suggestedSlots,omitempty"`

	// Set for Scheduled results only.
	CalendarLink string `json:"calendarLink,omitempty"`
	ScheduledAt  int64  `json:"scheduledAt,omitempty"`
}

// Detector runs meeting detection over the messages of a thread.
type Detector struct {
	analyzer Analyzer
	cache    *Cache
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
}

// NewDetector creates a detector.
func NewDetector(analyzer Analyzer, cache *Cache, metrics *instrumentation.Metrics, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		analyzer: analyzer,
		cache:    cache,
		metrics:  metrics,
		logger:   logging.WithOperation(logger, "meeting_detection"),
	}
}

// Detect returns one result per message that proposes a meeting, in
// message order. Messages already booked are reported as Scheduled without
// calling the backend. Messages the backend fails on are skipped.
func (d *Detector) Detect(ctx context.Context, user string, messages []gmail.Message) ([]Result, error) {
	ctx, span := instrumentation.StartSpan(ctx, "meeting.detect")
	defer instrumentation.EndSpan(span, nil)

	logger := logging.WithUser(d.logger, user)
	start := time.Now()

	booked, err := d.cache.All(ctx, user)
	if err != nil {
		logger.Warn("Failed to load scheduled meetings", logging.Err(err))
		booked = nil
	}

	results := []Result{}
	var analyzed int
	for i := range messages {
		msg := &messages[i]

		if rec, ok := booked[msg.ID]; ok {
			results = append(results, scheduledResult(msg, rec))
			d.metrics.RecordMeetingDetected(ctx, Scheduled.String())
			continue
		}

		text := messageText(msg)
		if strings.TrimSpace(text) == "" {
			continue
		}

		analyzed++
		analysis, err := d.analyzer.AnalyzeMeeting(ctx, text)
		if err != nil {
			logger.Warn("Meeting analysis failed", logging.Message(msg.ID), logging.Err(err))
			continue
		}

		kind, err := ParseKind(analysis.Status)
		if err != nil {
			logger.Warn("Ignoring meeting analysis", logging.Message(msg.ID), logging.Err(err))
			continue
		}
		d.metrics.RecordMeetingDetected(ctx, kind.String())
		if !kind.Detected() {
			continue
		}

		results = append(results, Result{
			MessageID: msg.ID,
			Subject:   msg.Subject,
			Kind:      kind,
			Event:     analysis.ProposedEvent,
			Message:   analysis.Message,
			Slots:     analysis.CreneauxProposes,
		})
	}

	logger.Info("Meeting detection completed",
		"messages", len(messages),
		"analyzed", analyzed,
		"detected", len(results),
		logging.Duration(time.Since(start)))
	return results, nil
}

func scheduledResult(msg *gmail.Message, rec ScheduledMeeting) Result {
	event := &ai.ProposedEvent{
		Date:         rec.EventDetails.Date,
		Heure:        rec.EventDetails.Heure,
		DureeMinutes: rec.EventDetails.DureeMinutes,
		Summary:      rec.EventDetails.Summary,
	}
	if event.Summary == "" {
		event.Summary = previouslyScheduledSummary
	}
	if event.DureeMinutes <= 0 {
		event.DureeMinutes = defaultDurationMinutes
	}

	return Result{
		MessageID:    msg.ID,
		Subject:      msg.Subject,
		Kind:         Scheduled,
		Event:        event,
		CalendarLink: rec.CalendarLink,
		ScheduledAt:  rec.ScheduledAt,
	}
}

// messageText is the text sent for analysis: the subject line followed by
// the body, or the body alone when there is no subject.
func messageText(msg *gmail.Message) string {
	body := msg.Text()
	if msg.Subject == "" {
		return body
	}
	return "Subject: " + msg.Subject + "\n\n" + body
}
