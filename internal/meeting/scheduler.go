package meeting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/ai"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/instrumentation"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/logging"
)

// ErrNotSchedulable is returned when the detection result does not allow
// booking.
var ErrNotSchedulable = errors.New("meeting is not schedulable")

// Booker creates a calendar event and returns its link.
type Booker interface {
	ScheduleMeeting(ctx context.Context, event ai.ProposedEvent) (string, error)
}

// Scheduler books detected meetings and records them in the cache.
type Scheduler struct {
	booker  Booker
	cache   *Cache
	metrics *instrumentation.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewScheduler creates a scheduler.
func NewScheduler(booker Booker, cache *Cache, metrics *instrumentation.Metrics, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		booker:  booker,
		cache:   cache,
		metrics: metrics,
		logger:  logging.WithOperation(logger, "meeting_schedule"),
		now:     time.Now,
	}
}

// Schedule books the meeting detected in a message. detected must be the
// latest detection result for the message and must be Free. event
// overrides the proposed slot when its date is set.
func (s *Scheduler) Schedule(ctx context.Context, user string, detected Result, event *ai.ProposedEvent) (rec *ScheduledMeeting, err error) {
	ctx, span := instrumentation.StartSpan(ctx, "meeting.schedule")
	defer func() {
		instrumentation.EndSpan(span, err)
		s.metrics.RecordMeetingScheduled(ctx, scheduleStatus(err))
	}()

	logger := logging.WithUser(s.logger, user).With(logging.Message(detected.MessageID))

	if !detected.Kind.Schedulable() {
		return nil, fmt.Errorf("%w: status is %s", ErrNotSchedulable, detected.Kind)
	}

	slot := detected.Event
	if event != nil && event.Date != "" {
		slot = event
	}
	if slot == nil {
		return nil, fmt.Errorf("%w: no proposed slot", ErrNotSchedulable)
	}

	// Held until the record is saved, so a concurrent request for the same
	// message waits and then sees ErrAlreadyScheduled instead of booking.
	unlock := s.cache.lock(user, detected.MessageID)
	defer unlock()

	if _, ok, err := s.cache.Get(ctx, user, detected.MessageID); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyScheduled
	}

	link, err := s.booker.ScheduleMeeting(ctx, *slot)
	if err != nil {
		return nil, fmt.Errorf("failed to book meeting: %w", err)
	}

	rec = &ScheduledMeeting{
		MessageID:    detected.MessageID,
		CalendarLink: link,
		ScheduledAt:  s.now().UnixMilli(),
		EventDetails: detailsFromEvent(*slot),
	}
	if err := s.cache.Save(ctx, user, *rec); err != nil {
		logger.Error("Meeting booked but not recorded", logging.Err(err))
		return nil, err
	}

	logger.Info("Meeting scheduled", "date", slot.Date, "time", slot.Heure)
	return rec, nil
}

func scheduleStatus(err error) string {
	switch {
	case err == nil:
		return instrumentation.StatusSuccess
	case errors.Is(err, ErrNotSchedulable), errors.Is(err, ErrAlreadyScheduled):
		return instrumentation.StatusSkipped
	default:
		return instrumentation.StatusError
	}
}
