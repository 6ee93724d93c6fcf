package meeting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/ai"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/logging"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/store"
)

const cachePrefix = "scheduledMeetings"

// ErrAlreadyScheduled is returned when a meeting was already booked from
// the message.
var ErrAlreadyScheduled = errors.New("meeting already scheduled for this message")

// EventDetails is the booked slot.
type EventDetails struct {
	Date         string `json:"date"`
	Heure        string `json:"heure"`
	DureeMinutes int    `json:"duree_minutes"`
	Summary      string `json:"summary"`
}

// ScheduledMeeting is the persisted record of a booking.
type ScheduledMeeting struct {
	MessageID    string       `json:"messageId"`
	CalendarLink string       `json:"calendarLink"`
	ScheduledAt  int64        `json:"scheduledAt"` // unix milliseconds
	EventDetails EventDetails `json:"eventDetails"`
}

func detailsFromEvent(e ai.ProposedEvent) EventDetails {
	return EventDetails{
		Date:         e.Date,
		Heure:        e.Heure,
		DureeMinutes: e.DureeMinutes,
		Summary:      e.Summary,
	}
}

// Cache is the per-user, per-message record of booked meetings.
type Cache struct {
	store  store.Store
	logger *slog.Logger

	keys keyedMutex
}

// NewCache creates a cache on top of s.
func NewCache(s store.Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: s, logger: logger}
}

func userPrefix(user string) string {
	return store.Key(cachePrefix, store.SanitizeKey(user))
}

func cacheKey(user, messageID string) string {
	return store.Key(userPrefix(user), store.SanitizeKey(messageID))
}

// Get returns the booking for a message, if any.
func (c *Cache) Get(ctx context.Context, user, messageID string) (*ScheduledMeeting, bool, error) {
	rec, err := store.Load[ScheduledMeeting](ctx, c.store, cacheKey(user, messageID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read scheduled meeting: %w", err)
	}
	return &rec, true, nil
}

// All returns every booking of the user keyed by message ID. Records that
// cannot be decoded are skipped.
func (c *Cache) All(ctx context.Context, user string) (map[string]ScheduledMeeting, error) {
	children, err := c.store.Children(ctx, userPrefix(user))
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled meetings: %w", err)
	}

	out := make(map[string]ScheduledMeeting, len(children))
	for messageID, raw := range children {
		var rec ScheduledMeeting
		if err := json.Unmarshal(raw, &rec); err != nil {
			c.logger.Warn("Skipping unreadable scheduled meeting",
				logging.Message(messageID), logging.Err(err))
			continue
		}
		out[messageID] = rec
	}
	return out, nil
}

// Save records a booking. It returns ErrAlreadyScheduled when the message
// already has one; existing records are never overwritten.
func (c *Cache) Save(ctx context.Context, user string, rec ScheduledMeeting) error {
	if rec.MessageID == "" {
		return errors.New("scheduled meeting has no message ID")
	}

	created, err := c.store.Create(ctx, cacheKey(user, rec.MessageID), rec)
	if err != nil {
		return fmt.Errorf("failed to save scheduled meeting: %w", err)
	}
	if !created {
		return ErrAlreadyScheduled
	}
	return nil
}

// lock serializes bookings of one message. The returned func releases it.
func (c *Cache) lock(user, messageID string) func() {
	return c.keys.lock(cacheKey(user, messageID))
}

// keyedMutex is a set of mutexes created on demand and dropped once no
// caller holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
