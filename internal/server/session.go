package server

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/actions"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/attachments"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/instrumentation"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/meeting"
)

const (
	// DefaultSessionTimeout is how long an idle session is kept.
	DefaultSessionTimeout = 24 * time.Hour

	defaultSessionCleanupInterval = 10 * time.Minute
)

// Session is the state of one signed-in browser. Everything except the
// user is scoped to the thread currently open and is dropped when the thread changes.
type Session struct {
	ID   string
	User string

	// Attachments holds the processed attachments of the current thread.
	Attachments *attachments.Store

	mu         sync.Mutex
	thread     string
	results    map[actions.Action][]actions.Result
	meetings   map[string]meeting.Result
	lastAccess time.Time
}

func newSession(user string, now time.Time) *Session {
	return &Session{
		ID:          uuid.NewString(),
		User:        user,
		Attachments: attachments.NewStore(),
		results:     map[actions.Action][]actions.Result{},
		meetings:    map[string]meeting.Result{},
		lastAccess:  now,
	}
}

// Thread returns the thread the session state belongs to.
func (s *Session) Thread() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thread
}

// switchThread makes threadID current. It reports whether another thread
// was current, in which case the caller must purge.
func (s *Session) switchThread(threadID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.thread == threadID {
		return false
	}
	previous := s.thread
	s.thread = threadID
	return previous != ""
}

// SetResults stores the results of an action.
func (s *Session) SetResults(action actions.Action, results []actions.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[action] = slices.Clone(results)
}

// Results returns the stored results of an action.
func (s *Session) Results(action actions.Action) ([]actions.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[action]
	return slices.Clone(r), ok
}

// SetMeetings replaces the meeting detection results.
func (s *Session) SetMeetings(results []meeting.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings = make(map[string]meeting.Result, len(results))
	for _, r := range results {
		s.meetings[r.MessageID] = r
	}
}

// Meeting returns the latest detection result for a message.
func (s *Session) Meeting(messageID string) (meeting.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.meetings[messageID]
	return r, ok
}

func (s *Session) setMeeting(r meeting.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[r.MessageID] = r
}

// clear drops all thread-scoped state.
func (s *Session) clear() {
	s.Attachments.Purge()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = map[actions.Action][]actions.Result{}
	s.meetings = map[string]meeting.Result{}
}

// SessionManager tracks sessions by ID and expires idle ones.
type SessionManager struct {
	sessions      map[string]*Session
	mu            sync.RWMutex
	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	stopOnce      sync.Once
	timeout       time.Duration
	metrics       *instrumentation.Metrics
	logger        *slog.Logger
	now           func() time.Time
}

// NewSessionManager creates a manager that expires sessions idle for
// longer than timeout.
func NewSessionManager(timeout time.Duration, metrics *instrumentation.Metrics, logger *slog.Logger) *SessionManager {
	return newSessionManager(timeout, defaultSessionCleanupInterval, metrics, logger)
}

func newSessionManager(timeout, interval time.Duration, metrics *instrumentation.Metrics, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}

	m := &SessionManager{
		sessions:      make(map[string]*Session),
		cleanupTicker: time.NewTicker(interval),
		cleanupDone:   make(chan struct{}),
		timeout:       timeout,
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
	}

	go m.cleanupExpiredSessions()

	return m
}

// Create starts a session for user.
func (m *SessionManager) Create(ctx context.Context, user string) *Session {
	s := newSession(user, m.now())

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.metrics.IncrementActiveSessions(ctx)
	return s
}

// Get returns a live session and refreshes its last access time.
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	now := m.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastAccess) > m.timeout {
		return nil, false
	}
	s.lastAccess = now
	return s, true
}

// Remove ends a session.
func (m *SessionManager) Remove(ctx context.Context, id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Attachments.Purge()
		m.metrics.DecrementActiveSessions(ctx)
	}
}

// UserHasSessions reports whether user is signed in anywhere.
func (m *SessionManager) UserHasSessions(user string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.User == user {
			return true
		}
	}
	return false
}

// Len returns the number of tracked sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// removeExpired drops sessions idle beyond the timeout and returns how
// many were removed.
func (m *SessionManager) removeExpired(now time.Time) int {
	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := now.Sub(s.lastAccess)
		s.mu.Unlock()
		if idle > m.timeout {
			delete(m.sessions, id)
			expired = append(expired, s)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Attachments.Purge()
		m.metrics.DecrementActiveSessions(context.Background())
	}
	return len(expired)
}

func (m *SessionManager) cleanupExpiredSessions() {
	for {
		select {
		case <-m.cleanupTicker.C:
			if n := m.removeExpired(m.now()); n > 0 {
				m.logger.Info("Cleaned up expired sessions", "count", n)
			}
		case <-m.cleanupDone:
			return
		}
	}
}

// Stop stops the cleanup goroutine.
func (m *SessionManager) Stop() {
	m.stopOnce.Do(func() {
		m.cleanupTicker.Stop()
		close(m.cleanupDone)
	})
}
