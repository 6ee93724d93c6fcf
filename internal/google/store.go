package google

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TokenStore holds token records keyed by user email.
type TokenStore interface {
	Get(user string) (*TokenRecord, bool)
	Save(user string, rec *TokenRecord) error
	Delete(user string)
}

type storedToken struct {
	record     *TokenRecord
	lastAccess time.Time
}

// Store is an in-memory TokenStore. Entries not accessed for longer than
// the idle TTL are removed by a background cleanup loop.
type Store struct {
	mu              sync.RWMutex
	tokens          map[string]*storedToken
	idleTTL         time.Duration
	cleanupInterval time.Duration
	logger          *slog.Logger
	stop            chan struct{}
	stopOnce        sync.Once
}

// NewStore creates a store that forgets tokens idle for longer than idleTTL.
func NewStore(idleTTL time.Duration) *Store {
	return NewStoreWithInterval(idleTTL, time.Minute)
}

// NewStoreWithInterval creates a store with a custom cleanup interval.
func NewStoreWithInterval(idleTTL, cleanupInterval time.Duration) *Store {
	s := &Store{
		tokens:          make(map[string]*storedToken),
		idleTTL:         idleTTL,
		cleanupInterval: cleanupInterval,
		logger:          slog.Default(),
		stop:            make(chan struct{}),
	}

	go s.cleanupIdle()

	return s
}

// SetLogger sets a custom logger for the store
func (s *Store) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// Get returns a copy of the record for user.
func (s *Store) Get(user string) (*TokenRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.tokens[user]
	if !ok {
		return nil, false
	}
	st.lastAccess = time.Now()
	return st.record.clone(), true
}

// Save stores a copy of rec for user.
func (s *Store) Save(user string, rec *TokenRecord) error {
	if user == "" {
		return fmt.Errorf("user cannot be empty")
	}
	if rec == nil {
		return fmt.Errorf("token record cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[user] = &storedToken{record: rec.clone(), lastAccess: time.Now()}
	return nil
}

// Delete removes the record for user.
func (s *Store) Delete(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, user)
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// Stop ends the cleanup loop.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) cleanupIdle() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.removeIdle(now)
		}
	}
}

func (s *Store) removeIdle(now time.Time) int {
	if s.idleTTL <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for user, st := range s.tokens {
		if now.Sub(st.lastAccess) > s.idleTTL {
			delete(s.tokens, user)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("Removed idle tokens", "count", removed)
	}
	return removed
}
