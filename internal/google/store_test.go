package google

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveGetDelete(t *testing.T) {
	s := NewStoreWithInterval(time.Hour, time.Hour)
	defer s.Stop()

	assert.Error(t, s.Save("", &TokenRecord{}))
	assert.Error(t, s.Save("u", nil))

	rec := &TokenRecord{AccessToken: "a", RefreshToken: "r"}
	require.NoError(t, s.Save("u", rec))

	got, ok := s.Get("u")
	require.True(t, ok)
	assert.Equal(t, "a", got.AccessToken)

	got.AccessToken = "mutated"
	again, _ := s.Get("u")
	assert.Equal(t, "a", again.AccessToken, "store must hand out copies")

	s.Delete("u")
	_, ok = s.Get("u")
	assert.False(t, ok)
}

func TestStore_RemoveIdle(t *testing.T) {
	s := NewStoreWithInterval(time.Minute, time.Hour)
	defer s.Stop()

	require.NoError(t, s.Save("stale", &TokenRecord{AccessToken: "a"}))
	require.NoError(t, s.Save("active", &TokenRecord{AccessToken: "b"}))

	later := time.Now().Add(2 * time.Minute)
	s.mu.Lock()
	s.tokens["active"].lastAccess = later
	s.mu.Unlock()

	assert.Equal(t, 1, s.removeIdle(later))
	assert.Equal(t, 1, s.Len())
	_, ok := s.Get("active")
	assert.True(t, ok)
}

func TestStore_CleanupLoop(t *testing.T) {
	s := NewStoreWithInterval(10*time.Millisecond, 10*time.Millisecond)
	defer s.Stop()

	require.NoError(t, s.Save("u", &TokenRecord{AccessToken: "a"}))
	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestTokenRecord_NeedsRefresh(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{"expires in 30s", now.Add(30 * time.Second), true},
		{"expires in 120s", now.Add(120 * time.Second), false},
		{"already expired", now.Add(-time.Second), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &TokenRecord{AccessToken: "a", ExpiresAt: tt.expires}
			assert.Equal(t, tt.want, rec.NeedsRefresh(now))
		})
	}
}
