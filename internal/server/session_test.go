package server

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/actions"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/ai"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/filters"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/google"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/meeting"
)

func TestSessionManager_Expiry(t *testing.T) {
	m := newSessionManager(time.Minute, time.Hour, nil, nil)
	defer m.Stop()

	now := time.Date(2025, 10, 14, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	a := m.Create(context.Background(), "a@example.com")
	b := m.Create(context.Background(), "b@example.com")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, m.Len())

	now = now.Add(30 * time.Second)
	_, ok := m.Get(a.ID)
	require.True(t, ok)

	now = now.Add(45 * time.Second)
	_, ok = m.Get(b.ID)
	assert.False(t, ok, "idle past the timeout")

	assert.Equal(t, 1, m.removeExpired(now))
	assert.Equal(t, 1, m.Len())
	assert.True(t, m.UserHasSessions("a@example.com"))
	assert.False(t, m.UserHasSessions("b@example.com"))

	m.Remove(context.Background(), a.ID)
	assert.Zero(t, m.Len())
}

func TestSession_SwitchThread(t *testing.T) {
	s := newSession("a@example.com", time.Now())

	assert.False(t, s.switchThread("t1"), "first thread")
	assert.False(t, s.switchThread("t1"), "same thread")

	s.SetResults(actions.Summary, []actions.Result{{MessageID: "m1"}})
	s.SetMeetings([]meeting.Result{{MessageID: "m1", Kind: meeting.Free}})

	assert.True(t, s.switchThread("t2"))
	s.clear()

	_, ok := s.Results(actions.Summary)
	assert.False(t, ok)
	_, ok = s.Meeting("m1")
	assert.False(t, ok)
	assert.Equal(t, "t2", s.Thread())
}

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{
			name:       "google api",
			err:        &googleapi.Error{Code: http.StatusTooManyRequests, Message: "Rate Limit Exceeded"},
			wantStatus: http.StatusTooManyRequests,
			wantDetail: "Rate Limit Exceeded",
		},
		{
			name:       "google api without a usable code",
			err:        &googleapi.Error{Code: 0},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "ai backend",
			err:        &ai.APIError{Endpoint: ai.EndpointSummary, StatusCode: 500, Detail: "model crashed"},
			wantStatus: http.StatusBadGateway,
			wantDetail: "model crashed",
		},
		{
			name:       "breaker open",
			err:        ai.ErrUnavailable,
			wantStatus: http.StatusServiceUnavailable,
			wantDetail: ai.ErrUnavailable.Error(),
		},
		{
			name:       "no token",
			err:        google.ErrNoToken,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "already booked",
			err:        meeting.ErrAlreadyScheduled,
			wantStatus: http.StatusConflict,
			wantDetail: meeting.ErrAlreadyScheduled.Error(),
		},
		{
			name:       "invalid filters",
			err:        filters.ErrInvalid,
			wantStatus: http.StatusBadRequest,
			wantDetail: filters.ErrInvalid.Error(),
		},
		{
			name:       "anything else",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toAPIError(tt.err, "operation failed")
			assert.Equal(t, tt.wantStatus, got.Status)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, got.Detail)
			}
		})
	}
}
