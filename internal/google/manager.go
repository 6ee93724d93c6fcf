package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/instrumentation"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/logging"
)

// ErrNoToken is returned when no token record exists for a user.
var ErrNoToken = errors.New("no Google token for user")

// Config configures the OAuth client used for sign-in and refresh.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Scopes defaults to DefaultOAuthScopes.
	Scopes []string

	// Endpoint defaults to Google's OAuth endpoint.
	Endpoint oauth2.Endpoint

	// HTTPClient is used for calls to the token endpoint (optional).
	HTTPClient *http.Client

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Manager hands out token records, refreshing them shortly before expiry.
// Concurrent refreshes for the same user share a single token endpoint call.
type Manager struct {
	oauth      *oauth2.Config
	store      TokenStore
	httpClient *http.Client
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
	group      singleflight.Group
	now        func() time.Time
}

// NewManager creates a token manager backed by store.
func NewManager(cfg Config, store TokenStore) *Manager {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = googleoauth.Endpoint
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		store:      store,
		httpClient: cfg.HTTPClient,
		metrics:    cfg.Metrics,
		logger:     logging.WithService(logger, "google_oauth"),
		now:        time.Now,
	}
}

// AuthCodeURL returns the Google consent URL. Offline access and a forced
// consent prompt make Google return a refresh token on every sign-in.
func (m *Manager) AuthCodeURL(state string) string {
	return m.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token record.
func (m *Manager) Exchange(ctx context.Context, code string) (*TokenRecord, error) {
	t, err := m.oauth.Exchange(m.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return NewTokenRecord(t), nil
}

// Save stores rec as the current record for user.
func (m *Manager) Save(user string, rec *TokenRecord) error {
	return m.store.Save(user, rec)
}

// Forget drops the record for user.
func (m *Manager) Forget(user string) {
	m.store.Delete(user)
}

// Token returns the current record for user, refreshing it first when it
// expires within RefreshLeeway.
//
// A failed refresh is logged and the existing record is returned with a nil
// error. Records without an access token or expiry are returned unchanged.
func (m *Manager) Token(ctx context.Context, user string) (*TokenRecord, error) {
	rec, ok := m.store.Get(user)
	if !ok {
		return nil, ErrNoToken
	}
	if !rec.Refreshable() || !rec.NeedsRefresh(m.now()) {
		return rec, nil
	}

	// The refreshed record is persisted for every waiter, so the shared call
	// must not be cancelled by whichever request happened to start it.
	refreshCtx := context.WithoutCancel(ctx)
	v, _, shared := m.group.Do(user, func() (any, error) {
		return m.refresh(refreshCtx, user, rec), nil
	})
	if shared {
		m.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultShared)
	}
	return v.(*TokenRecord).clone(), nil
}

func (m *Manager) refresh(ctx context.Context, user string, rec *TokenRecord) *TokenRecord {
	// Another caller may have refreshed between our read and this flight.
	if cur, ok := m.store.Get(user); ok && cur.Refreshable() && !cur.NeedsRefresh(m.now()) {
		return cur
	}

	logger := m.logger.With(logging.UserHash(user))

	if rec.RefreshToken == "" {
		logger.Warn("Token refresh skipped: no refresh token")
		m.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultFailure)
		return rec
	}

	start := time.Now()
	t, err := m.oauth.TokenSource(m.clientContext(ctx), &oauth2.Token{RefreshToken: rec.RefreshToken}).Token()
	if err != nil {
		logger.Warn("Token refresh failed, keeping existing token",
			logging.Err(err),
			logging.Duration(time.Since(start)))
		m.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultFailure)
		return rec
	}

	next := rec.withRefreshed(t)
	if err := m.store.Save(user, next); err != nil {
		logger.Warn("Failed to save refreshed token", logging.Err(err))
	}

	logger.Debug("Token refreshed",
		"expires_at", next.ExpiresAt,
		"refresh_token_rotated", next.RefreshToken != rec.RefreshToken,
		logging.Duration(time.Since(start)))
	m.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultSuccess)
	return next
}

func (m *Manager) clientContext(ctx context.Context) context.Context {
	if m.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}
	return ctx
}
