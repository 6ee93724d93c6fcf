package google

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// RefreshLeeway is how long before expiry an access token is refreshed.
const RefreshLeeway = 60 * time.Second

// TokenRecord is the token state kept per signed-in user.
type TokenRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// NewTokenRecord converts an oauth2 token into a record.
func NewTokenRecord(t *oauth2.Token) *TokenRecord {
	if t == nil {
		return nil
	}
	return &TokenRecord{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.Expiry,
	}
}

// Refreshable reports whether the record carries both an access token and
// an expiry. Records missing either are passed through untouched.
func (r *TokenRecord) Refreshable() bool {
	return r != nil && r.AccessToken != "" && !r.ExpiresAt.IsZero()
}

// NeedsRefresh reports whether now is past the refresh point of the record.
func (r *TokenRecord) NeedsRefresh(now time.Time) bool {
	return now.After(r.ExpiresAt.Add(-RefreshLeeway))
}

// withRefreshed returns a copy of r updated from a refresh response. The
// refresh token is replaced only when the response carries a new one.
func (r *TokenRecord) withRefreshed(t *oauth2.Token) *TokenRecord {
	next := *r
	next.AccessToken = t.AccessToken
	next.ExpiresAt = t.Expiry
	if t.RefreshToken != "" {
		next.RefreshToken = t.RefreshToken
	}
	return &next
}

// Token returns the record as an oauth2 bearer token.
func (r *TokenRecord) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: r.RefreshToken,
		Expiry:       r.ExpiresAt,
	}
}

// HTTPClient returns a client that sends the record's access token as a
// static bearer token. It never refreshes on its own.
func (r *TokenRecord) HTTPClient(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: r.AccessToken,
		TokenType:   "Bearer",
	}))
}

func (r *TokenRecord) clone() *TokenRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
