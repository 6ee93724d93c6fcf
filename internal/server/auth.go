package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/instrumentation"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/logging"
)

const (
	stateCookieName = "smartmail_oauth_state"
	stateCookieAge  = 10 * 60
)

func (s *Server) secureCookies() bool {
	return strings.HasPrefix(s.config.BaseURL, "https://")
}

func (s *Server) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", s.secureCookies(), true)
}

// handleLogin redirects to Google's consent screen.
func (s *Server) handleLogin(c *gin.Context) {
	state := uuid.NewString()
	s.setCookie(c, stateCookieName, state, stateCookieAge)
	c.Redirect(http.StatusFound, s.tokens.AuthCodeURL(state))
}

// handleCallback completes sign-in: it exchanges the code, identifies the
// user from their Gmail profile, stores the token and opens a session.
func (s *Server) handleCallback(c *gin.Context) {
	ctx := c.Request.Context()
	audit := instrumentation.NewAuditEvent(instrumentation.AuditSignIn).WithSpanContext(ctx)

	if errParam := c.Query("error"); errParam != "" {
		s.audit.Log(audit.WithDetail(errParam).Complete(newAPIError(http.StatusUnauthorized, errParam)))
		abortWithError(c, &apiError{Status: http.StatusUnauthorized, Message: "sign-in was cancelled", Detail: errParam}, "")
		return
	}

	state, err := c.Cookie(stateCookieName)
	if err != nil || state == "" || state != c.Query("state") {
		s.audit.Log(audit.WithDetail("state mismatch").Complete(newAPIError(http.StatusBadRequest, "state mismatch")))
		abortWithError(c, newAPIError(http.StatusBadRequest, "invalid OAuth state"), "")
		return
	}
	s.setCookie(c, stateCookieName, "", -1)

	code := c.Query("code")
	if code == "" {
		abortWithError(c, newAPIError(http.StatusBadRequest, "missing authorization code"), "")
		return
	}

	token, err := s.tokens.Exchange(ctx, code)
	if err != nil {
		s.audit.Log(audit.Complete(err))
		abortWithError(c, &apiError{Status: http.StatusUnauthorized, Message: "failed to exchange authorization code", Detail: err.Error()}, "")
		return
	}

	mb, err := s.mailboxes(ctx, token)
	if err != nil {
		abortWithError(c, err, "failed to open mailbox")
		return
	}
	email, err := mb.Profile(ctx)
	if err != nil {
		s.audit.Log(audit.Complete(err))
		abortWithError(c, err, "failed to read Gmail profile")
		return
	}

	if err := s.tokens.Save(email, token); err != nil {
		abortWithError(c, err, "failed to store token")
		return
	}

	session := s.sessions.Create(ctx, email)
	s.setCookie(c, SessionCookieName, session.ID, int(s.sessions.timeout.Seconds()))

	s.audit.Log(audit.WithUser(email).Complete(nil))
	logging.WithUser(s.logger, email).Info("User signed in")

	c.Redirect(http.StatusFound, s.config.BaseURL+"/")
}

// handleLogout ends the session. The stored token is dropped once the
// user has no other session.
func (s *Server) handleLogout(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := c.Cookie(SessionCookieName)
	if err == nil && id != "" {
		if session, ok := s.sessions.Get(id); ok {
			s.purge(ctx, session, "signed out")
			s.sessions.Remove(ctx, id)
			if !s.sessions.UserHasSessions(session.User) {
				s.tokens.Forget(session.User)
			}
			s.audit.Log(instrumentation.NewAuditEvent(instrumentation.AuditSignOut).
				WithUser(session.User).
				WithSpanContext(ctx).
				Complete(nil))
		}
	}

	s.setCookie(c, SessionCookieName, "", -1)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleMe(c *gin.Context) {
	session := sessionFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"email":  session.User,
		"thread": session.Thread(),
	})
}
