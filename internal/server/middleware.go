package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/google"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/instrumentation"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/logging"
)

const (
	// SessionCookieName holds the session ID.
	SessionCookieName = "smartmail_session"

	contextKeySession = "smartmail.session"
	contextKeyToken   = "smartmail.token"
)

// requestLogger opens the request span, logs every request through slog
// and records HTTP metrics. Routes are labelled by their pattern.
func requestLogger(logger *slog.Logger, metrics *instrumentation.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		route := instrumentation.RouteLabel(c.FullPath())
		method := instrumentation.MethodLabel(c.Request.Method)

		ctx, span := instrumentation.StartHTTPServerSpan(c.Request.Context(), method, route)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		duration := time.Since(start)

		status := c.Writer.Status()
		instrumentation.EndHTTPServerSpan(span, status)
		metrics.RecordHTTPRequest(ctx, method, route, status, duration)

		attrs := []any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			logging.Duration(duration),
		}
		if traceID := instrumentation.GetTraceID(ctx); traceID != "" {
			attrs = append(attrs, "trace_id", traceID)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.Last().Error())
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("HTTP request", attrs...)
		case status >= http.StatusBadRequest:
			logger.Warn("HTTP request", attrs...)
		default:
			logger.Debug("HTTP request", attrs...)
		}
	}
}

// requireAuth resolves the session cookie and a valid access token. It
// answers 401 before any upstream call when either is missing.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookieName)
		if err != nil || id == "" {
			abortWithError(c, newAPIError(http.StatusUnauthorized, "not authenticated"), "")
			return
		}

		session, ok := s.sessions.Get(id)
		if !ok {
			abortWithError(c, newAPIError(http.StatusUnauthorized, "session expired"), "")
			return
		}

		token, err := s.tokens.Token(c.Request.Context(), session.User)
		if err != nil {
			abortWithError(c, err, "failed to load access token")
			return
		}

		c.Set(contextKeySession, session)
		c.Set(contextKeyToken, token)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *Session {
	return c.MustGet(contextKeySession).(*Session)
}

func tokenFrom(c *gin.Context) *google.TokenRecord {
	return c.MustGet(contextKeyToken).(*google.TokenRecord)
}
