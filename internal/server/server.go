package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/actions"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/ai"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/attachments"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/calendar"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/filters"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/gmail"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/google"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/instrumentation"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/logging"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/meeting"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/store"
)

// Calendar backends for booking meetings.
const (
	CalendarBackendAI     = "ai"
	CalendarBackendGoogle = "google"
)

// Mailbox is the Gmail surface the gateway uses for one user.
type Mailbox interface {
	ListThreads(ctx context.Context, opts gmail.ListOptions) (*gmail.ThreadList, error)
	GetMessage(ctx context.Context, messageID string) (*gmail.Message, error)
	GetThread(ctx context.Context, threadID string) (*gmail.Thread, error)
	GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
	Profile(ctx context.Context) (string, error)
}

// MailboxFactory opens a mailbox with a user's token.
type MailboxFactory func(ctx context.Context, token *google.TokenRecord) (Mailbox, error)

// BookerFactory opens a calendar booker with a user's token.
type BookerFactory func(ctx context.Context, token *google.TokenRecord) (meeting.Booker, error)

// Config holds the gateway settings.
type Config struct {
	// BaseURL is the public URL of the gateway. Users are sent back to it
	// after signing in.
	BaseURL string

	// SessionTimeout expires idle sessions.
	SessionTimeout time.Duration

	// CalendarBackend selects who books meetings: CalendarBackendAI or
	// CalendarBackendGoogle.
	CalendarBackend string

	// NumThemes is the theme count requested for attachment classification.
	NumThemes int
}

// Deps are the collaborators of the gateway.
type Deps struct {
	Tokens  *google.Manager
	Store   store.Store
	AI      *ai.Client
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
	Logger  *slog.Logger

	// Mailboxes defaults to the Gmail API client.
	Mailboxes MailboxFactory
	// Bookers defaults to the Google Calendar client. It is only used with
	// CalendarBackendGoogle.
	Bookers BookerFactory
}

// Server is the SmartMail HTTP gateway.
type Server struct {
	config       Config
	tokens       *google.Manager
	ai           *ai.Client
	sessions     *SessionManager
	health       *HealthChecker
	pipeline     *attachments.Pipeline
	orchestrator *actions.Orchestrator
	detector     *meeting.Detector
	meetings     *meeting.Cache
	filters      *filters.Service
	mailboxes    MailboxFactory
	bookers      BookerFactory
	metrics      *instrumentation.Metrics
	audit        *instrumentation.AuditLogger
	logger       *slog.Logger
	engine       *gin.Engine
}

// New creates the gateway and its routes.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Tokens == nil || deps.Store == nil || deps.AI == nil {
		return nil, fmt.Errorf("token manager, store and AI client are required")
	}
	switch cfg.CalendarBackend {
	case "":
		cfg.CalendarBackend = CalendarBackendAI
	case CalendarBackendAI, CalendarBackendGoogle:
	default:
		return nil, fmt.Errorf("unknown calendar backend %q", cfg.CalendarBackend)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:    cfg,
		tokens:    deps.Tokens,
		ai:        deps.AI,
		sessions:  NewSessionManager(cfg.SessionTimeout, deps.Metrics, logger),
		health:    NewHealthChecker(deps.Store, deps.AI),
		meetings:  meeting.NewCache(deps.Store, logger),
		filters:   filters.NewService(deps.Store, logger),
		mailboxes: deps.Mailboxes,
		bookers:   deps.Bookers,
		metrics:   deps.Metrics,
		audit:     deps.Audit,
		logger:    logger,
	}
	s.pipeline = attachments.NewPipeline(deps.AI, attachments.Config{
		NumThemes: cfg.NumThemes,
		Metrics:   deps.Metrics,
		Logger:    logger,
	})
	s.orchestrator = actions.NewOrchestrator(deps.AI, logger)
	s.detector = meeting.NewDetector(deps.AI, s.meetings, deps.Metrics, logger)

	if s.mailboxes == nil {
		s.mailboxes = s.gmailMailbox
	}
	if s.bookers == nil {
		s.bookers = s.calendarBooker
	}

	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger, s.metrics))

	s.health.RegisterHealthEndpoints(r)

	auth := r.Group("/auth")
	auth.GET("/google/login", s.handleLogin)
	auth.GET("/google/callback", s.handleCallback)
	auth.POST("/logout", s.handleLogout)

	api := r.Group("/api", s.requireAuth())
	api.GET("/me", s.handleMe)

	api.GET("/gmail/messages", s.handleListMessages)
	api.GET("/gmail/messages/:id", s.handleGetMessage)
	api.GET("/gmail/messages/:id/attachments/:attachmentId", s.handleGetAttachment)
	api.GET("/gmail/threads/:threadId", s.handleGetThread)

	api.POST("/threads/:threadId/actions/:action", s.handleRunAction)
	api.GET("/threads/:threadId/actions/task-detection/export", s.handleExportTasks)

	api.POST("/threads/:threadId/attachments", s.handleProcessAttachments)
	api.GET("/threads/:threadId/attachments", s.handleListAttachments)
	api.POST("/rag/ask", s.handleAskRAG)

	api.GET("/threads/:threadId/meetings", s.handleDetectMeetings)
	api.POST("/meetings/schedule", s.handleScheduleMeeting)

	api.GET("/filters", s.handleGetFilters)
	api.PUT("/filters", s.handlePutFilters)

	api.DELETE("/session/thread", s.handleLeaveThread)

	return r
}

// Handler returns the HTTP handler of the gateway.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Health returns the health checker.
func (s *Server) Health() *HealthChecker {
	return s.health
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Shutdown marks the gateway as draining, stops session expiry and waits
// for background classifications to finish or ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetShuttingDown()
	s.sessions.Stop()

	done := make(chan struct{})
	go func() {
		s.pipeline.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background classification still running: %w", ctx.Err())
	}
}

func (s *Server) gmailMailbox(ctx context.Context, token *google.TokenRecord) (Mailbox, error) {
	client, err := gmail.NewClient(ctx, token.HTTPClient(ctx))
	if err != nil {
		return nil, err
	}
	client.SetMetrics(s.metrics)
	client.SetLogger(s.logger)
	return client, nil
}

func (s *Server) calendarBooker(ctx context.Context, token *google.TokenRecord) (meeting.Booker, error) {
	client, err := calendar.NewClient(ctx, token.HTTPClient(ctx))
	if err != nil {
		return nil, err
	}
	client.SetMetrics(s.metrics)
	client.SetLogger(s.logger)
	return client, nil
}

// mailbox opens the signed-in user's mailbox.
func (s *Server) mailbox(c *gin.Context) (Mailbox, bool) {
	mb, err := s.mailboxes(c.Request.Context(), tokenFrom(c))
	if err != nil {
		abortWithError(c, err, "failed to open mailbox")
		return nil, false
	}
	return mb, true
}

// booker returns the meeting booker for the configured backend.
func (s *Server) booker(c *gin.Context) (meeting.Booker, error) {
	if s.config.CalendarBackend == CalendarBackendGoogle {
		return s.bookers(c.Request.Context(), tokenFrom(c))
	}
	return s.ai, nil
}

// enterThread makes threadID the session's current thread, purging the
// state of the previous one.
func (s *Server) enterThread(ctx context.Context, session *Session, threadID string) {
	if session.switchThread(threadID) {
		s.purge(ctx, session, "thread switched")
	}
}

// purge drops the thread-scoped session state and asks the AI backend to
// clear its vector database. Backend failures are logged and ignored.
func (s *Server) purge(ctx context.Context, session *Session, reason string) {
	session.clear()

	_, err := s.ai.ClearDatabase(ctx)
	if err != nil {
		s.logger.Warn("Failed to clear AI backend database", "reason", reason, logging.Err(err))
	}

	s.audit.Log(instrumentation.NewAuditEvent(instrumentation.AuditSessionPurged).
		WithUser(session.User).
		WithDetail(reason).
		WithSpanContext(ctx).
		Complete(nil))
}
