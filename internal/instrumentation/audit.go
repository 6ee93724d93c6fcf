package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// AuditEvent captures a user-initiated operation that reaches an external
// system on the user's behalf: sign-in, quick actions, meeting bookings and
// session purges.
//
// # Privacy Considerations
//
// UserEmail is PII. It is only emitted when the AuditLogger is configured
// with IncludePII; otherwise the user domain is logged instead.
type AuditEvent struct {
	Event     string
	UserEmail string
	ThreadID  string
	MessageID string
	Detail    string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewAuditEvent starts timing a new audit event.
func NewAuditEvent(event string) *AuditEvent {
	return &AuditEvent{Event: event, StartTime: time.Now()}
}

// WithUser sets the user identity.
func (e *AuditEvent) WithUser(email string) *AuditEvent {
	e.UserEmail = email
	return e
}

// WithThread sets the thread the event applies to.
func (e *AuditEvent) WithThread(threadID string) *AuditEvent {
	e.ThreadID = threadID
	return e
}

// WithMessage sets the message the event applies to.
func (e *AuditEvent) WithMessage(messageID string) *AuditEvent {
	e.MessageID = messageID
	return e
}

// WithDetail sets a free-form detail such as the action name.
func (e *AuditEvent) WithDetail(detail string) *AuditEvent {
	e.Detail = detail
	return e
}

// WithSpanContext copies trace and span ids from ctx.
func (e *AuditEvent) WithSpanContext(ctx context.Context) *AuditEvent {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		e.TraceID = span.SpanContext().TraceID().String()
		e.SpanID = span.SpanContext().SpanID().String()
	}
	return e
}

// Complete stops the timer and records the outcome.
func (e *AuditEvent) Complete(err error) *AuditEvent {
	e.Duration = time.Since(e.StartTime)
	e.Success = err == nil
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Status returns StatusSuccess or StatusError.
func (e *AuditEvent) Status() string {
	if e.Success {
		return StatusSuccess
	}
	return StatusError
}

func (e *AuditEvent) attrs(includePII bool) []any {
	attrs := []any{
		slog.String("event", e.Event),
		slog.Duration("duration", e.Duration),
		slog.Bool("success", e.Success),
	}
	if includePII {
		attrs = append(attrs, slog.String("user", e.UserEmail))
	} else {
		attrs = append(attrs, slog.String("user_domain", ExtractUserDomain(e.UserEmail)))
	}

	optional := []struct{ key, val string }{
		{"thread_id", e.ThreadID},
		{"message_id", e.MessageID},
		{"detail", e.Detail},
		{"trace_id", e.TraceID},
		{"span_id", e.SpanID},
		{"error", e.Error},
	}
	for _, o := range optional {
		if o.val != "" {
			attrs = append(attrs, slog.String(o.key, o.val))
		}
	}
	return attrs
}

// AuditLogger writes audit events to a dedicated slog logger.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLoggerWithConfig creates an AuditLogger. A nil logger uses slog.Default.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With(slog.String("log_type", "audit")),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// Log writes e at info level on success and warn level on failure.
// A nil or disabled logger drops the event.
func (al *AuditLogger) Log(e *AuditEvent) {
	if al == nil || !al.enabled || e == nil {
		return
	}

	if e.Success {
		al.logger.Info("audit", e.attrs(al.includePII)...)
	} else {
		al.logger.Warn("audit", e.attrs(al.includePII)...)
	}
}

// Audit event names.
const (
	AuditSignIn          = "sign_in"
	AuditSignOut         = "sign_out"
	AuditQuickAction     = "quick_action"
	AuditMeetingBooked   = "meeting_scheduled"
	AuditSessionPurged   = "session_purged"
	AuditFiltersUpdated  = "filters_updated"
	AuditAttachmentsRead = "attachments_processed"
)
