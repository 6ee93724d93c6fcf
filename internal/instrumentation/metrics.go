package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod     = "method"
	attrPath       = "path"
	attrStatus     = "status"
	attrOperation  = "operation"
	attrService    = "service"
	attrResult     = "result"
	attrEndpoint   = "endpoint"
	attrAction     = "action"
	attrKind       = "kind"
	attrUserDomain = "user_domain"
)

var latencyBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0}

// Metrics records service metrics. The zero value is a valid no-op recorder.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeSessions      metric.Int64UpDownCounter

	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	aiBackendCallsTotal   metric.Int64Counter
	aiBackendCallDuration metric.Float64Histogram

	tokenRefreshTotal        metric.Int64Counter
	attachmentsProcessed     metric.Int64Counter
	attachmentClassification metric.Int64Counter
	quickActionsTotal        metric.Int64Counter
	meetingsDetectedTotal    metric.Int64Counter
	meetingsScheduledTotal   metric.Int64Counter

	detailedLabels bool
}

// NewMetrics creates all instruments on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	var err error
	counter := func(dst *metric.Int64Counter, name, desc, unit string) {
		if err != nil {
			return
		}
		*dst, err = meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		if err != nil {
			err = fmt.Errorf("failed to create %s counter: %w", name, err)
		}
	}
	histogram := func(dst *metric.Float64Histogram, name, desc string, buckets []float64) {
		if err != nil {
			return
		}
		*dst, err = meter.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(buckets...),
		)
		if err != nil {
			err = fmt.Errorf("failed to create %s histogram: %w", name, err)
		}
	}

	counter(&m.httpRequestsTotal, "http_requests_total", "Total number of HTTP requests", "{request}")
	histogram(&m.httpRequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds",
		[]float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0})
	counter(&m.googleAPIOperationsTotal, "google_api_operations_total", "Total number of Google API operations", "{operation}")
	histogram(&m.googleAPIOperationDuration, "google_api_operation_duration_seconds", "Google API operation duration in seconds", latencyBuckets)
	counter(&m.aiBackendCallsTotal, "ai_backend_calls_total", "Total number of AI backend calls", "{call}")
	histogram(&m.aiBackendCallDuration, "ai_backend_call_duration_seconds", "AI backend call duration in seconds", latencyBuckets)
	counter(&m.tokenRefreshTotal, "oauth_token_refresh_total", "Total number of OAuth token refresh attempts", "{attempt}")
	counter(&m.attachmentsProcessed, "attachments_processed_total", "Attachments run through text extraction", "{attachment}")
	counter(&m.attachmentClassification, "attachment_classifications_total", "Background attachment classifications", "{attachment}")
	counter(&m.quickActionsTotal, "quick_actions_total", "Quick action runs over a thread", "{run}")
	counter(&m.meetingsDetectedTotal, "meetings_detected_total", "Meeting detection outcomes per message", "{message}")
	counter(&m.meetingsScheduledTotal, "meetings_scheduled_total", "Meetings booked from a detected slot", "{meeting}")
	if err != nil {
		return nil, err
	}

	m.activeSessions, err = meter.Int64UpDownCounter("active_sessions",
		metric.WithDescription("Number of active user sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_sessions gauge: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request. path must be the route
// template, not the raw URL, to keep cardinality bounded.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordGoogleAPIOperation records a Google API call.
//
// Parameters:
//   - service: ServiceGmail or ServiceCalendar
//   - operation: one of the Operation* constants
//   - status: StatusSuccess or StatusError
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.googleAPIOperationsTotal.Add(ctx, 1, attrs)
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordAIBackendCall records a call to the AI backend by endpoint path.
func (m *Metrics) RecordAIBackendCall(ctx context.Context, endpoint, status string, duration time.Duration) {
	if m == nil || m.aiBackendCallsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrEndpoint, endpoint),
		attribute.String(attrStatus, status),
	)
	m.aiBackendCallsTotal.Add(ctx, 1, attrs)
	m.aiBackendCallDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordTokenRefresh records a token refresh attempt with one of the
// RefreshResult* values.
func (m *Metrics) RecordTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.tokenRefreshTotal == nil {
		return
	}
	m.tokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordAttachmentProcessed records one extraction attempt.
func (m *Metrics) RecordAttachmentProcessed(ctx context.Context, status string) {
	if m == nil || m.attachmentsProcessed == nil {
		return
	}
	m.attachmentsProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordAttachmentClassified records one background classification.
func (m *Metrics) RecordAttachmentClassified(ctx context.Context, status string) {
	if m == nil || m.attachmentClassification == nil {
		return
	}
	m.attachmentClassification.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordQuickAction records a finished quick-action run.
func (m *Metrics) RecordQuickAction(ctx context.Context, action, status, userEmail string) {
	if m == nil || m.quickActionsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrAction, action),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && userEmail != "" {
		attrs = append(attrs, attribute.String(attrUserDomain, ExtractUserDomain(userEmail)))
	}
	m.quickActionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordMeetingDetected records the detection outcome kind for one message.
func (m *Metrics) RecordMeetingDetected(ctx context.Context, kind string) {
	if m == nil || m.meetingsDetectedTotal == nil {
		return
	}
	m.meetingsDetectedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrKind, kind)))
}

// RecordMeetingScheduled records a booking attempt.
func (m *Metrics) RecordMeetingScheduled(ctx context.Context, status string) {
	if m == nil || m.meetingsScheduledTotal == nil {
		return
	}
	m.meetingsScheduledTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// IncrementActiveSessions increments the active sessions counter.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the active sessions counter.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, -1)
}

// StatusOf maps an error to StatusSuccess or StatusError.
func StatusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
