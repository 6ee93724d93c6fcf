package instrumentation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T, detailed bool) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), detailed)
	require.NoError(t, err)
	return m, reader
}

func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestMetrics_Counters(t *testing.T) {
	ctx := context.Background()
	m, reader := newTestMetrics(t, false)

	m.RecordHTTPRequest(ctx, "GET", "/api/gmail/messages", 200, 10*time.Millisecond)
	m.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationListThreads, StatusSuccess, 20*time.Millisecond)
	m.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationGetThread, StatusError, 20*time.Millisecond)
	m.RecordAIBackendCall(ctx, "/api/translate", StatusSuccess, time.Second)
	m.RecordTokenRefresh(ctx, RefreshResultFailure)
	m.RecordAttachmentProcessed(ctx, StatusSuccess)
	m.RecordAttachmentClassified(ctx, StatusError)
	m.RecordQuickAction(ctx, "summary", StatusSuccess, "jane@example.com")
	m.RecordMeetingDetected(ctx, "free")
	m.RecordMeetingScheduled(ctx, StatusSuccess)

	assert.Equal(t, int64(1), counterTotal(t, reader, "http_requests_total"))
	assert.Equal(t, int64(2), counterTotal(t, reader, "google_api_operations_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "ai_backend_calls_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "oauth_token_refresh_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "attachments_processed_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "attachment_classifications_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "quick_actions_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "meetings_detected_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "meetings_scheduled_total"))
}

func TestMetrics_ActiveSessions(t *testing.T) {
	ctx := context.Background()
	m, reader := newTestMetrics(t, false)

	m.IncrementActiveSessions(ctx)
	m.IncrementActiveSessions(ctx)
	m.DecrementActiveSessions(ctx)

	assert.Equal(t, int64(1), counterTotal(t, reader, "active_sessions"))
}

func TestMetrics_NilSafe(t *testing.T) {
	ctx := context.Background()
	var m *Metrics

	// None of these may panic.
	m.RecordHTTPRequest(ctx, "GET", "/", 200, time.Millisecond)
	m.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationGetMessage, StatusSuccess, time.Millisecond)
	m.RecordAIBackendCall(ctx, "/api/summary", StatusSuccess, time.Millisecond)
	m.RecordTokenRefresh(ctx, RefreshResultSuccess)
	m.RecordQuickAction(ctx, "translate", StatusSuccess, "")
	m.IncrementActiveSessions(ctx)

	zero := &Metrics{}
	zero.RecordMeetingDetected(ctx, "free")
	zero.DecrementActiveSessions(ctx)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusSuccess, StatusOf(nil))
	assert.Equal(t, StatusError, StatusOf(errors.New("x")))
}
