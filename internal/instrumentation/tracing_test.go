package instrumentation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestHTTPServerSpan(t *testing.T) {
	rec := useRecorder(t)

	ctx, span := StartHTTPServerSpan(context.Background(), "GET", "/api/gmail/threads/:threadId")
	assert.NotEmpty(t, GetTraceID(ctx))
	EndHTTPServerSpan(span, 502)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/gmail/threads/:threadId", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.Int("http.response.status_code", 502))
}

func TestGoogleAPISpan(t *testing.T) {
	rec := useRecorder(t)

	_, span := StartGoogleAPISpan(context.Background(), ServiceGmail, OperationGetThread, attribute.String(SpanAttrThreadID, "t1"))
	EndSpan(span, errors.New("quota exceeded"))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "google.gmail.get_thread", spans[0].Name())
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String(SpanAttrThreadID, "t1"))
	assert.Len(t, spans[0].Events(), 1, "error recorded as an event")
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
}
