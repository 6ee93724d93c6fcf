// Package instrumentation wires OpenTelemetry metrics and tracing for the
// smartmail gateway.
//
// Metrics are exported through Prometheus (default), OTLP over HTTP or
// stdout. Traces go to OTLP or stdout when enabled and are otherwise never
// sampled.
//
// Every Record* method on Metrics is safe on a nil or zero-value receiver,
// so components can be constructed without a provider in tests.
//
// AuditLogger records user-initiated operations (sign-in, quick actions,
// meeting bookings) with anonymized identities unless PII is explicitly
// enabled.
package instrumentation
