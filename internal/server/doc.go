// Package server is the SmartMail HTTP gateway.
//
// It signs users in with Google, keeps one session per browser and exposes
// the mailbox and AI features as a JSON API built on gin:
//
//   - /auth/google/login, /auth/google/callback and /auth/logout handle
//     sign-in and sign-out.
//   - /api/gmail/... lists threads and reads messages, threads and
//     attachments.
//   - /api/threads/:threadId/... runs quick actions (streamed as NDJSON),
//     attachment processing and meeting detection on the open thread.
//   - /api/meetings/schedule, /api/rag/ask and /api/filters cover meeting
//     booking, attachment questions and inbox filters.
//
// Session state other than the signed-in user belongs to the thread that
// is open. Opening another thread, or DELETE /api/session/thread, purges it.
//
// MetricsServer serves Prometheus metrics on a dedicated port, and
// HealthChecker provides the /healthz, /readyz and /healthz/detailed probes.
package server
