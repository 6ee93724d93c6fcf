// Package ai is the HTTP client for the SmartMail AI backend.
//
// The backend is a JSON-over-HTTP service that translates, analyzes,
// summarizes and answers questions about email text and extracted
// attachments, and books meetings in the user's calendar. Each endpoint has
// a typed method on Client. Non-2xx responses become *APIError carrying the
// backend's "detail" message.
//
// All calls go through a circuit breaker. Nothing is retried: a failed call
// is reported to the caller, which decides whether to skip or abort.
package ai
