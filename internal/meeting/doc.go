// Package meeting detects meeting proposals in thread messages and books
// them at most once per message.
//
// Detection asks the AI backend to classify each message. Messages that
// already have a booking in the persisted cache are reported as Scheduled
// without calling the backend. A booking is only possible for a message
// whose latest detection result is Free, and it is recorded write-once so a
// meeting can never be booked twice.
package meeting
