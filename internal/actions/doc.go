// Package actions runs AI quick actions across the messages of a thread.
//
// Messages are processed one at a time in thread order and every completed
// message is reported through a progress callback, so callers can stream
// partial results. The first backend error stops the run; results gathered
// before it are kept.
package actions
