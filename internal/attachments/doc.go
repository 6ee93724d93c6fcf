// Package attachments downloads, extracts and classifies the attachments of
// a thread.
//
// Extraction runs one attachment at a time because the backend keeps a
// per-session document store that is not safe for concurrent writes.
// Classification of each extracted document starts in the background as
// soon as its extraction succeeds and merges its result into the session's
// Store when it completes.
package attachments
