// Package gmail turns Gmail API payloads into normalized messages and
// threads.
//
// The decoding half of the package is pure: ExtractBody and
// CollectAttachments walk a MIME part tree depth first, DecodeTransportText
// decodes the base64url transfer encoding Gmail uses for part data, and
// NewHeaders/ParseDate normalize headers. None of these return errors;
// malformed input degrades to empty or default values.
//
// Client wraps the Gmail Users service for a single signed-in user. It never
// caches: every call reaches the Gmail API.
//
// Example usage:
//
//	client, err := gmail.NewClient(ctx, rec.HTTPClient(ctx))
//	if err != nil {
//	    return err
//	}
//
//	list, err := client.ListThreads(ctx, gmail.ListOptions{Query: "is:unread"})
//	if err != nil {
//	    return err
//	}
//
//	thread, err := client.GetThread(ctx, list.Messages[0].ThreadID)
package gmail
