// Package calendar books meetings directly in the signed-in user's primary
// Google Calendar.
//
// It is the alternative to letting the AI backend create the event: the
// gateway builds the event itself from a proposed slot and inserts it with
// the user's own token.
//
// Example usage:
//
//	client, err := calendar.NewClient(ctx, token.HTTPClient(ctx))
//	if err != nil {
//	    return err
//	}
//	link, err := client.ScheduleMeeting(ctx, proposed)
package calendar
