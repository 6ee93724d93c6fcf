// Package google keeps Google OAuth access tokens usable for the lifetime of
// a signed-in session.
//
// A TokenRecord is created at sign-in from the authorization code exchange
// and is refreshed by the Manager shortly before it expires. Refresh failures
// are never fatal: the existing record is returned and the Gmail call that
// follows surfaces the authorization error to the user.
package google
