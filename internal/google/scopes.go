package google

// DefaultOAuthScopes are requested at sign-in.
//
// The scopes provide access to:
//   - OpenID Connect profile (email address of the signed-in user)
//   - Gmail: read-only
//   - Google Calendar: event creation for meeting scheduling
var DefaultOAuthScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",

	"https://www.googleapis.com/auth/gmail.readonly",

	"https://www.googleapis.com/auth/calendar.events",
}
