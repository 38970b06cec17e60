package google

// Backend service names. One TokenCache exists per service.
const (
	ServiceGmail    = "gmail"
	ServiceCalendar = "calendar"
)

// GmailScopes are requested for the Gmail server. Full mailbox access is
// needed for permanent deletes.
var GmailScopes = []string{
	"https://mail.google.com/",
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/gmail.labels",
}

// CalendarScopes are requested for the Calendar server.
var CalendarScopes = []string{
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/calendar.events",
}

// ScopesForService returns the OAuth scopes for a backend service, or nil
// for an unknown service.
func ScopesForService(service string) []string {
	switch service {
	case ServiceGmail:
		return GmailScopes
	case ServiceCalendar:
		return CalendarScopes
	default:
		return nil
	}
}
