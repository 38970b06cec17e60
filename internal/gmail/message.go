package gmail

import (
	"encoding/base64"
	"strings"

	"github.com/emersion/go-message/mail"
)

// EmailMessage represents an email to be sent or drafted
type EmailMessage struct {
	To      []string
	Cc      []string
	Bcc     []string
	ReplyTo string
	Subject string
	Body    string
}

// Text renders the message as header lines, a blank line and the body,
// joined with "\n". Non-ASCII subjects are RFC 2047 encoded.
func (m *EmailMessage) Text() string {
	lines := []string{
		"To: " + strings.Join(m.To, ", "),
		"Subject: " + encodeSubject(m.Subject),
	}
	if len(m.Cc) > 0 {
		lines = append(lines, "Cc: "+strings.Join(m.Cc, ", "))
	}
	if len(m.Bcc) > 0 {
		lines = append(lines, "Bcc: "+strings.Join(m.Bcc, ", "))
	}
	if m.ReplyTo != "" {
		lines = append(lines, "Reply-To: "+m.ReplyTo)
	}
	lines = append(lines, "", m.Body)
	return strings.Join(lines, "\n")
}

// Raw returns Text encoded as unpadded base64url, the form expected by the
// raw field of messages.send and drafts.create.
func (m *EmailMessage) Raw() string {
	return base64.RawURLEncoding.EncodeToString([]byte(m.Text()))
}

// encodeSubject leaves ASCII subjects untouched.
func encodeSubject(s string) string {
	var h mail.Header
	h.SetSubject(s)
	return h.Get("Subject")
}

// ValidateAddress reports whether addr parses as a single RFC 5322 address.
func ValidateAddress(addr string) error {
	_, err := mail.ParseAddress(addr)
	return err
}
