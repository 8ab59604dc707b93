// Package email sends reminder emails over SMTP. An unconfigured transport
// is a valid state: Send then returns ErrNotConfigured instead of dialing,
// and the caller treats it as a soft per-channel failure.
package email

import (
	"errors"

	"gopkg.in/mail.v2"
)

// ErrNotConfigured is returned when no SMTP host has been configured.
var ErrNotConfigured = errors.New("email transport not configured")

type Client struct {
	smtpHost string
	smtpPort int
	username string
	password string
	from     string
}

// NewClient creates an SMTP client. An empty host yields a client whose
// sends fail softly with ErrNotConfigured.
func NewClient(smtpHost string, smtpPort int, username, password, from string) *Client {
	return &Client{
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		username: username,
		password: password,
		from:     from,
	}
}

// Configured reports whether an SMTP host has been set.
func (c *Client) Configured() bool {
	return c.smtpHost != ""
}

// Send delivers an email with plaintext and HTML alternatives.
func (c *Client) Send(to, subject, text, html string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	message := mail.NewMessage()

	message.SetHeader("From", c.from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)

	message.SetBody("text/plain", text)
	if html != "" {
		message.AddAlternative("text/html", html)
	}

	dialer := mail.NewDialer(c.smtpHost, c.smtpPort, c.username, c.password)

	return dialer.DialAndSend(message)
}
