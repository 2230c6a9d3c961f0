// Package notify delivers outbound customer email through an outbox: core
// mutations enqueue notification rows after their transaction commits, and a
// dispatcher drains pending rows through a Notifier backend. Delivery
// failure never affects core data.
package notify

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	log "github.com/sirupsen/logrus"
)

// Notifier sends one message to one recipient.
type Notifier interface {
	Send(recipient, subject, body string) error
}

// SendGridNotifier delivers mail through the SendGrid HTTP API.
type SendGridNotifier struct {
	apiKey    string
	fromEmail string
	fromName  string
}

// NewSendGridNotifier constructs a SendGrid-backed Notifier.
func NewSendGridNotifier(apiKey, fromEmail, fromName string) *SendGridNotifier {
	return &SendGridNotifier{apiKey: apiKey, fromEmail: fromEmail, fromName: fromName}
}

// Send delivers one message. Non-2xx responses are reported as errors.
func (n *SendGridNotifier) Send(recipient, subject, body string) error {
	from := mail.NewEmail(n.fromName, n.fromEmail)
	to := mail.NewEmail("", recipient)
	message := mail.NewSingleEmail(from, subject, to, body, body)

	client := sendgrid.NewSendClient(n.apiKey)
	response, errSend := client.Send(message)
	if errSend != nil {
		return fmt.Errorf("notify: sendgrid send: %w", errSend)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("notify: sendgrid status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

// LogNotifier logs messages instead of delivering them. It backs development
// and test environments where no SendGrid key is configured.
type LogNotifier struct{}

// Send logs the message and reports success.
func (LogNotifier) Send(recipient, subject, body string) error {
	log.WithFields(log.Fields{
		"recipient": recipient,
		"subject":   subject,
	}).Info("notify: delivery skipped (log notifier)")
	return nil
}
