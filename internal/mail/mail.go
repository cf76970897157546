// Package mail delivers PIN emails through a pluggable transport.
package mail

import (
	"context"
	"io"
)

// Message is a provider-agnostic email payload. The JSON form is what the
// AMQP transport publishes for downstream notification workers.
type Message struct {
	ID       string   `json:"id"`
	From     string   `json:"from,omitempty"`
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
	TextBody string   `json:"textBody"`
	HTMLBody string   `json:"htmlBody,omitempty"`
}

// Mailer abstracts an email transport (SMTP, message queue, console).
type Mailer interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}
