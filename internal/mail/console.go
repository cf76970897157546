package mail

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// ConsoleMailer writes messages to the log instead of sending them. It prints
// the full body, PIN included, and is refused in production by config.
type ConsoleMailer struct{}

func NewConsoleMailer() *ConsoleMailer {
	return &ConsoleMailer{}
}

func (ConsoleMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	log.Warn().
		Str("message_id", msg.ID).
		Str("to", strings.Join(msg.To, ", ")).
		Str("subject", msg.Subject).
		Str("body", msg.TextBody).
		Msg("console mailer: message not sent")
	return nil
}

func (ConsoleMailer) Close() error {
	return nil
}
