package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

const (
	defaultRetryBase  = 200 * time.Millisecond
	defaultMaxRetries = 2
)

// PinSender renders the PIN email and hands it to a Mailer, retrying
// transient failures until the context deadline.
type PinSender struct {
	mailer     Mailer
	templates  *Templates
	ttl        time.Duration
	retryBase  time.Duration
	maxRetries uint64
}

func NewPinSender(mailer Mailer, templates *Templates, ttl time.Duration) *PinSender {
	return &PinSender{
		mailer:     mailer,
		templates:  templates,
		ttl:        ttl,
		retryBase:  defaultRetryBase,
		maxRetries: defaultMaxRetries,
	}
}

// Send delivers code to address. name is used in the greeting and falls back
// to the address when empty.
func (s *PinSender) Send(ctx context.Context, address, name, code string) error {
	if address == "" {
		return ErrNoRecipients
	}
	if name == "" {
		name = address
	}

	subject, text, html, err := s.templates.Render(PinEmailData{
		Name:       name,
		Code:       code,
		TTLMinutes: int(s.ttl.Minutes()),
	})
	if err != nil {
		return err
	}

	msg := Message{
		ID:       uuid.NewString(),
		To:       []string{address},
		Subject:  subject,
		TextBody: text,
		HTMLBody: html,
	}

	b := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.retryBase))
	attempt := 0
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := s.mailer.Send(ctx, msg); err != nil {
			if isPermanent(err) {
				return err
			}
			log.Warn().Err(err).Str("message_id", msg.ID).Int("attempt", attempt).Msg("pin email send failed")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("send pin email %s: %w", msg.ID, err)
	}

	log.Info().Str("message_id", msg.ID).Int("attempts", attempt).Msg("pin email sent")
	return nil
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrNoRecipients) ||
		errors.Is(err, ErrNoSender) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
