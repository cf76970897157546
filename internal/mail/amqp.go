package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const amqpDialTimeout = 10 * time.Second

type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPMailer publishes messages as JSON to a durable topic exchange. A
// notification worker on the other side performs the actual delivery.
type AMQPMailer struct {
	mu         sync.Mutex
	conn       *amqp.Connection
	channel    amqpChannel
	reopen     func() (amqpChannel, error)
	exchange   string
	routingKey string
	from       string
}

type AMQPConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
	From       string
}

func NewAMQPMailer(cfg AMQPConfig) (*AMQPMailer, error) {
	cleanURL, err := sanitizeAMQPURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(amqpDialTimeout)})
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	reopen := func() (amqpChannel, error) {
		return conn.Channel()
	}

	ch, err := reopen()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	m := newAMQPMailer(ch, reopen, cfg)
	m.conn = conn
	if err := m.declare(); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func newAMQPMailer(ch amqpChannel, reopen func() (amqpChannel, error), cfg AMQPConfig) *AMQPMailer {
	return &AMQPMailer{
		channel:    ch,
		reopen:     reopen,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		from:       cfg.From,
	}
}

func (m *AMQPMailer) declare() error {
	if err := m.channel.ExchangeDeclare(m.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %q: %w", m.exchange, err)
	}
	return nil
}

func (m *AMQPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if msg.From == "" {
		msg.From = m.from
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    time.Now(),
		Body:         body,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	err = m.channel.PublishWithContext(ctx, m.exchange, m.routingKey, false, false, publishing)
	if err == nil {
		return nil
	}

	log.Warn().Err(err).Str("exchange", m.exchange).Msg("amqp publish failed, reopening channel")

	// One reopen per call; further retries belong to the caller.
	ch, chErr := m.reopen()
	if chErr != nil {
		return errors.Join(err, chErr)
	}
	m.channel = ch
	if exErr := m.declare(); exErr != nil {
		return exErr
	}
	return m.channel.PublishWithContext(ctx, m.exchange, m.routingKey, false, false, publishing)
}

func (m *AMQPMailer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if m.channel != nil {
		errs = append(errs, m.channel.Close())
	}
	if m.conn != nil {
		errs = append(errs, m.conn.Close())
	}
	return errors.Join(errs...)
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", fmt.Errorf("parse amqp url: %w", err)
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}
