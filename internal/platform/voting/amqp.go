package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"election-service/internal/domain/election"
	"election-service/internal/retry"
)

type AMQPConfig struct {
	URL          string
	Exchange     string
	ExchangeType string
	Producer     string
	DialTimeout  time.Duration
	Logger       *slog.Logger
}

// AMQPPublisher publishes voting.create events with publisher confirms.
// CreatePoll only returns nil after the broker acked the message.
type AMQPPublisher struct {
	cfg    AMQPConfig
	logger *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(ctx context.Context, cfg AMQPConfig) (*AMQPPublisher, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = "events"
	}
	if cfg.ExchangeType == "" {
		cfg.ExchangeType = amqp.ExchangeTopic
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &AMQPPublisher{cfg: cfg, logger: logger.With("component", "amqp")}

	err := retry.Do(ctx, retry.Policy{
		Attempts:  5,
		BaseDelay: time.Second,
		MaxDelay:  8 * time.Second,
		OnRetry: func(attempt int, err error) {
			p.logger.Warn("broker not ready", "attempt", attempt, "error", err)
		},
	}, func(ctx context.Context) error {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.connectLocked()
	})
	if err != nil {
		return nil, fmt.Errorf("voting: connect broker: %w", err)
	}
	return p, nil
}

func (p *AMQPPublisher) connectLocked() error {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return nil
	}
	p.closeLocked()

	conn, err := amqp.DialConfig(p.cfg.URL, amqp.Config{Dial: amqp.DefaultDial(p.cfg.DialTimeout)})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return fmt.Errorf("enable confirms: %w", err)
	}
	if err := ch.ExchangeDeclare(p.cfg.Exchange, p.cfg.ExchangeType, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", p.cfg.Exchange, err)
	}

	p.conn = conn
	p.ch = ch
	return nil
}

func (p *AMQPPublisher) CreatePoll(ctx context.Context, req election.PollRequest) error {
	env, body, err := encodeCreateEvent(p.cfg.Producer, req)
	if err != nil {
		return fmt.Errorf("voting: encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connectLocked(); err != nil {
		return fmt.Errorf("voting: reconnect broker: %w", err)
	}

	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.cfg.Exchange, RoutingKeyCreate, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.EventID,
		Timestamp:    env.Timestamp,
		Type:         env.EventType,
		AppId:        p.cfg.Producer,
		Body:         body,
	})
	if err != nil {
		p.closeLocked()
		return fmt.Errorf("voting: publish: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("voting: wait for confirm: %w", err)
	}
	if !acked {
		return errors.New("voting: broker rejected event")
	}

	p.logger.InfoContext(ctx, "voting.create published",
		"event_id", env.EventID,
		"poll_id", req.PollID,
		"meeting_id", req.MeetingID,
	)
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *AMQPPublisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
