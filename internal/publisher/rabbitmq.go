// Package publisher fans content events out over RabbitMQ so other tools can
// react to new or archived posts.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/alexmgee/patron-hub/internal/config"
	"github.com/alexmgee/patron-hub/internal/domain"
)

var errNacked = errors.New("broker rejected event")

// RabbitMQ publishes events with publisher confirms. A dropped connection is
// redialed on the next Publish.
type RabbitMQ struct {
	cfg    config.RabbitMQConfig
	logger *slog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewRabbitMQ(cfg config.RabbitMQConfig, logger *slog.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{
		cfg:    cfg,
		logger: logger.With("component", "publisher"),
	}
	if err := r.connect(); err != nil {
		return nil, err
	}

	r.logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)
	return r, nil
}

// connect dials the broker and declares a durable direct exchange with one
// bound queue. Callers hold mu, except NewRabbitMQ.
func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(r.cfg.URL)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	setup := []struct {
		step string
		fn   func() error
	}{
		{"declare exchange", func() error {
			return ch.ExchangeDeclare(r.cfg.Exchange, "direct", true, false, false, false, nil)
		}},
		{"declare queue", func() error {
			_, err := ch.QueueDeclare(r.cfg.QueueName, true, false, false, false, nil)
			return err
		}},
		{"bind queue", func() error {
			return ch.QueueBind(r.cfg.QueueName, r.cfg.RoutingKey, r.cfg.Exchange, false, nil)
		}},
		{"enable confirms", func() error {
			return ch.Confirm(false)
		}},
	}
	for _, s := range setup {
		if err := s.fn(); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("%s: %w", s.step, err)
		}
	}

	r.conn = conn
	r.channel = ch
	return nil
}

func (r *RabbitMQ) ensureChannel() error {
	if r.conn != nil && !r.conn.IsClosed() && r.channel != nil && !r.channel.IsClosed() {
		return nil
	}
	r.closeLocked()
	r.logger.Warn("rabbitmq connection lost, reconnecting")
	return r.connect()
}

// Publish sends one event as a persistent JSON message and waits for the
// broker to confirm it. The action is also carried in the message type so
// consumers can filter without decoding.
func (r *RabbitMQ) Publish(ctx context.Context, event domain.ContentEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureChannel(); err != nil {
		return err
	}

	confirm, err := r.channel.PublishWithDeferredConfirmWithContext(ctx,
		r.cfg.Exchange,
		r.cfg.RoutingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Type:         event.Action,
			Timestamp:    event.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s event: %w", event.Action, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm: %w", err)
	}
	if !acked {
		return fmt.Errorf("%w: %s for content %d", errNacked, event.Action, event.ContentItemID)
	}

	r.logger.Debug("published content event",
		"content_item_id", event.ContentItemID,
		"action", event.Action,
	)
	return nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *RabbitMQ) closeLocked() error {
	var err error
	if r.channel != nil {
		_ = r.channel.Close()
		r.channel = nil
	}
	if r.conn != nil {
		if !r.conn.IsClosed() {
			err = r.conn.Close()
		}
		r.conn = nil
	}
	return err
}
