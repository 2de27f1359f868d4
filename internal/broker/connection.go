package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/akenel/helixnet-sub001/internal/domain"
)

const consumerPrefetch = 16

// Config carries the broker settings the connection manager consumes.
type Config struct {
	URL      string
	Exchange string

	PublishTimeout   time.Duration
	RetryInitial     time.Duration
	RetryMaxInterval time.Duration
	RetryMaxAttempts uint64
}

// Connection manages one AMQP connection and one publish channel per node
// process. The channel is not safe for unsynchronized concurrent use, so
// every publish is serialized through the mutex. Consumers get their own
// dedicated channels.
type Connection struct {
	cfg Config
	log *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func New(cfg Config, log *slog.Logger) *Connection {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = 500 * time.Millisecond
	}
	if cfg.RetryMaxInterval <= 0 {
		cfg.RetryMaxInterval = 2 * time.Second
	}
	if cfg.RetryMaxAttempts == 0 {
		cfg.RetryMaxAttempts = 3
	}

	return &Connection{
		cfg: cfg,
		log: log.With("component", "broker"),
	}
}

// EnsureConnected dials lazily and declares the topology, retrying with
// bounded exponential backoff. After exhausting retries it fails with
// ErrBrokerUnavailable.
func (c *Connection) EnsureConnected(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	op := func() error {
		_, err := c.ensureChannelLocked()
		return err
	}

	if err := backoff.Retry(op, c.retryPolicy(ctx)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBrokerUnavailable, err)
	}

	return nil
}

// Publish sends body to the topic exchange under key and blocks until the
// broker confirms receipt. Failed attempts reset the channel and retry per
// the backoff policy; exhaustion surfaces ErrBrokerUnavailable, and callers
// must not mutate local state in that case.
func (c *Connection) Publish(ctx context.Context, key string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	op := func() error {
		return c.publishLocked(ctx, c.cfg.Exchange, key, body)
	}

	if err := backoff.Retry(op, c.retryPolicy(ctx)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBrokerUnavailable, err)
	}

	return nil
}

// DeadLetter hands a poison message to the dead-letter exchange. Single
// attempt: the message is already being dropped, this is best effort.
func (c *Connection) DeadLetter(ctx context.Context, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.publishLocked(ctx, c.cfg.Exchange+".dlx", "", body); err != nil {
		return fmt.Errorf("publishLocked: %w", err)
	}
	return nil
}

// BindingsFor resolves the node's queue bindings against this connection's
// exchange.
func (c *Connection) BindingsFor(nodeID string) []QueueBinding {
	return BindingsFor(c.cfg.Exchange, nodeID)
}

// Consume declares and binds the queue of b, then starts delivering on a
// dedicated channel. Deliveries must be acked by the caller.
func (c *Connection) Consume(ctx context.Context, b QueueBinding) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.ensureChannelLocked(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBrokerUnavailable, err)
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("conn.Channel: %w", err)
	}

	if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
		return nil, fmt.Errorf("ch.Qos: %w", err)
	}

	if _, err := ch.QueueDeclare(b.Queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("ch.QueueDeclare[%s]: %w", b.Queue, err)
	}

	for _, pattern := range b.Patterns {
		if err := ch.QueueBind(b.Queue, pattern, c.cfg.Exchange, false, nil); err != nil {
			return nil, fmt.Errorf("ch.QueueBind[%s->%s]: %w", b.Queue, pattern, err)
		}
	}

	deliveries, err := ch.ConsumeWithContext(ctx, b.Queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("ch.Consume[%s]: %w", b.Queue, err)
	}

	c.log.Info("consuming", "queue", b.Queue, "patterns", b.Patterns)
	return deliveries, nil
}

// Close releases the channel and the connection. Safe on every exit path,
// including after failures that already tore the connection down.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	if c.ch != nil && !c.ch.IsClosed() {
		if err := c.ch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("ch.Close: %w", err))
		}
	}
	c.ch = nil

	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("conn.Close: %w", err))
		}
	}
	c.conn = nil

	return errors.Join(errs...)
}

func (c *Connection) publishLocked(ctx context.Context, exchange, key string, body []byte) error {
	ch, err := c.ensureChannelLocked()
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, c.cfg.PublishTimeout)
	defer cancel()

	confirmation, err := ch.PublishWithDeferredConfirmWithContext(pubCtx, exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		c.resetLocked()
		return fmt.Errorf("ch.Publish[%s]: %w", key, err)
	}

	acked, err := confirmation.WaitContext(pubCtx)
	if err != nil {
		c.resetLocked()
		return fmt.Errorf("confirmation.Wait[%s]: %w", key, err)
	}
	if !acked {
		return fmt.Errorf("publish[%s] nacked by broker", key)
	}

	return nil
}

// ensureChannelLocked lazily dials and opens the publish channel, declaring
// the exchanges idempotently. A parameter mismatch on an existing exchange
// closes the channel and comes back as an error: that is a fatal
// configuration problem, not something to reconcile at runtime.
func (c *Connection) ensureChannelLocked() (*amqp.Channel, error) {
	if c.ch != nil && !c.ch.IsClosed() {
		return c.ch, nil
	}

	if c.conn == nil || c.conn.IsClosed() {
		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("amqp.Dial: %w", err)
		}
		c.conn = conn
		c.log.Info("connected", "exchange", c.cfg.Exchange)
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("conn.Channel: %w", err)
	}

	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("ch.ExchangeDeclare[%s]: %w", c.cfg.Exchange, err)
	}

	if err := ch.ExchangeDeclare(c.cfg.Exchange+".dlx", "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("ch.ExchangeDeclare[%s.dlx]: %w", c.cfg.Exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("ch.Confirm: %w", err)
	}

	c.ch = ch
	return ch, nil
}

func (c *Connection) resetLocked() {
	if c.ch != nil && !c.ch.IsClosed() {
		_ = c.ch.Close()
	}
	c.ch = nil

	if c.conn != nil && !c.conn.IsClosed() {
		_ = c.conn.Close()
	}
	c.conn = nil
}

func (c *Connection) retryPolicy(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryInitial
	bo.MaxInterval = c.cfg.RetryMaxInterval
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.RetryMaxAttempts), ctx)
}
