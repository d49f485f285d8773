package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures = 5
	openTimeout = 30 * time.Second
	maxBackoff  = 30 * time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type Config struct {
	URL           string
	Exchange      string
	SyncQueue     string
	ReminderQueue string
}

type Client struct {
	url           string
	exchangeName  string
	queueName     string
	reminderQueue string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(cfg Config) (*Client, error) {
	client := &Client{
		url:           cfg.URL,
		exchangeName:  cfg.Exchange,
		queueName:     cfg.SyncQueue,
		reminderQueue: cfg.ReminderQueue,
	}
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.conn, c.channel = conn, channel
	if err := c.setup(); err != nil {
		c.closeLocked()
		return fmt.Errorf("setup exchange and queues: %w", err)
	}
	return nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, queue := range []string{c.queueName, c.reminderQueue} {
		if queue == "" {
			continue
		}
		if _, err := c.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		// Routing key equals the queue name on a direct exchange.
		if err := c.channel.QueueBind(queue, queue, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}
	return nil
}

// ensureChannel reopens the connection after a broker restart.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	return c.channel, nil
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) publish(ctx context.Context, queue string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish to %s: %w", queue, ErrCircuitOpen)
	}

	channel, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("reconnect: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		queue,          // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.mu.Lock()
			c.closeLocked()
			c.mu.Unlock()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()
	return nil
}

// PublishInvoiceSync queues an invoice for export to Google Sheets.
func (c *Client) PublishInvoiceSync(ctx context.Context, id, action string) error {
	body, err := NewInvoiceSyncMessage(id, action).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, c.queueName, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published invoice sync message",
		"id", id,
		"action", action,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// PublishReminder queues a payment reminder.
func (c *Client) PublishReminder(ctx context.Context, msg ReminderMessage) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, c.reminderQueue, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published payment reminder",
		"invoice_id", msg.InvoiceID,
		"number", msg.Number,
		"days_left", msg.DaysLeft,
		"queue", c.reminderQueue)
	return nil
}

// ConsumeInvoiceSync blocks handling sync messages until ctx is done.
func (c *Client) ConsumeInvoiceSync(ctx context.Context, handler func(*InvoiceSyncMessage) error) error {
	return c.consume(ctx, c.queueName, func(body []byte) (string, error) {
		msg, err := InvoiceSyncMessageFromJSON(body)
		if err != nil {
			return "", errMalformed{err}
		}
		return msg.ID, handler(msg)
	})
}

// ConsumeReminders blocks handling reminder messages until ctx is done.
func (c *Client) ConsumeReminders(ctx context.Context, handler func(*ReminderMessage) error) error {
	return c.consume(ctx, c.reminderQueue, func(body []byte) (string, error) {
		msg, err := ReminderMessageFromJSON(body)
		if err != nil {
			return "", errMalformed{err}
		}
		return msg.InvoiceID, handler(msg)
	})
}

type errMalformed struct{ err error }

func (e errMalformed) Error() string { return "malformed message: " + e.err.Error() }
func (e errMalformed) Unwrap() error { return e.err }

func (c *Client) consume(ctx context.Context, queue string, handle func([]byte) (string, error)) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, queue, handle)
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "Stopping message consumption", "queue", queue, "reason", ctx.Err())
			return ctx.Err()
		}
		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "Consumer interrupted, reconnecting",
			"queue", queue,
			"error", err,
			"retry_in", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		attempt++
	}
}

func (c *Client) consumeOnce(ctx context.Context, queue string, handle func([]byte) (string, error)) error {
	channel, err := c.ensureChannel()
	if err != nil {
		return err
	}
	msgs, err := channel.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming messages", "queue", queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				c.mu.Lock()
				c.closeLocked()
				c.mu.Unlock()
				return fmt.Errorf("message channel closed")
			}

			id, err := handle(delivery.Body)
			var malformed errMalformed
			switch {
			case errors.As(err, &malformed):
				slog.ErrorContext(ctx, "Failed to unmarshal message", "queue", queue, "error", err)
				delivery.Nack(false, false)
			case err != nil:
				slog.ErrorContext(ctx, "Failed to handle message", "queue", queue, "id", id, "error", err)
				delivery.Nack(false, true)
			default:
				delivery.Ack(false)
				slog.InfoContext(ctx, "Successfully processed message", "queue", queue, "id", id)
			}
		}
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
