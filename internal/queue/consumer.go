package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sethvargo/go-retry"
)

// Consumer reads SessionCreatedQueue and appends one line per event to
// auth.log in its log directory.
type Consumer struct {
	url    string
	logDir string
	log    *slog.Logger
}

func NewConsumer(url, logDir string, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Consumer{url: url, logDir: logDir, log: log}
}

// Run dials the broker and consumes until ctx is done, reconnecting with
// capped exponential backoff whenever the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	b := retry.WithCappedDuration(30*time.Second, retry.NewExponential(time.Second))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WarnContext(ctx, "audit consumer dial failed", "error", err)
			return retry.RetryableError(err)
		}
		defer func() { _ = conn.Close() }()

		if err := c.consume(ctx, conn); err != nil {
			c.log.WarnContext(ctx, "audit consume loop ended", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WarnContext(ctx, "audit consumer qos failed", "error", err)
	}
	if _, err := ch.QueueDeclare(SessionCreatedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, SessionCreatedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	c.log.InfoContext(ctx, "audit consumer started", "queue", SessionCreatedQueue)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(d.Body); err != nil {
				c.log.WarnContext(ctx, "audit message rejected", "error", err)
				_ = d.Nack(false, false) // do not requeue poison messages
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(body []byte) error {
	var ev SessionCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.UserID == "" {
		return errors.New("event without user id")
	}
	if err := os.MkdirAll(c.logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(c.logDir, "auth.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	expires := time.Unix(ev.ExpiresAt, 0).UTC().Format(time.RFC3339)
	line := fmt.Sprintf("[%s] Session created | user_id=%s | token=%s | expires_at=%s\n",
		ev.CreatedAt, ev.UserID, ev.TokenFingerprint, expires)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
