// Package service holds adapters between the auth core and outside systems.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/task-manager/internal/auth"
	"github.com/iliyamo/task-manager/internal/model"
	q "github.com/iliyamo/task-manager/internal/queue"
)

// SessionPublisher publishes a SessionCreatedEvent for every new session.
// It implements auth.SessionObserver: publishing happens in the background
// and failures are only logged, so a broker outage never fails a login.
type SessionPublisher struct {
	url     string
	timeout time.Duration
	log     *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	conn   *amqp.Connection
	closed bool // no new events
	done   bool // connection torn down
	wg     sync.WaitGroup
}

var _ auth.SessionObserver = (*SessionPublisher)(nil)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("session publisher closed")

func NewSessionPublisher(url string, log *slog.Logger) *SessionPublisher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &SessionPublisher{url: url, timeout: 5 * time.Second, log: log, now: time.Now}
}

// SessionCreated queues the event for publication and returns immediately.
// Events arriving after Close are dropped.
func (p *SessionPublisher) SessionCreated(ctx context.Context, userID string, s model.Session) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.log.WarnContext(ctx, "audit event dropped, publisher closed", "user_id", userID)
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	ev := p.event(userID, s)
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer p.wg.Done()
		pctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		if err := p.Publish(pctx, ev); err != nil {
			p.log.WarnContext(pctx, "audit publish failed", "user_id", userID, "error", err)
		}
	}()
}

func (p *SessionPublisher) event(userID string, s model.Session) q.SessionCreatedEvent {
	return q.SessionCreatedEvent{
		UserID:           userID,
		TokenFingerprint: auth.Fingerprint(s.Token),
		ExpiresAt:        s.ExpiresAt,
		CreatedAt:        p.now().UTC().Format(time.RFC3339),
	}
}

// Publish sends ev to SessionCreatedQueue as a persistent message.
func (p *SessionPublisher) Publish(ctx context.Context, ev q.SessionCreatedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ch, err := p.channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(q.SessionCreatedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	return ch.PublishWithContext(ctx, "", q.SessionCreatedQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	})
}

// channel opens a channel on the shared connection, redialing if the
// connection is missing or closed.
func (p *SessionPublisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return nil, ErrPublisherClosed
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("dial broker: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel open: %w", err)
	}
	return ch, nil
}

// Close stops accepting events, waits for in-flight publishes and closes the
// connection.
func (p *SessionPublisher) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = true
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
