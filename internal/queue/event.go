// Package queue defines the audit messages exchanged over RabbitMQ and the
// consumer that records them.
package queue

// SessionCreatedQueue is the durable queue carrying SessionCreatedEvent.
const SessionCreatedQueue = "auth.session.created"

// SessionCreatedEvent is published after a refresh-token session has been
// persisted. It carries a fingerprint of the token, never the token itself.
type SessionCreatedEvent struct {
	UserID           string `json:"user_id"`
	TokenFingerprint string `json:"token_fingerprint"`
	ExpiresAt        int64  `json:"expires_at"`
	CreatedAt        string `json:"created_at"`
}
