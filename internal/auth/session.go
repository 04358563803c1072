package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/iliyamo/task-manager/internal/model"
	"github.com/iliyamo/task-manager/internal/repository"
)

const (
	// DefaultRefreshTTL is how long a session stays valid after creation.
	DefaultRefreshTTL = 10 * 24 * time.Hour
	// RefreshTokenBytes is the amount of randomness in a refresh token; the
	// hex form is twice as long.
	RefreshTokenBytes = 64
)

// SessionStore manages the refresh-token sessions of users on top of a
// UserRepository.
type SessionStore struct {
	users  repository.UserRepository
	ttl    time.Duration
	now    func() time.Time
	random io.Reader
}

// NewSessionStore returns a store whose sessions live for ttl
// (DefaultRefreshTTL when ttl <= 0).
func NewSessionStore(users repository.UserRepository, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultRefreshTTL
	}
	return &SessionStore{users: users, ttl: ttl, now: time.Now, random: rand.Reader}
}

// TTL returns the session lifetime.
func (s *SessionStore) TTL() time.Duration { return s.ttl }

// GenerateRefreshToken returns 64 bytes from crypto/rand as 128 hex chars.
func (s *SessionStore) GenerateRefreshToken() (string, error) {
	buf := make([]byte, RefreshTokenBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ComputeExpiry returns now plus the session lifetime in epoch seconds.
func (s *SessionStore) ComputeExpiry() int64 {
	return s.now().Add(s.ttl).Unix()
}

// IsExpired reports whether expiresAt has been reached. A session expiring
// exactly now is expired.
func (s *SessionStore) IsExpired(expiresAt int64) bool {
	return expiresAt <= s.now().Unix()
}

// CreateSession generates a refresh token, persists it as a new session of
// u and returns it. The token is only returned once the append has been
// stored; a storage failure yields ErrSessionPersist wrapping the cause.
func (s *SessionStore) CreateSession(ctx context.Context, u *model.User) (string, error) {
	token, err := s.GenerateRefreshToken()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSessionPersist, err)
	}
	session := model.Session{Token: token, ExpiresAt: s.ComputeExpiry()}
	if err := s.users.AppendSession(ctx, u.ID, session); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSessionPersist, err)
	}
	u.Sessions = append(u.Sessions, session)
	return token, nil
}

// FindUserBySessionToken returns user userID if it holds a session with
// token, or repository.ErrNotFound.
func (s *SessionStore) FindUserBySessionToken(ctx context.Context, userID, token string) (*model.User, error) {
	return s.users.FindByIDAndToken(ctx, userID, token)
}

// PruneExpired removes every expired session from storage.
func (s *SessionStore) PruneExpired(ctx context.Context) (int64, error) {
	return s.users.PruneExpiredSessions(ctx, s.now().Unix())
}

// Fingerprint returns the SHA-256 hex digest of a refresh token, suitable
// for logs and audit events where the token itself must not appear.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
