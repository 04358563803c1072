package auth

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/iliyamo/task-manager/internal/model"
)

const (
	// DefaultBcryptCost is the bcrypt work factor used when none is configured.
	DefaultBcryptCost = 10
	// MinPasswordLength is the shortest password accepted at signup.
	MinPasswordLength = 8
	// MaxPasswordBytes is bcrypt's input limit.
	MaxPasswordBytes = 72
)

// PasswordHasher hashes and verifies passwords with bcrypt. At most
// maxConcurrent hash/compare operations run at once; further callers wait
// for a slot or for their context to end.
type PasswordHasher struct {
	cost  int
	slots *semaphore.Weighted
	dummy func() (string, error)
}

// NewPasswordHasher returns a hasher with the given cost. A cost outside
// bcrypt's range falls back to DefaultBcryptCost, and maxConcurrent <= 0
// means GOMAXPROCS slots.
func NewPasswordHasher(cost int, maxConcurrent int64) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	if maxConcurrent <= 0 {
		maxConcurrent = int64(runtime.GOMAXPROCS(0))
	}
	h := &PasswordHasher{cost: cost, slots: semaphore.NewWeighted(maxConcurrent)}
	h.dummy = sync.OnceValues(func() (string, error) {
		b, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), h.cost)
		return string(b), err
	})
	return h
}

// Cost returns the configured work factor.
func (h *PasswordHasher) Cost() int { return h.cost }

// Hash generates a salted bcrypt digest of plain.
func (h *PasswordHasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.slots.Release(1)

	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches digest. The comparison is
// constant-time. A malformed digest is a mismatch; an error is returned only
// when ctx ends before a slot frees up.
func (h *PasswordHasher) Verify(ctx context.Context, plain, digest string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.slots.Release(1)
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil, nil
}

// burn spends the same work as a real Verify so an unknown account takes
// as long to reject as a wrong password.
func (h *PasswordHasher) burn(ctx context.Context, plain string) error {
	digest, err := h.dummy()
	if err != nil {
		return nil
	}
	_, err = h.Verify(ctx, plain, digest)
	return err
}

// HashIfChanged hashes the user's pending password, if any. Users without a
// pending password are left alone so an existing digest is never re-hashed.
// On failure the password stays pending and repositories refuse to persist
// the user.
func (h *PasswordHasher) HashIfChanged(ctx context.Context, u *model.User) error {
	plain, dirty := u.PendingPassword()
	if !dirty {
		return nil
	}
	digest, err := h.Hash(ctx, plain)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.ApplyPasswordHash(digest)
	return nil
}
