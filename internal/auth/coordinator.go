package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iliyamo/task-manager/internal/metrics"
	"github.com/iliyamo/task-manager/internal/model"
	"github.com/iliyamo/task-manager/internal/repository"
)

// SessionObserver is notified after a session has been persisted. It must
// not block for long; failures are the observer's own business.
type SessionObserver interface {
	SessionCreated(ctx context.Context, userID string, s model.Session)
}

// Grant is what a successful signup or login hands back: the user and two
// separate credentials that travel on separate response headers.
type Grant struct {
	User         *model.User
	AccessToken  AccessToken
	RefreshToken string
}

// Coordinator orchestrates credential checks, session creation and token
// issuance, and implements the two request guards.
type Coordinator struct {
	users    repository.UserRepository
	hasher   *PasswordHasher
	signer   *Signer
	sessions *SessionStore
	observer SessionObserver
	metrics  *metrics.Auth
	log      *slog.Logger
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option { return func(c *Coordinator) { c.log = l } }

// WithMetrics records signups, logins, sessions and guard rejections on m.
func WithMetrics(m *metrics.Auth) Option { return func(c *Coordinator) { c.metrics = m } }

// WithObserver registers o to hear about every persisted session.
func WithObserver(o SessionObserver) Option { return func(c *Coordinator) { c.observer = o } }

// NewCoordinator wires the core components together.
func NewCoordinator(users repository.UserRepository, hasher *PasswordHasher, signer *Signer, sessions *SessionStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		users:    users,
		hasher:   hasher,
		signer:   signer,
		sessions: sessions,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Sessions exposes the session store, e.g. for the pruner.
func (c *Coordinator) Sessions() *SessionStore { return c.sessions }

// Authenticate verifies an access token and returns its user id. It never
// touches storage, so it keeps working while the database is down.
func (c *Coordinator) Authenticate(accessToken string) (string, error) {
	id, err := c.signer.Verify(accessToken)
	if err != nil {
		c.metrics.GuardRejected("authenticate")
		return "", err
	}
	return id, nil
}

// VerifySession checks that userID holds an unexpired session for
// refreshToken and returns the user. Lookup misses and expired sessions
// both yield ErrSessionInvalid; other storage errors are returned as is.
func (c *Coordinator) VerifySession(ctx context.Context, userID, refreshToken string) (*model.User, error) {
	if userID == "" || refreshToken == "" {
		c.metrics.GuardRejected("verify_session")
		return nil, ErrSessionInvalid
	}
	u, err := c.sessions.FindUserBySessionToken(ctx, userID, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.metrics.GuardRejected("verify_session")
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	for _, s := range u.SessionsWithToken(refreshToken) {
		if !c.sessions.IsExpired(s.ExpiresAt) {
			return u, nil
		}
	}
	c.metrics.GuardRejected("verify_session")
	return nil, ErrSessionInvalid
}

// FindByCredentials returns the user with email if password matches its
// digest. Unknown email and wrong password both yield ErrUnauthorized; a
// context that ends before the comparison runs yields the context error.
func (c *Coordinator) FindByCredentials(ctx context.Context, email, password string) (*model.User, error) {
	u, err := c.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if err := c.hasher.burn(ctx, password); err != nil {
				return nil, err
			}
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	ok, err := c.hasher.Verify(ctx, password, u.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnauthorized
	}
	return u, nil
}

// Signup validates and stores a new user, then opens its first session.
func (c *Coordinator) Signup(ctx context.Context, email, password string) (*Grant, error) {
	u := &model.User{Email: strings.TrimSpace(email)}
	if u.Email == "" {
		c.metrics.Signup("invalid")
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if err := validatePassword(password); err != nil {
		c.metrics.Signup("invalid")
		return nil, err
	}
	u.SetPassword(password)
	if err := c.save(ctx, u); err != nil {
		if errors.Is(err, ErrValidation) {
			c.metrics.Signup("invalid")
		} else {
			c.metrics.Signup("error")
		}
		return nil, err
	}
	g, err := c.grant(ctx, u)
	if err != nil {
		c.metrics.Signup("error")
		return nil, err
	}
	c.metrics.Signup("ok")
	c.log.InfoContext(ctx, "user signed up", "user_id", u.ID)
	return g, nil
}

// Login verifies credentials and opens a new session.
func (c *Coordinator) Login(ctx context.Context, email, password string) (*Grant, error) {
	u, err := c.FindByCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			c.metrics.Login("unauthorized")
		} else {
			c.metrics.Login("error")
		}
		return nil, err
	}
	g, err := c.grant(ctx, u)
	if err != nil {
		c.metrics.Login("error")
		return nil, err
	}
	c.metrics.Login("ok")
	return g, nil
}

// RefreshAccess issues a fresh access token for a user whose session has
// already passed VerifySession.
func (c *Coordinator) RefreshAccess(u *model.User) (AccessToken, error) {
	return c.signer.Issue(u.ID)
}

// ChangePassword replaces the password of userID after re-checking the
// current one. Existing sessions stay valid.
func (c *Coordinator) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := c.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	ok, err := c.hasher.Verify(ctx, current, u.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	u.SetPassword(next)
	if err := c.hasher.HashIfChanged(ctx, u); err != nil {
		return err
	}
	return c.users.UpdatePassword(ctx, u.ID, u.PasswordHash)
}

// save runs the hash-if-changed step and creates the user.
func (c *Coordinator) save(ctx context.Context, u *model.User) error {
	if err := c.hasher.HashIfChanged(ctx, u); err != nil {
		return err
	}
	if err := c.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fmt.Errorf("%w: email already registered", ErrValidation)
		}
		return err
	}
	return nil
}

// grant persists a new session and only then signs an access token.
func (c *Coordinator) grant(ctx context.Context, u *model.User) (*Grant, error) {
	refresh, err := c.sessions.CreateSession(ctx, u)
	if err != nil {
		return nil, err
	}
	c.metrics.SessionCreated()
	if c.observer != nil {
		c.observer.SessionCreated(ctx, u.ID, u.Sessions[len(u.Sessions)-1])
	}
	access, err := c.signer.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &Grant{User: u, AccessToken: access, RefreshToken: refresh}, nil
}

func validatePassword(p string) error {
	if len(p) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}
	if len(p) > MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, MaxPasswordBytes)
	}
	return nil
}
