package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is the lifetime of an access token.
const DefaultAccessTokenTTL = 15 * time.Minute

// AccessToken is a signed JWT together with its expiry.
type AccessToken struct {
	Token     string    // the serialized JWT string
	ExpiresAt time.Time // the UTC expiration time
}

// accessClaims binds the user id. `_id` keeps the claim name existing
// clients decode; `sub` carries the same value for standard tooling.
type accessClaims struct {
	UserID string `json:"_id"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 access tokens with a secret fixed at
// construction. Rotating the secret means building a new Signer, which
// invalidates every outstanding access token.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// SignerOption customizes a Signer.
type SignerOption func(*Signer)

// WithClock replaces time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) { s.now = now }
}

// NewSigner returns a Signer for secret. ttl <= 0 selects
// DefaultAccessTokenTTL.
func NewSigner(secret []byte, ttl time.Duration, opts ...SignerOption) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: empty signing secret")
	}
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	s := &Signer{secret: append([]byte(nil), secret...), ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// TTL returns the lifetime of issued tokens.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Issue builds and signs an access token for userID.
func (s *Signer) Issue(userID string) (AccessToken, error) {
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	claims := accessClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign access token: %w", err)
	}
	return AccessToken{Token: signed, ExpiresAt: exp}, nil
}

// Verify checks signature, algorithm and expiry and returns the user id the
// token was issued for. Every failure is reported as ErrInvalidToken. No
// storage is consulted.
func (s *Signer) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &accessClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}
	id := claims.UserID
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return id, nil
}
