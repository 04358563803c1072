// Package auth implements the authentication and session core: password
// hashing, access-token signing, refresh-token sessions and the guards the
// HTTP layer runs before protected operations.
package auth

import "errors"

// Error kinds returned by the core. Details are attached with fmt.Errorf
// and %w, so callers match with errors.Is.
var (
	// ErrInvalidToken is returned for an access token with a bad signature,
	// an unexpected algorithm, a malformed body or a past expiry.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnauthorized is returned for bad login credentials. Unknown email
	// and wrong password are deliberately indistinguishable.
	ErrUnauthorized = errors.New("invalid email or password")
	// ErrSessionInvalid is returned when no unexpired session matches the
	// user id and refresh token.
	ErrSessionInvalid = errors.New("refresh token expired or invalid session")
	// ErrSessionPersist wraps a storage failure while saving a new session.
	// The refresh token generated for it must not be handed out.
	ErrSessionPersist = errors.New("failed to persist session")
	// ErrValidation is returned for input that violates the user schema,
	// including a duplicate email.
	ErrValidation = errors.New("validation failed")
)
