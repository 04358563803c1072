package model

// User is an account that owns lists and holds refresh-token sessions. The
// ID is assigned by the store on creation and the email is unique. Only the
// bcrypt digest of the password is kept, and Sessions holds one entry per
// login. The password and sessions never leave the server: both are
// excluded from JSON so handlers can return a User directly.
type User struct {
	ID           string    `json:"_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Sessions     []Session `json:"-"`

	// pending plaintext set by SetPassword and cleared once hashed
	password      string
	passwordDirty bool
}

// Session pairs a refresh token with its absolute expiry in epoch seconds.
// An expired session may still be stored but is never valid.
type Session struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// SetPassword records a new plaintext password and marks it for hashing.
// The user cannot be persisted until the pending password has been hashed.
func (u *User) SetPassword(plain string) {
	u.password = plain
	u.passwordDirty = true
}

// PendingPassword returns the plaintext set by SetPassword, if any.
func (u *User) PendingPassword() (string, bool) {
	return u.password, u.passwordDirty
}

// PasswordDirty reports whether a plaintext password is waiting to be hashed.
func (u *User) PasswordDirty() bool { return u.passwordDirty }

// ApplyPasswordHash stores digest as the password hash and drops the pending
// plaintext.
func (u *User) ApplyPasswordHash(digest string) {
	u.PasswordHash = digest
	u.password = ""
	u.passwordDirty = false
}

// SessionsWithToken returns every stored session carrying token.
func (u *User) SessionsWithToken(token string) []Session {
	var out []Session
	for _, s := range u.Sessions {
		if s.Token == token {
			out = append(out, s)
		}
	}
	return out
}
