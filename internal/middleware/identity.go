package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager/internal/model"
)

// Context keys set by the auth guards.
const (
	ctxUserID       = "user_id"
	ctxRefreshToken = "refresh_token"
	ctxUser         = "user"
)

// UserID returns the id stored by Authenticate or VerifySession, or "" when
// the request passed neither guard.
func UserID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok {
		return s
	}
	return ""
}

// SessionUser returns the user loaded by VerifySession.
func SessionUser(c echo.Context) *model.User {
	u, _ := c.Get(ctxUser).(*model.User)
	return u
}

// RefreshToken returns the refresh token accepted by VerifySession.
func RefreshToken(c echo.Context) string {
	s, _ := c.Get(ctxRefreshToken).(string)
	return s
}

// identity is the user segment of rate limit and cache keys.
func identity(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
