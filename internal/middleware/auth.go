package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager/internal/auth"
)

// Header names of the token contract.
const (
	HeaderAccessToken  = "x-access-token"
	HeaderRefreshToken = "x-refresh-token"
	HeaderUserID       = "_id"
)

// Authenticate rejects requests whose x-access-token is not a valid access
// token and stores the token's user id in the context. It does no I/O.
func Authenticate(coord *auth.Coordinator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := coord.Authenticate(c.Request().Header.Get(HeaderAccessToken))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid access token"})
			}
			c.Set(ctxUserID, id)
			return next(c)
		}
	}
}

// VerifySession rejects requests unless the _id and x-refresh-token headers
// name an unexpired session. On success the user, its id and the refresh
// token are stored in the context.
func VerifySession(coord *auth.Coordinator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header
			token := h.Get(HeaderRefreshToken)
			u, err := coord.VerifySession(c.Request().Context(), h.Get(HeaderUserID), token)
			if err != nil {
				if errors.Is(err, auth.ErrSessionInvalid) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
				}
				return err
			}
			c.Set(ctxUser, u)
			c.Set(ctxUserID, u.ID)
			c.Set(ctxRefreshToken, token)
			return next(c)
		}
	}
}
