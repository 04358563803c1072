package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager/internal/auth"
	"github.com/iliyamo/task-manager/internal/handler"
	mw "github.com/iliyamo/task-manager/internal/middleware"
)

// RegisterUsers registers signup, login, silent refresh and password change.
// Signup and login sit behind the rate limiter.
func RegisterUsers(e *echo.Echo, h *handler.UserHandler, coord *auth.Coordinator, limiter echo.MiddlewareFunc) {
	e.POST("/users", h.Signup, limiter)
	e.POST("/users/login", h.Login, limiter)
	e.GET("/users/me/access-token", h.AccessToken, mw.VerifySession(coord))
	e.PATCH("/users/me/password", h.ChangePassword, mw.Authenticate(coord))
}
