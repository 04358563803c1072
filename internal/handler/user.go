package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager/internal/auth"
	mw "github.com/iliyamo/task-manager/internal/middleware"
)

// UserHandler serves signup, login, silent refresh and password change.
type UserHandler struct {
	Auth *auth.Coordinator
	Log  *slog.Logger
}

func NewUserHandler(coord *auth.Coordinator, log *slog.Logger) *UserHandler {
	return &UserHandler{Auth: coord, Log: discard(log)}
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// setTokenHeaders puts both credentials of a grant on the response.
func setTokenHeaders(c echo.Context, g *auth.Grant) {
	h := c.Response().Header()
	h.Set(mw.HeaderRefreshToken, g.RefreshToken)
	h.Set(mw.HeaderAccessToken, g.AccessToken.Token)
}

// Signup creates the user and answers with the user body and both token
// headers.
func (h *UserHandler) Signup(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	g, err := h.Auth.Signup(ctx, req.Email, req.Password)
	if err != nil {
		return authError(c, h.Log, err)
	}
	setTokenHeaders(c, g)
	return c.JSON(http.StatusOK, g.User)
}

// Login verifies the credentials and opens a new session.
func (h *UserHandler) Login(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	g, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return authError(c, h.Log, err)
	}
	setTokenHeaders(c, g)
	return c.JSON(http.StatusOK, g.User)
}

// AccessToken issues a new access token. It runs behind VerifySession.
func (h *UserHandler) AccessToken(c echo.Context) error {
	u := mw.SessionUser(c)
	if u == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
	}
	tok, err := h.Auth.RefreshAccess(u)
	if err != nil {
		return authError(c, h.Log, err)
	}
	c.Response().Header().Set(mw.HeaderAccessToken, tok.Token)
	return c.JSON(http.StatusOK, echo.Map{"accessToken": tok.Token})
}

// ChangePassword runs behind Authenticate.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Auth.ChangePassword(ctx, mw.UserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		return authError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
