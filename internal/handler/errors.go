package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager/internal/auth"
	"github.com/iliyamo/task-manager/internal/repository"
)

// authError maps core errors onto responses. Validation messages are safe to
// show; anything unexpected is logged and answered with a generic 500.
func authError(c echo.Context, log *slog.Logger, err error) error {
	switch {
	case errors.Is(err, auth.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, auth.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, auth.ErrInvalidToken):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid access token"})
	case errors.Is(err, auth.ErrSessionInvalid):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
	}
	log.ErrorContext(c.Request().Context(), "request failed", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// storeError maps repository errors for list and task routes.
func storeError(c echo.Context, log *slog.Logger, err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": what + " not found"})
	}
	log.ErrorContext(c.Request().Context(), "store failed", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func discard(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return log
}
