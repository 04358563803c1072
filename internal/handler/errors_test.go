package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/task-manager/internal/auth"
	"github.com/iliyamo/task-manager/internal/repository"
)

func TestAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"validation", fmt.Errorf("%w: email is required", auth.ErrValidation), http.StatusBadRequest, `{"error":"validation failed: email is required"}`},
		{"unauthorized", auth.ErrUnauthorized, http.StatusUnauthorized, `{"error":"invalid credentials"}`},
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized, `{"error":"invalid access token"}`},
		{"invalid session", auth.ErrSessionInvalid, http.StatusUnauthorized, `{"error":"invalid session"}`},
		{"persist", fmt.Errorf("%w: %w", auth.ErrSessionPersist, errors.New("db down")), http.StatusInternalServerError, `{"error":"internal error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			_ = authError(c, discard(nil), tt.err)
			assert.Equal(t, tt.code, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestStoreError(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = storeError(c, discard(nil), repository.ErrNotFound, "list")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"list not found"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	c = echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = storeError(c, discard(nil), errors.New("boom"), "task")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHello(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	assert.NoError(t, Hello(c))
	assert.JSONEq(t, `{"message":"Hello World!!!"}`, rec.Body.String())
}
