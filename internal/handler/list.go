package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	mw "github.com/iliyamo/task-manager/internal/middleware"
	"github.com/iliyamo/task-manager/internal/model"
	"github.com/iliyamo/task-manager/internal/repository"
)

// ListHandler serves the caller's lists. Every route runs behind
// Authenticate; a list owned by someone else is reported as not found.
type ListHandler struct {
	Lists repository.ListRepository
	Tasks repository.TaskRepository
	Log   *slog.Logger
}

func NewListHandler(lists repository.ListRepository, tasks repository.TaskRepository, log *slog.Logger) *ListHandler {
	return &ListHandler{Lists: lists, Tasks: tasks, Log: discard(log)}
}

type listReq struct {
	Title *string `json:"title"`
}

func (h *ListHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	lists, err := h.Lists.ListByUser(ctx, mw.UserID(c))
	if err != nil {
		return storeError(c, h.Log, err, "list")
	}
	return c.JSON(http.StatusOK, lists)
}

func (h *ListHandler) Create(c echo.Context) error {
	var req listReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	l := &model.List{Title: strings.TrimSpace(*req.Title), UserID: mw.UserID(c)}
	if err := h.Lists.Create(ctx, l); err != nil {
		return storeError(c, h.Log, err, "list")
	}
	return c.JSON(http.StatusOK, l)
}

func (h *ListHandler) Update(c echo.Context) error {
	var req listReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	patch := model.ListPatch{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "title must not be empty"})
		}
		patch.Title = &title
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Lists.Update(ctx, c.Param("id"), mw.UserID(c), patch); err != nil {
		return storeError(c, h.Log, err, "list")
	}
	return c.JSON(http.StatusOK, echo.Map{"status": http.StatusOK, "message": "Updated successfully!"})
}

// Delete removes the list and then every task in it. A failure while
// deleting the tasks is logged; the list is already gone.
func (h *ListHandler) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	removed, err := h.Lists.Delete(ctx, c.Param("id"), mw.UserID(c))
	if err != nil {
		return storeError(c, h.Log, err, "list")
	}
	if n, err := h.Tasks.DeleteByList(ctx, removed.ID); err != nil {
		h.Log.WarnContext(ctx, "delete tasks of removed list failed", "list_id", removed.ID, "error", err)
	} else {
		h.Log.DebugContext(ctx, "removed list", "list_id", removed.ID, "tasks", n)
	}
	return c.JSON(http.StatusOK, removed)
}
