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

// TaskHandler serves tasks under /lists/:listId. Each request first checks
// that the caller owns the list.
type TaskHandler struct {
	Lists repository.ListRepository
	Tasks repository.TaskRepository
	Log   *slog.Logger
}

func NewTaskHandler(lists repository.ListRepository, tasks repository.TaskRepository, log *slog.Logger) *TaskHandler {
	return &TaskHandler{Lists: lists, Tasks: tasks, Log: discard(log)}
}

type taskReq struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

// ownedList returns the list in the path if the caller owns it.
func (h *TaskHandler) ownedList(ctx context.Context, c echo.Context) (*model.List, error) {
	return h.Lists.GetByIDAndUser(ctx, c.Param("listId"), mw.UserID(c))
}

func (h *TaskHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	l, err := h.ownedList(ctx, c)
	if err != nil {
		return storeError(c, h.Log, err, "list")
	}
	tasks, err := h.Tasks.ListByList(ctx, l.ID)
	if err != nil {
		return storeError(c, h.Log, err, "task")
	}
	return c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	l, err := h.ownedList(ctx, c)
	if err != nil {
		return storeError(c, h.Log, err, "list")
	}
	t, err := h.Tasks.Get(ctx, c.Param("taskId"), l.ID)
	if err != nil {
		return storeError(c, h.Log, err, "task")
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TaskHandler) Create(c echo.Context) error {
	var req taskReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	l, err := h.ownedList(ctx, c)
	if err != nil {
		return storeError(c, h.Log, err, "list")
	}
	t := &model.Task{ListID: l.ID, Title: strings.TrimSpace(*req.Title)}
	if req.Completed != nil {
		t.Completed = *req.Completed
	}
	if err := h.Tasks.Create(ctx, t); err != nil {
		return storeError(c, h.Log, err, "task")
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TaskHandler) Update(c echo.Context) error {
	var req taskReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	patch := model.TaskPatch{Completed: req.Completed}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "title must not be empty"})
		}
		patch.Title = &title
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	l, err := h.ownedList(ctx, c)
	if err != nil {
		return storeError(c, h.Log, err, "list")
	}
	if _, err := h.Tasks.Update(ctx, c.Param("taskId"), l.ID, patch); err != nil {
		return storeError(c, h.Log, err, "task")
	}
	return c.JSON(http.StatusOK, echo.Map{"status": http.StatusOK, "message": "Task updated successfully!"})
}

func (h *TaskHandler) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	l, err := h.ownedList(ctx, c)
	if err != nil {
		return storeError(c, h.Log, err, "list")
	}
	removed, err := h.Tasks.Delete(ctx, c.Param("taskId"), l.ID)
	if err != nil {
		return storeError(c, h.Log, err, "task")
	}
	return c.JSON(http.StatusOK, removed)
}
