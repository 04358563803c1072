package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager/internal/auth"
	"github.com/iliyamo/task-manager/internal/handler"
	mw "github.com/iliyamo/task-manager/internal/middleware"
)

// RegisterLists registers list and task CRUD. Every route requires a valid
// access token; reads go through the per-user cache and writes invalidate it.
func RegisterLists(e *echo.Echo, l *handler.ListHandler, t *handler.TaskHandler, coord *auth.Coordinator, cache, invalidate echo.MiddlewareFunc) {
	g := e.Group("/lists", mw.Authenticate(coord), invalidate)

	g.GET("", l.List, cache)
	g.POST("", l.Create)
	g.PATCH("/:id", l.Update)
	g.DELETE("/:id", l.Delete)

	g.GET("/:listId/tasks", t.List, cache)
	g.GET("/:listId/tasks/:taskId", t.Get, cache)
	g.POST("/:listId/tasks", t.Create)
	g.PATCH("/:listId/tasks/:taskId", t.Update)
	g.DELETE("/:listId/tasks/:taskId", t.Delete)
}
