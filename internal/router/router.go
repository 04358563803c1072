// Package router builds the Echo instance and registers every route.
package router

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/task-manager/internal/auth"
	"github.com/iliyamo/task-manager/internal/config"
	"github.com/iliyamo/task-manager/internal/handler"
	mw "github.com/iliyamo/task-manager/internal/middleware"
	"github.com/iliyamo/task-manager/internal/repository"
)

// Deps is everything the HTTP layer needs. Registry and Redis may be nil.
type Deps struct {
	Coordinator *auth.Coordinator
	Store       repository.Manager
	Registry    *prometheus.Registry
	Redis       *redis.Client
	RateLimit   config.RateLimitConfig
	Cache       config.CacheConfig
	CORSOrigins []string
	Log         *slog.Logger
}

// New returns an Echo instance with the shared middleware stack and all
// routes registered.
func New(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = slog.New(slog.DiscardHandler)
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(d.Log)

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(d.Log))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(corsConfig(d.CORSOrigins)))

	RegisterRoutes(e, d.Registry)
	RegisterUsers(e, handler.NewUserHandler(d.Coordinator, d.Log), d.Coordinator,
		mw.NewTokenBucket(d.RateLimit, d.Redis, d.Log))
	RegisterLists(e,
		handler.NewListHandler(d.Store.Lists(), d.Store.Tasks(), d.Log),
		handler.NewTaskHandler(d.Store.Lists(), d.Store.Tasks(), d.Log),
		d.Coordinator,
		mw.NewRedisCache(d.Cache, d.Redis, d.Log),
		mw.NewCacheInvalidator(d.Cache, d.Redis, d.Log),
	)
	return e
}

// RegisterRoutes registers the routes that need no authentication.
func RegisterRoutes(e *echo.Echo, reg *prometheus.Registry) {
	e.GET("/", handler.Hello)
	e.GET("/healthz", handler.Health)
	if reg != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}
}

func corsConfig(origins []string) echomw.CORSConfig {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return echomw.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete,
			http.MethodHead, http.MethodOptions, http.MethodPut,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin, "X-Requested-With", echo.HeaderContentType, echo.HeaderAccept,
			mw.HeaderAccessToken, mw.HeaderRefreshToken, mw.HeaderUserID,
		},
		ExposeHeaders: []string{mw.HeaderAccessToken, mw.HeaderRefreshToken},
	}
}

// requestLogger writes one slog line per request. Token headers are never
// logged.
func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURIPath:   true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"path", v.URIPath,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			ctx := c.Request().Context()
			if v.Error != nil {
				log.WarnContext(ctx, "request", append(attrs, "error", v.Error)...)
				return nil
			}
			log.InfoContext(ctx, "request", attrs...)
			return nil
		},
	})
}

// errorHandler renders errors as {"error": ...}. Errors that are not
// echo.HTTPError get a generic 500.
func errorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := "internal error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if s, ok := he.Message.(string); ok {
				msg = s
			} else {
				msg = http.StatusText(code)
			}
		} else {
			log.ErrorContext(c.Request().Context(), "unhandled error", "path", c.Path(), "error", err)
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, echo.Map{"error": msg})
	}
}
