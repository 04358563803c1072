package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/task-manager/internal/config"
)

func TestCacheKeyFrom(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	e := echo.New()
	ctx := func(target, uid string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		if uid != "" {
			c.Set(ctxUserID, uid)
		}
		return c
	}

	a := cacheKeyFrom(cfg, ctx("/lists/1/tasks", "u1"))
	assert.True(t, strings.HasPrefix(a, "cache:u:u1:"))
	assert.Equal(t, a, cacheKeyFrom(cfg, ctx("/lists/1/tasks", "u1")))
	assert.NotEqual(t, a, cacheKeyFrom(cfg, ctx("/lists/2/tasks", "u1")), "path params are part of the key")
	assert.NotEqual(t, a, cacheKeyFrom(cfg, ctx("/lists/1/tasks", "u2")), "users never share entries")
	assert.NotEqual(t, a, cacheKeyFrom(cfg, ctx("/lists/1/tasks?x=1", "u1")))

	cfg.KeyStrategy = "route"
	assert.Equal(t, cacheKeyFrom(cfg, ctx("/lists?x=1", "u1")), cacheKeyFrom(cfg, ctx("/lists?x=2", "u1")))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0})
	assert.False(t, ok)
}

func TestDisabledMiddlewarePassThrough(t *testing.T) {
	h := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	for name, mw := range map[string]echo.MiddlewareFunc{
		"cache":       NewRedisCache(config.CacheConfig{Enabled: true}, nil, nil),
		"invalidator": NewCacheInvalidator(config.CacheConfig{Enabled: false}, nil, nil),
		"ratelimit":   NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil),
	} {
		t.Run(name, func(t *testing.T) {
			rec := serve(mw, h, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Header().Get("X-Cache"))
		})
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/users/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/users/login")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}
	assert.Equal(t, "rl:ip:10.0.0.1:route:POST /users/login", buildRateKey(cfg, c))

	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:anon", buildRateKey(cfg, c))
}
