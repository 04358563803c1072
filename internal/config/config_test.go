package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := Load()
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, "TaskManager", cfg.MongoDB)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 10*24*time.Hour, cfg.RefreshTTL())
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Zero(t, cfg.PruneInterval)
	assert.False(t, cfg.AuditEnabled)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("STORE_DRIVER", "MySQL")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "5")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "1")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("SESSION_PRUNE_INTERVAL", "1h")
	t.Setenv("AUDIT_ENABLED", "yes")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test ,")

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, DriverMySQL, cfg.StoreDriver)
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 24*time.Hour, cfg.RefreshTTL())
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, time.Hour, cfg.PruneInterval)
	assert.True(t, cfg.AuditEnabled)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestEnvHelpers_InvalidFallBack(t *testing.T) {
	t.Setenv("X_INT", "abc")
	t.Setenv("X_DUR", "soon")
	t.Setenv("X_BOOL", "maybe")

	assert.Equal(t, 7, envInt("X_INT", 7))
	assert.Equal(t, time.Second, envDur("X_DUR", time.Second))
	assert.True(t, envBool("X_BOOL", true))
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "10s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 50*time.Second, cfg.TTL)
	assert.Equal(t, "ip_route", cfg.KeyStrategy)

	t.Setenv("RATE_LIMIT_BURST", "25")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	cfg = LoadRateLimitConfig()
	assert.Equal(t, 25, cfg.Capacity)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	cfg := LoadCacheConfig()
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.False(t, cfg.Methods["POST"])
	assert.Equal(t, 30*time.Second, cfg.TTL)
}

func TestRedis(t *testing.T) {
	t.Setenv("REDIS_HOST", "127.0.0.1")
	t.Setenv("REDIS_PORT", "1")
	cfg := LoadRedisConfig()
	require.Equal(t, "127.0.0.1:1", cfg.Addr)

	assert.Nil(t, NewRedisClient(context.Background(), cfg))
}
