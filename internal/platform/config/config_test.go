package config

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearServerEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "AUTH_MODE", "AUTH_DEV_PRINCIPALS", "PRINCIPALS_FILE", "STORAGE_BACKEND", "DATABASE_URL",
		"DB_MAX_CONNS", "DB_MIN_CONNS", "IDEMPOTENCY_BACKEND", "IDEMPOTENCY_TTL", "REDIS_ADDR", "REDIS_DB",
		"PAGE_DEFAULT_SIZE", "PAGE_MAX_SIZE", "SEED_REFERENCE_DATA", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadServerConfigFromEnv_Defaults(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("AUTH_DEV_PRINCIPALS", "true")

	cfg, err := LoadServerConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, AuthModeBasic, cfg.AuthMode)
	require.Equal(t, BackendMemory, cfg.StorageBackend)
	require.Equal(t, BackendMemory, cfg.IdempotencyBackend)
	require.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	require.Equal(t, 20, cfg.PageDefaultSize)
	require.Equal(t, 100, cfg.PageMaxSize)
	require.False(t, cfg.SeedReferenceData)
}

func TestLoadServerConfigFromEnv_Overrides(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("AUTH_MODE", "JWT")
	t.Setenv("PRINCIPALS_FILE", "/etc/cashcards/principals.yaml")
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/cashcards")
	t.Setenv("DB_MAX_CONNS", "8")
	t.Setenv("IDEMPOTENCY_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("IDEMPOTENCY_TTL", "1h")
	t.Setenv("PAGE_DEFAULT_SIZE", "5")
	t.Setenv("PAGE_MAX_SIZE", "10")
	t.Setenv("SEED_REFERENCE_DATA", "1")

	cfg, err := LoadServerConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, AuthModeJWT, cfg.AuthMode)
	require.Equal(t, BackendPostgres, cfg.StorageBackend)
	require.Equal(t, int32(8), cfg.Database.MaxConns)
	require.Equal(t, BackendRedis, cfg.IdempotencyBackend)
	require.Equal(t, 2, cfg.Redis.DB)
	require.Equal(t, time.Hour, cfg.IdempotencyTTL)
	require.Equal(t, 5, cfg.PageDefaultSize)
	require.Equal(t, 10, cfg.PageMaxSize)
	require.True(t, cfg.SeedReferenceData)
}

func TestLoadServerConfigFromEnv_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"no principals":      {},
		"bad auth mode":      {"AUTH_DEV_PRINCIPALS": "true", "AUTH_MODE": "digest"},
		"postgres no dsn":    {"AUTH_DEV_PRINCIPALS": "true", "STORAGE_BACKEND": "postgres"},
		"redis no addr":      {"AUTH_DEV_PRINCIPALS": "true", "IDEMPOTENCY_BACKEND": "redis"},
		"bad backend":        {"AUTH_DEV_PRINCIPALS": "true", "STORAGE_BACKEND": "sqlite"},
		"bad bool":           {"AUTH_DEV_PRINCIPALS": "maybe"},
		"bad ttl":            {"AUTH_DEV_PRINCIPALS": "true", "IDEMPOTENCY_TTL": "soon"},
		"default over max":   {"AUTH_DEV_PRINCIPALS": "true", "PAGE_DEFAULT_SIZE": "50", "PAGE_MAX_SIZE": "10"},
		"non-positive sizes": {"AUTH_DEV_PRINCIPALS": "true", "PAGE_MAX_SIZE": "0"},
		"seed on postgres":   {"AUTH_DEV_PRINCIPALS": "true", "STORAGE_BACKEND": "postgres", "DATABASE_URL": "postgres://localhost/cashcards", "SEED_REFERENCE_DATA": "true"},
		"max conns overflow": {"AUTH_DEV_PRINCIPALS": "true", "DB_MAX_CONNS": "4294967297"},
		"min conns overflow": {"AUTH_DEV_PRINCIPALS": "true", "DB_MIN_CONNS": "2147483648"},
		"negative conns":     {"AUTH_DEV_PRINCIPALS": "true", "DB_MAX_CONNS": "-1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearServerEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadServerConfigFromEnv()
			require.Error(t, err)
		})
	}
}

func clearJWTEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"JWT_ISSUER", "JWT_AUDIENCE", "JWT_JWKS_URL", "JWT_CLOCK_SKEW",
		"JWT_JWKS_REFRESH_INTERVAL", "JWT_JWKS_MIN_REFRESH_INTERVAL", "JWT_HTTP_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadJWTConfigFromEnv(t *testing.T) {
	clearJWTEnv(t)
	_, err := LoadJWTConfigFromEnv()
	require.Error(t, err)

	t.Setenv("JWT_ISSUER", "https://issuer.test")
	t.Setenv("JWT_AUDIENCE", "cashcards")
	t.Setenv("JWT_JWKS_URL", "https://issuer.test/.well-known/jwks.json")
	t.Setenv("JWT_CLOCK_SKEW", "5s")
	cfg, err := LoadJWTConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, cfg.ClockSkew)
	require.Equal(t, 5*time.Minute, cfg.JWKSRefreshInterval)
	require.Equal(t, 10*time.Second, cfg.JWKSMinRefreshInterval)
	require.Equal(t, 5*time.Second, cfg.HTTPTimeout)
}

func TestLoadJWTConfigFromEnv_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"relative jwks url": {"JWT_JWKS_URL": "/jwks.json"},
		"bad scheme":        {"JWT_JWKS_URL": "ftp://issuer.test/jwks.json"},
		"bad duration":      {"JWT_CLOCK_SKEW": "soon"},
		"negative skew":     {"JWT_CLOCK_SKEW": "-1s"},
		"zero timeout":      {"JWT_HTTP_TIMEOUT": "0s"},
		"min above refresh": {"JWT_JWKS_REFRESH_INTERVAL": "10s", "JWT_JWKS_MIN_REFRESH_INTERVAL": "1m"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearJWTEnv(t)
			t.Setenv("JWT_ISSUER", "https://issuer.test")
			t.Setenv("JWT_AUDIENCE", "cashcards")
			t.Setenv("JWT_JWKS_URL", "https://issuer.test/.well-known/jwks.json")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadJWTConfigFromEnv()
			require.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLogger(&buf, LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	logger.Debug("hello", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "hello", line["msg"])
	require.Equal(t, "v", line["k"])

	buf.Reset()
	logger, err = NewLogger(&buf, LogConfig{Level: "warn", Format: "text"})
	require.NoError(t, err)
	logger.Info("dropped")
	require.Zero(t, buf.Len())

	_, err = NewLogger(&buf, LogConfig{Level: "loud"})
	require.Error(t, err)
	_, err = NewLogger(&buf, LogConfig{Format: "xml"})
	require.Error(t, err)
}
