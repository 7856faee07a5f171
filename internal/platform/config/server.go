package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	AuthModeBasic = "basic"
	AuthModeJWT   = "jwt"

	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type DatabaseConfig struct {
	URL      string
	MaxConns int32
	MinConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ServerConfig is the process configuration for cmd/api.
type ServerConfig struct {
	Port string

	AuthMode           string
	PrincipalsFile     string
	DevPrincipals      bool
	StorageBackend     string
	IdempotencyBackend string
	IdempotencyTTL     time.Duration
	SeedReferenceData  bool

	Database DatabaseConfig
	Redis    RedisConfig

	PageDefaultSize int
	PageMaxSize     int

	Log LogConfig
}

func LoadServerConfigFromEnv() (ServerConfig, error) {
	cfg := ServerConfig{
		Port:               getenv("PORT", "8080"),
		AuthMode:           strings.ToLower(getenv("AUTH_MODE", AuthModeBasic)),
		PrincipalsFile:     os.Getenv("PRINCIPALS_FILE"),
		StorageBackend:     strings.ToLower(getenv("STORAGE_BACKEND", BackendMemory)),
		IdempotencyBackend: strings.ToLower(getenv("IDEMPOTENCY_BACKEND", BackendMemory)),
		IdempotencyTTL:     24 * time.Hour,
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		PageDefaultSize: 20,
		PageMaxSize:     100,
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
	}

	var err error
	if cfg.DevPrincipals, err = getenvBool("AUTH_DEV_PRINCIPALS", false); err != nil {
		return ServerConfig{}, err
	}
	if cfg.SeedReferenceData, err = getenvBool("SEED_REFERENCE_DATA", false); err != nil {
		return ServerConfig{}, err
	}
	if cfg.IdempotencyTTL, err = getenvDuration("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return ServerConfig{}, err
	}
	if cfg.Redis.DB, err = getenvInt("REDIS_DB", 0); err != nil {
		return ServerConfig{}, err
	}
	if cfg.PageDefaultSize, err = getenvInt("PAGE_DEFAULT_SIZE", cfg.PageDefaultSize); err != nil {
		return ServerConfig{}, err
	}
	if cfg.PageMaxSize, err = getenvInt("PAGE_MAX_SIZE", cfg.PageMaxSize); err != nil {
		return ServerConfig{}, err
	}
	if cfg.Database.MaxConns, err = getenvInt32("DB_MAX_CONNS", 0); err != nil {
		return ServerConfig{}, err
	}
	if cfg.Database.MinConns, err = getenvInt32("DB_MIN_CONNS", 0); err != nil {
		return ServerConfig{}, err
	}

	if err := cfg.validate(); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func (c ServerConfig) validate() error {
	switch c.AuthMode {
	case AuthModeBasic, AuthModeJWT:
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeBasic, AuthModeJWT, c.AuthMode)
	}
	if c.PrincipalsFile == "" && !c.DevPrincipals {
		return fmt.Errorf("PRINCIPALS_FILE is required (or set AUTH_DEV_PRINCIPALS=true for local use)")
	}
	switch c.StorageBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
		if c.SeedReferenceData {
			return fmt.Errorf("SEED_REFERENCE_DATA applies only to STORAGE_BACKEND=memory")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendMemory, BackendPostgres, c.StorageBackend)
	}
	switch c.IdempotencyBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when IDEMPOTENCY_BACKEND=postgres")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when IDEMPOTENCY_BACKEND=redis")
		}
	default:
		return fmt.Errorf("IDEMPOTENCY_BACKEND must be memory, postgres or redis, got %q", c.IdempotencyBackend)
	}
	if c.PageDefaultSize <= 0 || c.PageMaxSize <= 0 {
		return fmt.Errorf("PAGE_DEFAULT_SIZE and PAGE_MAX_SIZE must be > 0")
	}
	if c.PageDefaultSize > c.PageMaxSize {
		return fmt.Errorf("PAGE_DEFAULT_SIZE (%d) exceeds PAGE_MAX_SIZE (%d)", c.PageDefaultSize, c.PageMaxSize)
	}
	if c.Database.MaxConns < 0 || c.Database.MinConns < 0 {
		return fmt.Errorf("DB_MAX_CONNS and DB_MIN_CONNS must be >= 0")
	}
	return nil
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvBool(k string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", k, err)
	}
	return b, nil
}

func getenvInt(k string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", k, err)
	}
	return n, nil
}

func getenvInt32(k string, def int32) (int32, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s must be a 32-bit integer: %w", k, err)
	}
	return int32(n), nil
}

func getenvDuration(k string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration (e.g. 24h): %w", k, err)
	}
	return d, nil
}
