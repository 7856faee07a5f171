package config

import (
	"fmt"
	"net/url"
	"time"
)

// JWTConfig configures bearer token verification against a JWKS endpoint.
// Only read when AUTH_MODE=jwt.
type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string

	// ClockSkew is the leeway applied to exp and nbf.
	ClockSkew time.Duration
	// JWKSRefreshInterval re-fetches keys even when every kid is cached, to pick up rotation.
	JWKSRefreshInterval time.Duration
	// JWKSMinRefreshInterval bounds refetches triggered by unknown kids.
	JWKSMinRefreshInterval time.Duration

	HTTPTimeout time.Duration
}

func LoadJWTConfigFromEnv() (JWTConfig, error) {
	cfg := JWTConfig{
		Issuer:   getenv("JWT_ISSUER", ""),
		Audience: getenv("JWT_AUDIENCE", ""),
		JWKSURL:  getenv("JWT_JWKS_URL", ""),
	}
	if cfg.Issuer == "" || cfg.Audience == "" || cfg.JWKSURL == "" {
		return JWTConfig{}, fmt.Errorf("missing required env vars: JWT_ISSUER, JWT_AUDIENCE, JWT_JWKS_URL")
	}

	durations := []struct {
		key string
		dst *time.Duration
		def time.Duration
	}{
		{"JWT_CLOCK_SKEW", &cfg.ClockSkew, 30 * time.Second},
		{"JWT_JWKS_REFRESH_INTERVAL", &cfg.JWKSRefreshInterval, 5 * time.Minute},
		{"JWT_JWKS_MIN_REFRESH_INTERVAL", &cfg.JWKSMinRefreshInterval, 10 * time.Second},
		{"JWT_HTTP_TIMEOUT", &cfg.HTTPTimeout, 5 * time.Second},
	}
	for _, d := range durations {
		v, err := getenvDuration(d.key, d.def)
		if err != nil {
			return JWTConfig{}, err
		}
		if v < 0 {
			return JWTConfig{}, fmt.Errorf("%s must not be negative", d.key)
		}
		*d.dst = v
	}

	if err := cfg.validate(); err != nil {
		return JWTConfig{}, err
	}
	return cfg, nil
}

func (c JWTConfig) validate() error {
	u, err := url.Parse(c.JWKSURL)
	if err != nil {
		return fmt.Errorf("JWT_JWKS_URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("JWT_JWKS_URL must be an absolute http(s) URL, got %q", c.JWKSURL)
	}
	if c.HTTPTimeout == 0 {
		return fmt.Errorf("JWT_HTTP_TIMEOUT must be > 0")
	}
	if c.JWKSMinRefreshInterval > c.JWKSRefreshInterval && c.JWKSRefreshInterval > 0 {
		return fmt.Errorf("JWT_JWKS_MIN_REFRESH_INTERVAL (%s) exceeds JWT_JWKS_REFRESH_INTERVAL (%s)",
			c.JWKSMinRefreshInterval, c.JWKSRefreshInterval)
	}
	return nil
}
