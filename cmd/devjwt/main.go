package main

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Overland-East-Bay/cashcard-api/internal/platform/auth/devtoken"
)

// Dev-only RS256 issuer for running cmd/api with AUTH_MODE=jwt locally.
// It serves a JWKS document and mints tokens on request; it is not an OIDC provider.

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	port := getenv("PORT", "5556")
	cfg := issuerConfig{
		Issuer:   getenv("ISSUER", "http://devjwt:5556"),
		Audience: getenv("AUDIENCE", "cashcards"),
		TTL:      getenvDuration("TTL", 30*time.Minute),
	}

	key, err := devtoken.GenerateKey(getenv("KID", "dev-kid-1"))
	if err != nil {
		logger.Error("generate key", "err", err)
		os.Exit(1)
	}
	handler, err := newHandler(key, cfg, time.Now, logger)
	if err != nil {
		logger.Error("build handler", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("devjwt listening", "port", port, "iss", cfg.Issuer, "aud", cfg.Audience, "kid", key.Kid, "ttl", cfg.TTL)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("listen", "err", err)
		os.Exit(1)
	}
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
