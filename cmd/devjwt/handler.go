package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Overland-East-Bay/cashcard-api/internal/platform/auth/devtoken"
)

type issuerConfig struct {
	Issuer   string
	Audience string
	TTL      time.Duration
}

type tokenResponse struct {
	Token string `json:"token"`
	Sub   string `json:"sub"`
	Iss   string `json:"iss"`
	Aud   string `json:"aud"`
	Exp   int64  `json:"exp"`
}

// notBeforeSkew backdates nbf so a token is usable immediately on a slightly slow host.
const notBeforeSkew = 5 * time.Second

func newHandler(key devtoken.Key, cfg issuerConfig, now func() time.Time, logger *slog.Logger) (http.Handler, error) {
	jwksJSON, err := devtoken.MarshalJWKS(key)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/.well-known/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(jwksJSON)
	})

	// GET /token?sub=sarah1
	r.Get("/token", func(w http.ResponseWriter, r *http.Request) {
		sub := strings.TrimSpace(r.URL.Query().Get("sub"))
		if sub == "" {
			http.Error(w, "missing sub", http.StatusBadRequest)
			return
		}

		issued := now().UTC()
		nbf := issued.Add(-notBeforeSkew)
		token, err := devtoken.Mint(key, devtoken.Claims{
			Issuer:    cfg.Issuer,
			Audience:  []string{cfg.Audience},
			Subject:   sub,
			IssuedAt:  issued,
			TTL:       cfg.TTL,
			NotBefore: &nbf,
		})
		if err != nil {
			logger.ErrorContext(r.Context(), "mint token", "err", err, "request_id", middleware.GetReqID(r.Context()))
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(tokenResponse{
			Token: token,
			Sub:   sub,
			Iss:   cfg.Issuer,
			Aud:   cfg.Audience,
			Exp:   issued.Add(cfg.TTL).Unix(),
		})
	})
	return r, nil
}
