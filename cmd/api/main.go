package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Overland-East-Bay/cashcard-api/internal/adapters/httpapi"
	memcashcardrepo "github.com/Overland-East-Bay/cashcard-api/internal/adapters/memory/cashcardrepo"
	memidempotency "github.com/Overland-East-Bay/cashcard-api/internal/adapters/memory/idempotency"
	postgres "github.com/Overland-East-Bay/cashcard-api/internal/adapters/postgres"
	pgcashcardrepo "github.com/Overland-East-Bay/cashcard-api/internal/adapters/postgres/cashcardrepo"
	pgidempotency "github.com/Overland-East-Bay/cashcard-api/internal/adapters/postgres/idempotency"
	redisadapter "github.com/Overland-East-Bay/cashcard-api/internal/adapters/redis"
	redisidempotency "github.com/Overland-East-Bay/cashcard-api/internal/adapters/redis/idempotency"
	"github.com/Overland-East-Bay/cashcard-api/internal/app/cashcards"
	"github.com/Overland-East-Bay/cashcard-api/internal/platform/auth/identity"
	"github.com/Overland-East-Bay/cashcard-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/Overland-East-Bay/cashcard-api/internal/platform/clock"
	"github.com/Overland-East-Bay/cashcard-api/internal/platform/config"
	cashcardrepoport "github.com/Overland-East-Bay/cashcard-api/internal/ports/out/cashcardrepo"
	idempotencyport "github.com/Overland-East-Bay/cashcard-api/internal/ports/out/idempotency"
)

func main() {
	cfg, err := config.LoadServerConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	logger, err := config.NewLogger(os.Stdout, cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log config: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("api exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.ServerConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gate, err := newGate(cfg)
	if err != nil {
		return fmt.Errorf("principals: %w", err)
	}

	// Auth configuration:
	// - basic: HTTP Basic credentials checked against the principal registry
	// - jwt: RS256 bearer tokens; the verified sub must name a registry principal
	var authMW func(http.Handler) http.Handler
	switch cfg.AuthMode {
	case config.AuthModeJWT:
		jwtCfg, err := config.LoadJWTConfigFromEnv()
		if err != nil {
			return fmt.Errorf("invalid auth config: %w", err)
		}
		authMW = httpapi.NewBearerAuthMiddleware(jwtverifier.New(jwtCfg), gate)
	default:
		authMW = httpapi.NewBasicAuthMiddleware(gate)
	}

	var pool *pgxpool.Pool
	if cfg.StorageBackend == config.BackendPostgres || cfg.IdempotencyBackend == config.BackendPostgres {
		pool, err = postgres.NewPool(ctx, cfg.Database.URL, postgres.PoolOptions{
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return fmt.Errorf("invalid postgres config: %w", err)
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	var cardRepo cashcardrepoport.Repository
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		cardRepo = pgcashcardrepo.NewRepo(pool)
	default:
		if cfg.SeedReferenceData {
			logger.Info("seeding reference cash cards")
			cardRepo = memcashcardrepo.NewReferenceRepo()
		} else {
			cardRepo = memcashcardrepo.NewRepo()
		}
	}

	var idemStore idempotencyport.Store
	switch cfg.IdempotencyBackend {
	case config.BackendPostgres:
		store := pgidempotency.NewStoreWithTTL(pool, cfg.IdempotencyTTL)
		go purgeIdempotencyKeys(ctx, store, time.Hour, logger)
		idemStore = store
	case config.BackendRedis:
		client, err := redisadapter.NewClient(ctx, redisadapter.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer client.Close()
		idemStore = redisidempotency.NewStore(client, cfg.IdempotencyTTL)
	default:
		store := memidempotency.NewStoreWithTTL(cfg.IdempotencyTTL, platformclock.NewSystemClock())
		go purgeIdempotencyKeys(ctx, store, 10*time.Minute, logger)
		idemStore = store
	}

	svc := cashcards.NewServiceWithOptions(cardRepo, cashcards.Options{
		Limits: cashcards.PageLimits{DefaultSize: cfg.PageDefaultSize, MaxSize: cfg.PageMaxSize},
		Logger: logger,
	})
	api := httpapi.NewServerWithLogger(svc, idemStore, logger)

	handler := httpapi.NewRouterWithOptions(
		api,
		httpapi.RouterOptions{AuthMiddleware: authMW, Authorizer: gate, Logger: logger},
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening",
			"port", cfg.Port,
			"auth", cfg.AuthMode,
			"storage", cfg.StorageBackend,
			"idempotency", cfg.IdempotencyBackend,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newGate(cfg config.ServerConfig) (*identity.Gate, error) {
	var (
		reg *identity.Registry
		err error
	)
	if cfg.PrincipalsFile != "" {
		reg, err = identity.LoadRegistryFile(cfg.PrincipalsFile)
	} else {
		slog.Warn("using built-in development principals")
		reg, err = identity.NewDevRegistry()
	}
	if err != nil {
		return nil, err
	}
	return identity.NewGate(reg)
}

type expiredKeyPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// purgeIdempotencyKeys deletes expired idempotency records every interval until ctx is done.
func purgeIdempotencyKeys(ctx context.Context, store expiredKeyPurger, every time.Duration, logger *slog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("purge idempotency keys", "err", err)
				continue
			}
			if n > 0 {
				logger.Info("purged idempotency keys", "rows", n)
			}
		}
	}
}
