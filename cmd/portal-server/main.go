// cmd/portal-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"royalty-portal/internal/common/backend"
	"royalty-portal/internal/common/config"
	"royalty-portal/internal/common/database"
	commonhttp "royalty-portal/internal/common/http"
	"royalty-portal/internal/common/logger"
	"royalty-portal/internal/common/metrics"
	"royalty-portal/internal/common/observability"
	"royalty-portal/internal/server"
	"royalty-portal/internal/session"
)

const purgeInterval = 15 * time.Minute

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting royalty portal...",
		zap.String("environment", cfg.App.Environment),
		zap.String("sessionDriver", cfg.Session.Driver),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Redis: sessions, resource cache, wizard state, oauth claims ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	readiness := map[string]server.Check{"redis": rdb.Ping}

	var store session.Store = session.NewRedisStore(rdb.Client)
	if cfg.Session.Driver == "postgres" {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		if err := pg.Migrate(ctx); err != nil {
			zapLog.Fatal("session schema migration failed", zap.Error(err))
		}
		zapLog.Info("PostgreSQL connected successfully")

		pgStore := session.NewPostgresStore(pg.DB)
		go purgeSessions(ctx, pgStore, log)
		store = pgStore
		readiness["postgres"] = pg.Ping
	}

	// --- Backend client behind the circuit breaker ---
	httpClient := commonhttp.NewClient(config.GetDuration(cfg.Backend.Timeout), commonhttp.BreakerSettings{
		Name:                "royalty-backend",
		MaxRequests:         cfg.Backend.Breaker.MaxRequests,
		Interval:            config.GetDuration(cfg.Backend.Breaker.Interval),
		Timeout:             config.GetDuration(cfg.Backend.Breaker.Timeout),
		ConsecutiveFailures: cfg.Backend.Breaker.ConsecutiveFailures,
		OnStateChange: func(name, from, to string) {
			open := 0.0
			if to == "open" {
				open = 1
			}
			metrics.BreakerState.WithLabelValues(name).Set(open)
			zapLog.Warn("backend circuit breaker changed state",
				zap.String("name", name),
				zap.String("from", from),
				zap.String("to", to),
			)
		},
	})
	api := backend.NewClient(cfg.Backend.BaseURL, httpClient, log)

	srv := server.New(server.Options{
		Config:        cfg,
		Logger:        log,
		Redis:         rdb.Client,
		Sessions:      store,
		Backend:       api,
		Observability: obs,
		Readiness:     readiness,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen()
	}()

	// --- Graceful Shutdown ---
	select {
	case <-ctx.Done():
		zapLog.Info("Shutdown signal received, draining requests...")
	case err := <-errCh:
		if err != nil {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Royalty portal stopped gracefully")
}

// purgeSessions deletes expired postgres sessions until ctx is done.
func purgeSessions(ctx context.Context, store *session.PostgresStore, log logger.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				log.Warn("session purge failed", map[string]interface{}{"error": err.Error()})
				continue
			}
			if n > 0 {
				log.Info("expired sessions purged", map[string]interface{}{"count": n})
			}
		}
	}
}
