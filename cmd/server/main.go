package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/richardliu001/payment-intents/internal/config"
	"github.com/richardliu001/payment-intents/internal/database"
	"github.com/richardliu001/payment-intents/internal/logger"
	"github.com/richardliu001/payment-intents/internal/outbox"
	"github.com/richardliu001/payment-intents/internal/repo"
	"github.com/richardliu001/payment-intents/internal/service"
	httptransport "github.com/richardliu001/payment-intents/internal/transport/http"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup always happens.
func run(ctx context.Context) error {
	// 1. load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. init logger
	log, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. postgres pool
	pool, err := database.Open(cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer pool.Close()
	if err := pool.Migrate(); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	// 4. repo & services
	repository := repo.NewRepository(pool.Gorm(), log)
	intents := service.NewPaymentIntentService(repository, outbox.NewWriter(repository), log)
	coordinator := service.NewIdempotencyCoordinator(repository, service.CreatePaymentIntentEndpoint, log)

	// 5. gin router
	handler := httptransport.NewHandler(intents, coordinator, pool, log)
	router := httptransport.NewRouter(handler, cfg.CORS, log)

	// 6. serve until signalled, then drain
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: router}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("payment-intents server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
