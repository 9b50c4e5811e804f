// Package cli holds the start-up steps shared by cmd/expenses and
// cmd/expenses-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"expenses/internal/backend"
	"expenses/internal/config"
	applog "expenses/internal/log"
	"expenses/internal/storage"
)

// SetupLogger builds the process logger at the configured level and makes it
// the slog default.
func SetupLogger(level string) *applog.Logger {
	logger := applog.New(applog.Config{Level: applog.ParseLevel(level)})
	applog.SetDefault(logger)
	return logger
}

// LoadConfig reads .env (a missing file is fine) and the environment, then
// runs validate. The config is returned even when validation fails so the
// caller can still build a logger from it.
func LoadConfig(validate func(*config.Config) error) (*config.Config, error) {
	_ = godotenv.Load()
	cfg := config.Load()
	return cfg, validate(cfg)
}

// OpenStore creates the configured storage backend. The returned cleanup is
// never nil.
func OpenStore(ctx context.Context, logger *applog.Logger, cfg *config.Config) (storage.Store, func(), error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, bc)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", bc.Type, err)
	}
	cleanup := func() {
		if res.Cleanup == nil {
			return
		}
		if err := res.Cleanup(); err != nil {
			logger.ErrorContext(ctx, "Failed to close store", applog.FieldError, err)
		}
	}
	return res.Store, cleanup, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Fatal logs err and exits.
func Fatal(logger *applog.Logger, msg string, err error) {
	logger.Error(msg, applog.FieldError, err)
	os.Exit(1)
}
