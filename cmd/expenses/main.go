package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/cache"
	"expenses/internal/cli"
	"expenses/internal/config"
	apphttp "expenses/internal/http"
	applog "expenses/internal/log"
	"expenses/internal/services"
)

func main() {
	cfg, err := cli.LoadConfig((*config.Config).Validate)
	logger := cli.SetupLogger(cfg.LogLevel)
	if err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	store, closeStore, err := cli.OpenStore(ctx, logger, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize storage", err)
	}
	defer closeStore()

	// Events are optional; without a broker the app runs standalone.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without events", applog.FieldError, err)
		} else {
			defer client.Close()
			events = client
			logger.Info("AMQP publisher connected", "exchange", cfg.AMQPExchange)
		}
	}

	identity := services.NewIdentityService(store, store, cfg.SessionTTL)
	expenses := services.NewExpenseService(store, events, cfg.SummaryCacheTTL)
	limits := services.NewLimitService(store, store)

	caches := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	for _, c := range expenses.Caches() {
		caches.Register(c)
	}
	caches.StartCleanup(5 * time.Minute)
	defer caches.Stop()

	go identity.RunSweeper(ctx, cfg.SessionSweepInterval)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Logger:              logger,
		Identity:            identity,
		Expenses:            expenses,
		Limits:              limits,
		Store:               store,
		RateLimitPerMinute:  cfg.RateLimitPerMinute,
		SessionCookieSecure: cfg.SessionCookieSecure,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to build HTTP server", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting expenses server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", applog.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
