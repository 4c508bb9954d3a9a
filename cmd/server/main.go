package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"

	"wordvault-go/config"
	"wordvault-go/internal/api"
	"wordvault-go/internal/cache"
	"wordvault-go/internal/messaging"
	"wordvault-go/internal/metrics"
	"wordvault-go/internal/scheduler"
	"wordvault-go/internal/storage"
	"wordvault-go/internal/user"
	"wordvault-go/internal/word"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg.Environment)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store: migrations first, then the bounded pool every service shares.
	if err := storage.Migrate(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	pool, err := storage.NewPool(storage.PoolConfig{
		URL:            cfg.DatabaseURL,
		MinConns:       cfg.DBMinConns,
		MaxConns:       cfg.DBMaxConns,
		AcquireTimeout: cfg.DBAcquireTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("opening pool: %w", err)
	}
	defer pool.Close()

	guard := storage.NewGuard()
	users := user.NewService(pool, logger)
	words := word.NewService(pool, guard, logger)

	search, err := cache.New(cfg.RedisURL, cfg.SearchCacheTTL, logger)
	if err != nil {
		return fmt.Errorf("opening redis: %w", err)
	}
	defer search.Close()
	if err := search.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, search cache disabled at startup", "error", err)
	}

	broker, err := messaging.Dial(cfg.RabbitURL, cfg.EventQueue)
	if err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer broker.Close()

	registry := messaging.NewRegistry()
	handlers := messaging.NewHandlers(users, words, logger)
	if err := handlers.RegisterAll(registry); err != nil {
		return fmt.Errorf("configuring dispatch: %w", err)
	}

	publisher := messaging.NewPublisher(broker, logger)

	promRegistry := prometheus.NewRegistry()
	metrics.MustRegister(promRegistry)

	deliveries, err := broker.Consume(ctx)
	if err != nil {
		return fmt.Errorf("opening consumer stream: %w", err)
	}

	consumer := messaging.NewConsumer(registry, logger)
	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- consumer.Run(ctx, deliveries)
	}()
	logger.Info("consumer started", "queue", cfg.EventQueue)

	sweeper := scheduler.New(users, words, logger)
	if err := sweeper.Start(cfg.ReminderInterval); err != nil {
		return fmt.Errorf("starting reminder sweep: %w", err)
	}
	defer sweeper.Stop()

	apiHandler := api.NewHandler(users, words, publisher, search, pool, promRegistry, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: apiHandler.Routes(),
	}

	serverDone := make(chan error, 1)
	go func() {
		logger.Info("http server started", "addr", server.Addr)
		serverDone <- server.ListenAndServe()
	}()

	consumerStopped := false
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverDone:
		return fmt.Errorf("http server: %w", err)
	case err := <-consumerDone:
		consumerStopped = true
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("consumer: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}

	// The consumer acks its in-flight message inside Handle before
	// returning, so waiting on it here lets that work finish.
	if !consumerStopped {
		select {
		case <-consumerDone:
		case <-shutdownCtx.Done():
			logger.Warn("consumer did not stop in time")
		}
	}

	return nil
}

func newLogger(environment string) *slog.Logger {
	if environment == "development" {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
