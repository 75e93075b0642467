// Command server boots the issue-board API: it loads configuration,
// opens the store, and serves HTTP until terminated.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/issueboard/server/internal/config"
	"github.com/issueboard/server/internal/httpapi"
	"github.com/issueboard/server/internal/lifecycle"
	"github.com/issueboard/server/internal/logging"
	"github.com/issueboard/server/internal/metrics"
	"github.com/issueboard/server/internal/repository"
	"github.com/issueboard/server/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	// No exporter is registered: spans are created and discarded in place,
	// so request handlers can record them without a collector configured.
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(ctx) //nolint:errcheck

	st, err := store.Open(ctx, store.Config{
		DatabasePath:    cfg.DatabasePath,
		MigrationDir:    cfg.MigrationDir,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	repo := repository.New(st)

	m := metrics.New()
	m.SetSlowThreshold(cfg.SlowQueryThreshold)
	m.SetSlowCallback(func(route string, latency time.Duration, timestamp time.Time) {
		logger.Warn("slow request",
			zap.String("route", route),
			zap.Duration("latency", latency),
			zap.Time("at", timestamp),
		)
	})

	server := httpapi.New(repo, st, logger, m, httpapi.Config{
		APIKey:         cfg.APIKey,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
	})

	logger.Info("starting issue-board server",
		zap.String("addr", cfg.Addr()),
		zap.String("environment", cfg.Environment),
	)

	return lifecycle.Run(ctx, lifecycle.Options{
		Addr:                  cfg.Addr(),
		Handler:               server.Router(),
		Logger:                logger,
		ShutdownTimeout:       cfg.ShutdownTimeout,
		EnableKeepAlive:       cfg.EnableKeepAlive,
		AppURL:                cfg.AppURL,
		KeepAliveEvery:        5 * time.Minute,
		KeepAliveInitialDelay: 30 * time.Second,
	})
}
