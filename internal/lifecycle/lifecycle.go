// Package lifecycle orchestrates process startup and graceful shutdown:
// serving HTTP, watching for SIGINT/SIGTERM, and an optional keepalive
// self-ping, all under one cancellation context.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configures Run.
type Options struct {
	Addr            string
	Handler         http.Handler
	Logger          *zap.Logger
	ShutdownTimeout time.Duration

	// EnableKeepAlive, when true, pings AppURL's health endpoint on an
	// interval for the lifetime of the process, to keep platforms that idle
	// out single-dyno deployments from spinning the process down.
	EnableKeepAlive       bool
	AppURL                string
	KeepAliveEvery        time.Duration
	KeepAliveInitialDelay time.Duration

	// ReadyAddr, if non-nil, receives the listener's actual bound address
	// once Serve is about to start. Used by tests that bind to ":0".
	ReadyAddr chan<- string
}

// Run starts the HTTP server and blocks until it exits, either because
// ctx's parent signal fires or the server itself fails. It always returns
// after the listener is fully closed.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:    opts.Addr,
		Handler: opts.Handler,
	}

	listener, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", opts.Addr, err)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("server listening", zap.String("addr", listener.Addr().String()))
		if opts.ReadyAddr != nil {
			opts.ReadyAddr <- listener.Addr().String()
		}
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownTimeout := opts.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 10 * time.Second
		}

		logger.Info("shutdown signal received", zap.Duration("timeout", shutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if opts.EnableKeepAlive && opts.AppURL != "" {
		group.Go(func() error {
			runKeepAlive(groupCtx, logger, opts.AppURL, opts.KeepAliveEvery, opts.KeepAliveInitialDelay)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// runKeepAlive waits initialDelay, then pings url's /api/health endpoint
// immediately and every interval thereafter until ctx is done.
func runKeepAlive(ctx context.Context, logger *zap.Logger, url string, every, initialDelay time.Duration) {
	if every <= 0 {
		every = 5 * time.Minute
	}

	target := strings.TrimRight(url, "/") + "/api/health"
	client := &http.Client{Timeout: 10 * time.Second}

	ping := func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			logger.Warn("keepalive request build failed", zap.Error(err))
			return
		}
		resp, err := client.Do(req)
		if err != nil {
			logger.Warn("keepalive ping failed", zap.Error(err))
			return
		}
		resp.Body.Close()
		logger.Debug("keepalive ping sent", zap.Int("status", resp.StatusCode))
	}

	if initialDelay > 0 {
		timer := time.NewTimer(initialDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	ping()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ping()
		}
	}
}
