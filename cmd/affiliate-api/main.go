package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maltedev/affiliate-product-fetcher/internal/api"
	"github.com/maltedev/affiliate-product-fetcher/internal/app"
	"github.com/maltedev/affiliate-product-fetcher/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg.Logging, os.Stdout)
	logger = logger.With("service", "affiliate-api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	workersDone := make(chan struct{})
	go func() {
		a.RunWorkers(ctx)
		close(workersDone)
	}()

	handlers := api.NewHandlers(a.Service, a.Saved, a.Jobs, logger).
		WithDefaults(cfg.Scraper.DefaultStore, cfg.Scraper.WalkMax)
	router := api.NewRouter(handlers, api.RouterOptions{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: cfg.Server.AllowCreds,
		Timeout:          cfg.Server.RequestTimeout,
		Metrics:          a.Metrics,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting",
		"addr", server.Addr,
		"storage", cfg.Storage.Backend,
		"jobs", cfg.Jobs.Backend,
		"default_store", cfg.Scraper.DefaultStore,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		stop()
	}

	<-workersDone
	logger.Info("server stopped")
}
