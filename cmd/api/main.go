package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apiconfig "pnl_forecast/pkg/api/config"
	"pnl_forecast/pkg/api/forecast"
	"pnl_forecast/pkg/core/config"
	"pnl_forecast/pkg/core/logger"
	"pnl_forecast/pkg/core/metrics"
	"pnl_forecast/pkg/core/projection"
	"pnl_forecast/pkg/core/ratelimit"
	"pnl_forecast/pkg/core/store"
)

func main() {
	configPath := flag.String("config", "config/forecast.yaml", "Path to the YAML configuration (empty to skip)")
	flag.Parse()

	if _, err := os.Stat(*configPath); *configPath != "" && os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "[WARNING] config %s not found, using defaults\n", *configPath)
		*configPath = ""
	}

	cfg, err := config.Load(*configPath, ".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
		os.Exit(1)
	}

	zl, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] logger: %v\n", err)
		os.Exit(1)
	}
	defer zl.Sync()
	log := logger.NewZap(zl)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("server stopped with error", nil)
		zl.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, log logger.Logger) error {
	recorder := metrics.New()
	engine := projection.NewEngine(cfg.Forecast,
		projection.WithLogger(log.With(logger.Fields{"component": "engine"})),
		projection.WithObserver(recorder),
	)

	// The tenant endpoint needs the ledger database; compute works without it.
	var ledger forecast.Ledger
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := store.Open(ctx, cfg.Database.URL, store.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	cancel()
	switch {
	case errors.Is(err, store.ErrNotConfigured):
		log.Warn("DATABASE_URL not set, tenant forecasts disabled", nil)
	case err != nil:
		return err
	default:
		defer db.Close()
		ledger = store.NewLedgerRepo(db, cfg.Database.QueryTimeout)
	}

	handler := forecast.NewHandler(engine, ledger, log.With(logger.Fields{"component": "http"}))
	router := forecast.NewRouter(handler, forecast.RouterOptions{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Limiter:        ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		Observer:       recorder,
		Metrics:        recorder.Handler(),
		Config:         apiconfig.NewHandler(engine),
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server starting", logger.Fields{
			"addr":       cfg.HTTP.Addr,
			"database":   ledger != nil,
			"rate_limit": cfg.RateLimit.RequestsPerSecond,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info("shutting down server", logger.Fields{"signal": sig.String()})
	}

	ctx, cancel = context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server stopped", nil)
	return nil
}
