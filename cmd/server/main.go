package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"dialoguetree/internal/config"
	"dialoguetree/internal/handler"
	"dialoguetree/internal/hub"
	"dialoguetree/internal/logging"
	"dialoguetree/internal/metrics"
	"dialoguetree/internal/repository/sqlite"
	"dialoguetree/internal/service"
	"dialoguetree/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dialoguetree-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, cfgPath, err := config.Load()
	if err != nil {
		return err
	}

	// Command line flags override the config file
	addr := flag.String("addr", cfg.Server.Addr, "HTTP listen address")
	dbPath := flag.String("db", cfg.Server.Database, "SQLite database path")
	watchFile := flag.String("watch", cfg.Server.WatchFile, "snapshot file to import and re-import on change")
	origins := flag.String("cors", strings.Join(cfg.Server.CORSOrigins, ","), "comma separated allowed CORS origins")
	logLevel := flag.String("log-level", cfg.Log.Level, "log level (debug, info, warn, error)")
	flag.Parse()

	logger, err := logging.New(*logLevel, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting dialogue store server", zap.String("config", cfgPath))

	repo, err := sqlite.New(*dbPath, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()

	collector := metrics.New()

	sseHub := hub.New(logger, hub.WithClientGauge(collector.SetSSEClients))
	go sseHub.Run()

	// Event bus feeds the SSE hub
	eventBus := service.NewEventBus()
	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	go func() {
		for event := range eventChan {
			sseHub.Broadcast(event)
		}
	}()

	storeSvc := service.NewStoreService(repo, eventBus, logger)
	storeSvc.SetObserver(collector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *watchFile != "" {
		reloader := watcher.NewReloader(*watchFile, storeSvc, logger, collector.ObserveReload)
		if err := reloader.Reload(ctx); err != nil {
			logger.Warn("initial snapshot import failed", zap.Error(err))
		}
		w := watcher.New(*watchFile, reloader.OnChange, logger)
		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("snapshot watcher stopped", zap.Error(err))
			}
		}()
	}

	router := handler.NewRouter(handler.RouterConfig{
		Store:          handler.NewStoreHandler(storeSvc, logger),
		Events:         sseHub,
		Metrics:        collector,
		AllowedOrigins: splitList(*origins),
		Logger:         logger,
	})

	// WriteTimeout stays zero so SSE streams are not cut off
	server := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", *addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	cancel()
	// Closing the hub ends open SSE streams so Shutdown can drain
	sseHub.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
