package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pulsefeed/pulsefeed/internal/api"
	"github.com/pulsefeed/pulsefeed/internal/config"
	"github.com/pulsefeed/pulsefeed/internal/database"
	"github.com/pulsefeed/pulsefeed/internal/estimator"
	"github.com/pulsefeed/pulsefeed/internal/feed"
	"github.com/pulsefeed/pulsefeed/internal/imagefetch"
	"github.com/pulsefeed/pulsefeed/internal/parser"
	"github.com/pulsefeed/pulsefeed/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg == nil {
		return
	}

	if cfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	slog.Info("connecting to database")
	db, err := database.NewConnection(cfg.ConnString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations applied", "version", version, "dirty", dirty)

	feedRepo := database.NewFeedRepository(db)
	itemRepo := database.NewItemRepository(db)

	feedParser := parser.New(cfg.UserAgent, time.Duration(cfg.FetchTimeoutSeconds)*time.Second)
	images := imagefetch.New(time.Duration(cfg.FetchTimeoutSeconds)*time.Second, cfg.ImageCacheSize)
	extractor := feed.NewContentExtractor(cfg.UserAgent, time.Duration(cfg.FetchTimeoutSeconds)*time.Second)
	processor := feed.NewProcessor(feedParser, images, extractor, feedRepo, itemRepo, estimator.DefaultConfig())

	sched := scheduler.New(processor, feedRepo, time.Duration(cfg.FetchTimeoutSeconds)*time.Second)
	sched.Start()
	defer sched.Stop()

	handler := api.NewHandler(feedRepo, itemRepo, processor)
	router := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting HTTP server", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("received signal, shutting down", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error, shutting down", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
