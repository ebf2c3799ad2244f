// Command bookgend serves the story generation API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AFK4203/Book-generator-V3/internal/agent"
	"github.com/AFK4203/Book-generator-V3/internal/api"
	"github.com/AFK4203/Book-generator-V3/internal/config"
	"github.com/AFK4203/Book-generator-V3/internal/core"
	"github.com/AFK4203/Book-generator-V3/internal/document"
	"github.com/AFK4203/Book-generator-V3/internal/events"
	"github.com/AFK4203/Book-generator-V3/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: $BOOKGEN_CONFIG or ~/.config/bookgen/config.yaml)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	backend := agent.NewHTTPBackend(cfg.AI.APIKey,
		agent.WithModel(cfg.AI.Model),
		agent.WithBaseURL(cfg.AI.BaseURL),
		agent.WithTimeout(time.Duration(cfg.AI.Timeout)*time.Second))
	client := agent.NewClient(backend,
		agent.WithRetry(cfg.Limits.MaxRetries),
		agent.WithRateLimit(cfg.Limits.RateLimit.RequestsPerMinute, cfg.Limits.RateLimit.BurstSize))

	fs := storage.NewFileSystem(cfg.Paths.DataDir)
	store := storage.NewSessionStore(fs)
	bus := events.NewBus()
	pipeline := core.NewPipeline(client, store, document.NewAssembler(fs), bus)
	manager := core.NewSessionManager(store, pipeline, bus,
		core.WithMaxConcurrent(cfg.Limits.MaxConcurrentSessions),
		core.WithSessionTimeout(cfg.Limits.SessionTimeout))

	server := api.NewServer(manager, bus, cfg.Server)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Routes(cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "data_dir", cfg.Paths.DataDir)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Warn("session drain", "error", err)
	}
	return nil
}
