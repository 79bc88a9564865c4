package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moonbag/internal/ai"
	"moonbag/internal/api"
	"moonbag/internal/config"
	"moonbag/internal/db"
	"moonbag/internal/game"
	"moonbag/internal/logging"
	"moonbag/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFile)

	var st *store.Store
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		st = store.New(pool)
		if err := st.EnsureSchema(ctx); err != nil {
			logger.Error("schema init failed", "err", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("no DATABASE_URL set, running without persistence")
	}

	catalog := game.DefaultCatalog()
	if cfg.CatalogPath != "" {
		catalog, err = game.LoadCatalogFile(cfg.CatalogPath)
		if err != nil {
			logger.Error("load catalog failed", "path", cfg.CatalogPath, "err", err)
			os.Exit(1)
		}
	}

	aiClient := ai.NewClient(cfg.AIBaseURL, cfg.AIAPIKey, logger)

	server := api.New(cfg, logger, st, aiClient, catalog)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("moonbag api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
