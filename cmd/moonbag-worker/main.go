package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moonbag/internal/config"
	"moonbag/internal/db"
	"moonbag/internal/game"
	"moonbag/internal/logging"
	"moonbag/internal/store"
)

// The worker drives one profile in real time: a tick per interval while the
// market is open, automatic day rollover, periodic saves.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
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
		logger.Warn("no DATABASE_URL set, progress will not survive restarts")
	}

	engineCfg := game.Config{
		TradingWindow: cfg.TradingWindow,
		DevMode:       cfg.DevMode,
		BackfillDays:  cfg.BackfillDays,
	}
	var saver game.Saver
	if st != nil {
		saver = st
	}
	engine := game.NewEngine(engineCfg, logger, saver)

	if err := loadOrCreate(ctx, engine, st, cfg, logger); err != nil {
		logger.Error("game init failed", "err", err)
		os.Exit(1)
	}

	ticker := time.NewTicker(cfg.TickEvery)
	defer ticker.Stop()
	saveTicker := time.NewTicker(cfg.SaveEvery)
	defer saveTicker.Stop()

	logger.Info("worker started",
		"profile", cfg.ProfileID,
		"tick_every", cfg.TickEvery.String(),
		"trading_window", cfg.TradingWindow.String())

	for {
		select {
		case <-ctx.Done():
			saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := engine.Save(saveCtx); err != nil {
				logger.Error("final save failed", "err", err)
			}
			cancel()
			logger.Info("worker shutdown")
			return
		case <-saveTicker.C:
			if err := engine.Save(ctx); err != nil {
				logger.Error("periodic save failed", "err", err)
			}
		case <-ticker.C:
			switch engine.Status() {
			case game.StatusBeginningOfDay:
				if err := engine.StartTrading(); err != nil {
					logger.Error("start trading failed", "err", err)
					continue
				}
				logger.Info("market open", "kpis", engine.GetKPIs())
			case game.StatusTrading:
				if err := engine.ProcessTick(); err != nil {
					logger.Error("tick failed", "err", err)
				}
			case game.StatusEndOfDay:
				if err := engine.ProcessDay(ctx); err != nil {
					logger.Error("day rollover failed", "err", err)
					continue
				}
				logger.Info("day complete", "kpis", engine.GetKPIs())
			}
		}
	}
}

func loadOrCreate(ctx context.Context, engine *game.Engine, st *store.Store, cfg config.WorkerConfig, logger *slog.Logger) error {
	if st != nil {
		saved, err := st.Load(ctx, cfg.ProfileID)
		if err != nil {
			return err
		}
		if saved != nil {
			var gs game.GameState
			if err := json.Unmarshal(saved.State, &gs); err != nil {
				return err
			}
			if err := engine.Load(&gs); err != nil {
				return err
			}
			logger.Info("resumed game", "profile", cfg.ProfileID, "day", gs.Day, "tick", gs.Tick)
			return nil
		}
	}

	catalog := game.DefaultCatalog()
	if cfg.CatalogPath != "" {
		var err error
		catalog, err = game.LoadCatalogFile(cfg.CatalogPath)
		if err != nil {
			return err
		}
	}
	if err := engine.NewGame(ctx, cfg.ProfileID, cfg.Seed, catalog); err != nil {
		return err
	}
	logger.Info("created game", "profile", cfg.ProfileID, "seed", cfg.Seed)
	return nil
}
