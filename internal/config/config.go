package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr          string
	DatabaseURL   string
	DBMaxConns    int32
	DBMinConns    int32
	AIBaseURL     string
	AIAPIKey      string
	CatalogPath   string
	TradingWindow time.Duration
	BackfillDays  int
	DevMode       bool
	LogLevel      string
	LogFile       string
}

type WorkerConfig struct {
	DatabaseURL   string
	DBMaxConns    int32
	DBMinConns    int32
	ProfileID     string
	Seed          string
	CatalogPath   string
	TickEvery     time.Duration
	SaveEvery     time.Duration
	TradingWindow time.Duration
	BackfillDays  int
	DevMode       bool
	LogLevel      string
	LogFile       string
}

// LoadAPIFromEnv reads API configuration from the environment. The database
// is optional; without it the server runs in-memory only.
func LoadAPIFromEnv() (APIConfig, error) {
	addr := strings.TrimSpace(os.Getenv("PORT"))
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("MOONBAG_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:          addr,
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:    int32(envIntDefault("MOONBAG_DB_MAX_CONNS", 10)),
		DBMinConns:    int32(envIntDefault("MOONBAG_DB_MIN_CONNS", 1)),
		AIBaseURL:     strings.TrimRight(strings.TrimSpace(os.Getenv("MOONBAG_AI_URL")), "/"),
		AIAPIKey:      strings.TrimSpace(os.Getenv("MOONBAG_AI_KEY")),
		CatalogPath:   strings.TrimSpace(os.Getenv("MOONBAG_CATALOG")),
		TradingWindow: envDurationDefault("MOONBAG_TRADING_WINDOW", 30*time.Minute),
		BackfillDays:  envIntDefault("MOONBAG_BACKFILL_DAYS", 30),
		DevMode:       envBoolDefault("MOONBAG_DEV_MODE", false),
		LogLevel:      envDefault("MOONBAG_LOG_LEVEL", "info"),
		LogFile:       strings.TrimSpace(os.Getenv("MOONBAG_LOG_FILE")),
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	cfg := WorkerConfig{
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:    int32(envIntDefault("MOONBAG_DB_MAX_CONNS", 10)),
		DBMinConns:    int32(envIntDefault("MOONBAG_DB_MIN_CONNS", 1)),
		ProfileID:     envDefault("MOONBAG_PROFILE", "default"),
		Seed:          envDefault("MOONBAG_SEED", "moonbag"),
		CatalogPath:   strings.TrimSpace(os.Getenv("MOONBAG_CATALOG")),
		TickEvery:     envDurationDefault("MOONBAG_TICK_EVERY", time.Second),
		SaveEvery:     envDurationDefault("MOONBAG_SAVE_EVERY", 30*time.Second),
		TradingWindow: envDurationDefault("MOONBAG_TRADING_WINDOW", 30*time.Minute),
		BackfillDays:  envIntDefault("MOONBAG_BACKFILL_DAYS", 30),
		DevMode:       envBoolDefault("MOONBAG_DEV_MODE", false),
		LogLevel:      envDefault("MOONBAG_LOG_LEVEL", "info"),
		LogFile:       strings.TrimSpace(os.Getenv("MOONBAG_LOG_FILE")),
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
