// Command citysim serves a city-building session over HTTP and WebSocket.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/citybuilder/internal/api"
	"github.com/talgya/citybuilder/internal/city"
	"github.com/talgya/citybuilder/internal/engine"
	"github.com/talgya/citybuilder/internal/persistence"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("CITYSIM_LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	// Configuration from environment.
	port := envIntOrDefault("CITYSIM_PORT", 8080)
	dbPath := envOrDefault("CITYSIM_DB", "data/citysim.db")
	cfgPath := os.Getenv("CITYSIM_CONFIG")
	rateLimit := envIntOrDefault("CITYSIM_RATE_LIMIT", api.DefaultRateLimit)
	if rateLimit < 0 {
		slog.Error("CITYSIM_RATE_LIMIT must not be negative", "value", rateLimit)
		os.Exit(1)
	}
	if rateLimit == 0 {
		slog.Warn("CITYSIM_RATE_LIMIT is 0, rate limiting disabled")
	}

	// ── City configuration ───────────────────────────────────────────
	cfg := city.DefaultConfig()
	if cfgPath != "" {
		var err error
		cfg, err = city.LoadConfig(cfgPath)
		if err != nil {
			slog.Error("failed to load config", "path", cfgPath, "error", err)
			os.Exit(1)
		}
		slog.Info("config loaded", "path", cfgPath)
	}
	slog.Info("city configuration",
		"grid", cfg.Grid(),
		"treasury", cfg.InitialTreasury,
		"happiness", cfg.InitialHappiness,
		"low_funds_threshold", cfg.LowFundsThreshold,
	)

	eng, err := engine.New(cfg)
	if err != nil {
		slog.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	// ── Audit ledger ─────────────────────────────────────────────────
	if dbPath != persistence.MemoryPath {
		os.MkdirAll(filepath.Dir(dbPath), 0755)
	}
	db, err := persistence.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	sessionID := uuid.New().String()
	if err := db.StartSession(sessionID, cfg); err != nil {
		slog.Error("failed to start session", "error", err)
		os.Exit(1)
	}

	// ── HTTP API ─────────────────────────────────────────────────────
	apiServer := &api.Server{
		Engine:    eng,
		DB:        db,
		SessionID: sessionID,
		Port:      port,
		RateLimit: rateLimit,
	}
	apiServer.Start()

	fmt.Printf("\nCity open: %s grid, %d in the treasury.\n", cfg.Grid(), cfg.InitialTreasury)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", port)
	fmt.Printf("WebSocket: ws://localhost:%d/ws\n", port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
	fmt.Println("City closed.")
}

func logLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
