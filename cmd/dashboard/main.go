package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/dashboard"
	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/sheets"
	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/util"
)

// DefaultAddr is the default dashboard listen address.
const DefaultAddr = ":8080"

// Config holds environment configuration for the dashboard.
type Config struct {
	Addr          string
	SpreadsheetID string
	CacheTTL      time.Duration
}

func main() {
	initializeLogger()
	config := loadEnvironmentConfig()

	addr := flag.String("addr", config.Addr, "dashboard listen address")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reader, err := sheets.NewClient(ctx, config.SpreadsheetID)
	if err != nil {
		slog.Error("Failed to create sheets client", "error", err)
		os.Exit(1)
	}

	loader := dashboard.NewLoader(reader, config.CacheTTL)
	server := &http.Server{
		Addr:    *addr,
		Handler: dashboard.NewServer(loader).Routes(),
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down dashboard")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Dashboard shutdown failed", "error", err)
		}
	}()

	slog.Info("Dashboard listening", "addr", *addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Dashboard failed to serve", "error", err)
		os.Exit(1)
	}
	slog.Info("Dashboard exited")
}

// initializeLogger sets up structured logging with the level from LOG_LEVEL.
func initializeLogger() {
	level := util.ParseLogLevelEnv("LOG_LEVEL", slog.LevelInfo)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	config := Config{
		Addr:          os.Getenv("DASHBOARD_ADDR"),
		SpreadsheetID: os.Getenv("SPREADSHEET_ID"),
		CacheTTL:      dashboard.DefaultCacheTTL,
	}
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if ttl := os.Getenv("DASHBOARD_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.CacheTTL = d
		} else {
			slog.Warn("Invalid DASHBOARD_CACHE_TTL, using default", "value", ttl, "error", err)
		}
	}
	return config
}
