package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/flow"
	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/genai"
	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/messaging"
	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/models"
	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/session"
	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/sheets"
	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/util"
)

// restartCommand is the bot command that discards any session and starts over.
const restartCommand = "start"

// Config holds environment configuration for the bot.
type Config struct {
	TelegramToken string
	AdminChatID   string
	SpreadsheetID string
	MetricsAddr   string
}

func main() {
	initializeLogger()
	config := loadEnvironmentConfig()

	metricsAddr := flag.String("metrics-addr", config.MetricsAddr, "address for the Prometheus metrics listener (empty disables it)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	genaiClient, err := genai.NewClient()
	if err != nil {
		slog.Error("Failed to create language model client", "error", err)
		os.Exit(1)
	}

	msgService, err := messaging.NewTelegramService(config.TelegramToken)
	if err != nil {
		slog.Error("Failed to create Telegram service", "error", err)
		os.Exit(1)
	}

	sink, err := sheets.NewClient(ctx, config.SpreadsheetID)
	if err != nil {
		slog.Error("Failed to create sheets client", "error", err)
		os.Exit(1)
	}

	notifier := messaging.NewAdminNotifier(msgService, config.AdminChatID)
	leadFlow := flow.NewLeadFlow(session.NewManager(), genaiClient, msgService, notifier, sink)

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr)
	}

	if err := msgService.Start(ctx); err != nil {
		slog.Error("Failed to start Telegram service", "error", err)
		os.Exit(1)
	}

	slog.Info("LeadBot started, waiting for messages")
	runDispatchLoop(ctx, leadFlow, msgService)

	if err := msgService.Stop(); err != nil {
		slog.Error("Failed to stop Telegram service cleanly", "error", err)
	}
	slog.Info("LeadBot exited")
}

// runDispatchLoop routes incoming messages to the lead flow until shutdown.
// Each message is handled in its own goroutine; the transport delivers at
// most one in-flight message per user, so per-user ordering holds.
func runDispatchLoop(ctx context.Context, leadFlow *flow.LeadFlow, msgService messaging.Service) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Dispatch loop stopping due to shutdown signal")
			return
		case resp, ok := <-msgService.Responses():
			if !ok {
				slog.Info("Dispatch loop stopping: responses channel closed")
				return
			}
			wg.Add(1)
			go func(resp models.Response) {
				defer wg.Done()
				dispatch(ctx, leadFlow, resp)
			}(resp)
		}
	}
}

// dispatch routes one incoming message: the restart command starts a fresh
// session, any other command is ignored, and plain text goes to the dialogue.
func dispatch(ctx context.Context, leadFlow *flow.LeadFlow, resp models.Response) {
	switch {
	case resp.Command == restartCommand:
		if err := leadFlow.HandleRestart(ctx, resp.From, resp.FirstName); err != nil {
			slog.Error("Restart handling failed", "error", err, "from", resp.From)
		}
	case resp.Command != "":
		slog.Debug("Ignoring unknown command", "command", resp.Command, "from", resp.From)
	default:
		if err := leadFlow.HandleMessage(ctx, resp.From, resp.FirstName, resp.Body); err != nil {
			slog.Error("Message handling failed", "error", err, "from", resp.From)
		}
	}
}

// serveMetrics exposes the Prometheus counters on a dedicated listener.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("Metrics listener starting", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("Metrics listener failed", "error", err)
	}
}

// initializeLogger sets up structured logging with the level from LOG_LEVEL.
func initializeLogger() {
	level := util.ParseLogLevelEnv("LOG_LEVEL", slog.LevelDebug)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	return Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		AdminChatID:   os.Getenv("ADMIN_CHAT_ID"),
		SpreadsheetID: os.Getenv("SPREADSHEET_ID"),
		MetricsAddr:   os.Getenv("METRICS_ADDR"),
	}
}
