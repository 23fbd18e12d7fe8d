package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/models"
)

// Constants for TelegramService configuration
const (
	// DefaultChannelBufferSize defines the buffer size for the response channel
	DefaultChannelBufferSize = 100
	// DefaultUpdateTimeout is the long-polling timeout in seconds
	DefaultUpdateTimeout = 30
)

// telegramAPI defines the minimal Bot API surface used by the service,
// satisfied by *tgbotapi.BotAPI and by test fakes.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// TelegramService implements Service over the Telegram Bot API using long polling.
type TelegramService struct {
	bot       telegramAPI
	responses chan models.Response
	done      chan struct{}
}

// NewTelegramService creates a service authenticated with the given bot token.
func NewTelegramService(token string) (*TelegramService, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token not set")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	slog.Info("TelegramService authenticated", "username", bot.Self.UserName)
	return newTelegramService(bot), nil
}

func newTelegramService(bot telegramAPI) *TelegramService {
	return &TelegramService{
		bot:       bot,
		responses: make(chan models.Response, DefaultChannelBufferSize),
		done:      make(chan struct{}),
	}
}

// Start begins polling Telegram for updates.
func (s *TelegramService) Start(ctx context.Context) error {
	slog.Debug("TelegramService Start invoked")
	u := tgbotapi.NewUpdate(0)
	u.Timeout = DefaultUpdateTimeout
	updates := s.bot.GetUpdatesChan(u)

	go s.handleUpdates(ctx, updates)
	slog.Debug("TelegramService update handler started")
	return nil
}

// Stop stops polling and closes the response channel.
func (s *TelegramService) Stop() error {
	slog.Info("TelegramService Stop invoked")
	s.bot.StopReceivingUpdates()
	close(s.done)
	close(s.responses)
	slog.Info("TelegramService stopped and channels closed")
	return nil
}

// SendMessage sends a plain text message to the given chat.
func (s *TelegramService) SendMessage(ctx context.Context, to string, body string) error {
	return s.send(ctx, to, body, "")
}

// SendHTMLMessage sends an HTML-formatted message to the given chat.
func (s *TelegramService) SendHTMLMessage(ctx context.Context, to string, body string) error {
	return s.send(ctx, to, body, tgbotapi.ModeHTML)
}

func (s *TelegramService) send(ctx context.Context, to, body, parseMode string) error {
	slog.Debug("TelegramService send invoked", "to", to, "body_length", len(body), "parse_mode", parseMode)

	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		slog.Error("TelegramService send: invalid chat ID", "error", err, "to", to)
		return fmt.Errorf("invalid chat ID %q: %w", to, err)
	}

	msg := tgbotapi.NewMessage(chatID, body)
	msg.ParseMode = parseMode
	if _, err := s.bot.Send(msg); err != nil {
		slog.Error("TelegramService send error", "error", err, "to", to)
		return fmt.Errorf("failed to send message: %w", err)
	}
	slog.Info("TelegramService message sent", "to", to)
	return nil
}

// Responses returns a channel of incoming participant messages.
func (s *TelegramService) Responses() <-chan models.Response {
	return s.responses
}

// handleUpdates converts Telegram updates into Response events until the
// context is cancelled or the service is stopped.
func (s *TelegramService) handleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	slog.Debug("TelegramService handleUpdates starting")
	for {
		select {
		case <-ctx.Done():
			slog.Debug("TelegramService handleUpdates stopping due to context cancellation")
			return
		case <-s.done:
			slog.Debug("TelegramService handleUpdates stopping due to service stop")
			return
		case update, ok := <-updates:
			if !ok {
				slog.Debug("TelegramService updates channel closed")
				return
			}
			resp, ok := responseFromUpdate(update)
			if !ok {
				continue
			}
			select {
			case s.responses <- resp:
				slog.Debug("TelegramService response forwarded", "from", resp.From, "command", resp.Command)
			default:
				slog.Warn("TelegramService response channel full, dropping message", "from", resp.From)
			}
		}
	}
}

// responseFromUpdate maps a Telegram update to a Response event. It returns
// false for updates with no usable text message.
func responseFromUpdate(update tgbotapi.Update) (models.Response, bool) {
	if update.Message == nil || update.Message.Text == "" {
		return models.Response{}, false
	}

	msg := update.Message
	resp := models.Response{
		From: strconv.FormatInt(msg.Chat.ID, 10),
		Body: msg.Text,
		Time: int64(msg.Date),
	}
	if msg.From != nil {
		resp.FirstName = msg.From.FirstName
	}
	if msg.IsCommand() {
		resp.Command = msg.Command()
		resp.Body = msg.CommandArguments()
	}
	return resp, true
}
