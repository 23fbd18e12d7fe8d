package messaging

import (
	"context"

	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/models"
)

// Service defines a pluggable message delivery abstraction.
// It supports sending messages and provides a channel of incoming responses.
type Service interface {
	// SendMessage sends a plain text message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// Start begins any background processing (e.g., polling for updates).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Responses returns a channel of incoming participant messages.
	Responses() <-chan models.Response
}

// HTMLSender is implemented by services that can deliver rich-text messages.
// The admin alert uses it to keep the original HTML formatting.
type HTMLSender interface {
	SendHTMLMessage(ctx context.Context, to string, body string) error
}
