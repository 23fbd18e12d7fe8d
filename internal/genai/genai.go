// Package genai provides the language model client used for dialogue turns,
// field extraction and lead classification.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is used when OPENAI_MODEL is not set.
const DefaultModel = openai.ChatModelGPT4o

// ClientInterface defines the operations flows need from the language model.
// It is always a single text-in/text-out call; the caller supplies whatever
// history it wants the model to see.
type ClientInterface interface {
	// GenerateWithMessages produces a completion for a full message sequence.
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)

	// GeneratePromptWithContext produces a completion for a single
	// system-prompt/user-prompt pair.
	GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// completionService defines the minimal interface for chat completions,
// satisfied by the OpenAI client and by test fakes.
type completionService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	completions completionService
	model       openai.ChatModel
}

// NewClient initializes a new client from the OPENAI_API_KEY and OPENAI_MODEL
// environment variables.
func NewClient() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	model := openai.ChatModel(os.Getenv("OPENAI_MODEL"))
	if model == "" {
		model = DefaultModel
	}

	cli := openai.NewClient(option.WithAPIKey(apiKey))
	slog.Debug("genai.NewClient: client initialized", "model", model)
	return &Client{completions: &cli.Chat.Completions, model: model}, nil
}

// GenerateWithMessages produces a completion for the given message sequence.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	slog.Debug("genai.GenerateWithMessages: invoking completion", "model", c.model, "message_count", len(messages))

	resp, err := c.completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		slog.Error("genai.GenerateWithMessages: completion failed", "error", err, "model", c.model)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	content := resp.Choices[0].Message.Content
	slog.Debug("genai.GenerateWithMessages: completion received", "response_length", len(content))
	return content, nil
}

// GeneratePromptWithContext produces a completion for a single system/user
// prompt pair.
func (c *Client) GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))
	return c.GenerateWithMessages(ctx, messages)
}
