package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kirvlasenkov/subreddit-insights/internal/config"
	"github.com/kirvlasenkov/subreddit-insights/internal/store"
)

const anthropicMaxTokens = 8192

// AnthropicProvider completes prompts with Anthropic's Claude API
type AnthropicProvider struct {
	client    *anthropic.Client
	model     string
	exchanges *store.ExchangeLog
	logger    *slog.Logger
}

// NewAnthropicProvider creates a new Anthropic provider. Extra request
// options are passed to the SDK client.
func NewAnthropicProvider(apiKey, model string, exchanges *store.ExchangeLog, logger *slog.Logger, opts ...option.RequestOption) *AnthropicProvider {
	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	if logger == nil {
		logger = slog.Default()
	}
	return &AnthropicProvider{
		client:    &client,
		model:     model,
		exchanges: exchanges,
		logger:    logger,
	}
}

// Complete sends the prompt to Claude. The reply is prefilled with "{" so
// Claude continues straight into the JSON object.
func (p *AnthropicProvider) Complete(ctx context.Context, prompt string) (string, error) {
	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock("{")),
		},
	})
	if err != nil {
		record(p.exchanges, p.logger, config.ProviderAnthropic, p.model, prompt, "", err)
		return "", fmt.Errorf("failed to call Claude API: %w", err)
	}

	// Extract text from response
	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	record(p.exchanges, p.logger, config.ProviderAnthropic, p.model, prompt, responseText, nil)

	if responseText == "" {
		return "", fmt.Errorf("Claude returned empty response")
	}

	// The response continues from after the prefilled "{"
	return "{" + responseText, nil
}
