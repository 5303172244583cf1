package providers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/kirvlasenkov/subreddit-insights/internal/config"
	"github.com/kirvlasenkov/subreddit-insights/internal/store"
)

// GeminiProvider completes prompts with Google's Gemini API
type GeminiProvider struct {
	client    *genai.Client
	model     string
	exchanges *store.ExchangeLog
	logger    *slog.Logger
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey, model string, exchanges *store.ExchangeLog, logger *slog.Logger) (*GeminiProvider, error) {
	return newGeminiProvider(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, model, exchanges, logger)
}

func newGeminiProvider(ctx context.Context, cc *genai.ClientConfig, model string, exchanges *store.ExchangeLog, logger *slog.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiProvider{
		client:    client,
		model:     model,
		exchanges: exchanges,
		logger:    logger,
	}, nil
}

// Complete sends the prompt to Gemini in JSON response mode
func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		record(p.exchanges, p.logger, config.ProviderGemini, p.model, prompt, "", err)
		return "", fmt.Errorf("failed to call Gemini API: %w", err)
	}

	var sb strings.Builder
	if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		for _, part := range result.Candidates[0].Content.Parts {
			if part != nil {
				sb.WriteString(part.Text)
			}
		}
	}
	responseText := sb.String()

	record(p.exchanges, p.logger, config.ProviderGemini, p.model, prompt, responseText, nil)

	if responseText == "" {
		return "", fmt.Errorf("Gemini returned empty response")
	}

	return responseText, nil
}
