// Package providers implements analyzer LLM providers on top of the vendor
// SDKs.
package providers

import (
	"log/slog"
	"time"

	"github.com/kirvlasenkov/subreddit-insights/internal/store"
)

// record caches the prompt/response for debugging. Failures are logged and
// never affect the completion.
func record(exchanges *store.ExchangeLog, logger *slog.Logger, provider, model, prompt, response string, callErr error) {
	if exchanges == nil {
		return
	}

	ex := store.LLMExchange{
		Timestamp: time.Now(),
		Provider:  provider,
		Model:     model,
		Prompt:    prompt,
		Response:  response,
	}
	if callErr != nil {
		ex.Error = callErr.Error()
	}

	path, err := exchanges.Save(ex)
	if err != nil {
		logger.Warn("Failed to cache LLM exchange", "err", err)
		return
	}
	logger.Debug("Cached LLM exchange", "path", path)
}
