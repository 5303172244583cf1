package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kirvlasenkov/subreddit-insights/internal/config"
)

// LLMExchange represents a prompt/response pair kept for debugging
type LLMExchange struct {
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"` // e.g. "anthropic"
	Model     string    `json:"model"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Error     string    `json:"error,omitempty"`
}

// ExchangeLog writes LLM exchanges as JSON files into a directory
type ExchangeLog struct {
	dir string
}

// NewExchangeLog creates a log writing into dir
func NewExchangeLog(dir string) *ExchangeLog {
	return &ExchangeLog{dir: dir}
}

// LLMCacheDir returns the default exchange directory.
// On Linux this is ~/.cache/subreddit-insights/llm/
func LLMCacheDir() (string, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "llm"), nil
}

// Save serializes an exchange to a timestamped file and returns its path.
// Chunks are analyzed concurrently, so names carry a random suffix.
func (l *ExchangeLog) Save(exchange LLMExchange) (string, error) {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return "", err
	}

	// Dashes instead of colons for filesystem compatibility
	filename := exchange.Timestamp.Format("2006-01-02T15-04-05") + "-" + uuid.NewString()[:8] + ".json"
	path := filepath.Join(l.dir, filename)

	data, err := json.MarshalIndent(exchange, "", "  ")
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}

	return path, nil
}
