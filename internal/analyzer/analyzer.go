// Package analyzer extracts product research insights from a corpus with an
// LLM, splitting oversized corpora into chunks and merging the partial
// results.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kirvlasenkov/subreddit-insights/internal/analyzer/providers"
	"github.com/kirvlasenkov/subreddit-insights/internal/config"
	"github.com/kirvlasenkov/subreddit-insights/internal/corpus"
	"github.com/kirvlasenkov/subreddit-insights/internal/store"
	"github.com/kirvlasenkov/subreddit-insights/internal/types"
)

// Provider sends a single-turn prompt to an LLM and returns its text reply
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Options tunes how a corpus is split and analyzed
type Options struct {
	MaxChunkChars int
	Concurrency   int
	Extended      bool
	Logger        *slog.Logger

	// Progress, when set, is called as chunks finish
	Progress func(done, total int)
}

// Analysis is the merged result of a corpus and how many chunks it took
type Analysis struct {
	Result types.AnalysisResult
	Chunks int
}

// Analyzer handles LLM-based corpus analysis
type Analyzer struct {
	provider Provider
	opts     Options
	logger   *slog.Logger
}

// New creates an analyzer around provider
func New(provider Provider, opts Options) *Analyzer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{provider: provider, opts: opts, logger: logger}
}

// NewProvider creates the LLM provider named in the config. A nil exchange
// log disables exchange recording.
func NewProvider(ctx context.Context, cfg config.AnalysisConfig, exchanges *store.ExchangeLog, logger *slog.Logger) (Provider, error) {
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
		return providers.NewAnthropicProvider(cfg.APIKey, cfg.Model, exchanges, logger), nil
	case config.ProviderGemini:
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
		return providers.NewGeminiProvider(ctx, cfg.APIKey, cfg.Model, exchanges, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}
}

// Analyze chunks the corpus, analyzes the chunks concurrently and merges the
// results in chunk order. Any chunk failure fails the whole analysis.
func (a *Analyzer) Analyze(ctx context.Context, c *types.Corpus) (*Analysis, error) {
	chunks := corpus.Chunk(c, a.opts.MaxChunkChars)
	total := len(chunks)
	if total > 1 {
		a.logger.Info("Corpus exceeds context budget, analyzing in chunks", "chunks", total)
	}

	// Pre-allocate results slice (one result per chunk)
	results := make([]types.AnalysisResult, total)
	var done atomic.Int32

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			a.logger.Debug("Analyzing chunk", "chunk", i+1, "posts", len(chunk.Posts))

			prompt := BuildPrompt(chunk, i+1, total, a.opts.Extended)
			text, err := a.provider.Complete(ctx, prompt)
			if err != nil {
				return fmt.Errorf("failed to analyze chunk %d of %d: %w", i+1, total, err)
			}

			res, err := ParseResponse(text)
			if err != nil {
				return fmt.Errorf("chunk %d of %d: %w", i+1, total, err)
			}
			results[i] = *res

			n := int(done.Add(1))
			if a.opts.Progress != nil {
				a.opts.Progress(n, total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := results[0]
	if total > 1 {
		result = Merge(results)
	}

	return &Analysis{Result: result, Chunks: total}, nil
}
