// Package app runs one analysis: fetch a subreddit corpus (through the
// cache), analyze it and write the markdown report.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kirvlasenkov/subreddit-insights/internal/analyzer"
	"github.com/kirvlasenkov/subreddit-insights/internal/corpus"
	"github.com/kirvlasenkov/subreddit-insights/internal/reddit"
	"github.com/kirvlasenkov/subreddit-insights/internal/report"
	"github.com/kirvlasenkov/subreddit-insights/internal/store"
	"github.com/kirvlasenkov/subreddit-insights/internal/types"
)

// ErrNoPosts means the subreddit had nothing in the requested window
var ErrNoPosts = errors.New("no posts found")

// Fetcher collects a subreddit corpus
type Fetcher interface {
	FetchCorpus(ctx context.Context, name string, opts reddit.FetchOptions) (*types.Corpus, error)
}

// Analyzer turns a corpus into a merged analysis
type Analyzer interface {
	Analyze(ctx context.Context, c *types.Corpus) (*analyzer.Analysis, error)
}

// Options wires an App together
type Options struct {
	Fetcher  Fetcher
	Analyzer Analyzer
	Reports  *report.Builder

	// Cache is optional; nil disables the corpus cache
	Cache    *store.Store
	CacheTTL time.Duration

	TopPosts int
	Logger   *slog.Logger

	// FetchProgress, when set, is called as comment trees are fetched
	FetchProgress func(done, total int)
}

// App holds the collaborators of an analysis run
type App struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new App instance
func New(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &App{opts: opts, logger: logger, now: time.Now}
}

// Request is one invocation of the pipeline
type Request struct {
	Subreddit string
	Period    reddit.Period
	Limit     int

	// Output is the report path; empty means DefaultOutput in the working directory
	Output string

	// NoCache skips reading the corpus cache. Fresh corpora are still stored.
	NoCache bool
}

// Result describes a finished run
type Result struct {
	Path   string
	Stats  types.CorpusStats
	Chunks int
	Cached bool
}

// DefaultOutput returns the report file name for a subreddit and date
func DefaultOutput(subreddit string, at time.Time) string {
	return fmt.Sprintf("%s-insights-%s.md", subreddit, at.Format("2006-01-02"))
}

// Run performs the full fetch -> analyze -> report flow
func (a *App) Run(ctx context.Context, req Request) (*Result, error) {
	name := reddit.NormalizeSubreddit(req.Subreddit)
	if req.Period == "" {
		req.Period = reddit.PeriodMonth
	}

	logger := a.logger.With("run_id", uuid.NewString(), "subreddit", name)
	start := a.now()

	// Step 1: Fetch (or reuse) the corpus
	c, cached, err := a.loadCorpus(ctx, logger, name, req)
	if err != nil {
		return nil, err
	}
	if len(c.Posts) == 0 {
		return nil, fmt.Errorf("%w in r/%s for the last %s", ErrNoPosts, name, req.Period)
	}

	// Step 2: Analyze
	logger.Info("Analyzing corpus", "posts", len(c.Posts))
	analysis, err := a.opts.Analyzer.Analyze(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	// Step 3: Build and save the report
	stats := corpus.Stats(c, a.opts.TopPosts)
	rep, err := a.opts.Reports.Build(report.Input{
		Subreddit: name,
		Period:    string(req.Period),
		Stats:     stats,
		Result:    analysis.Result,
		Chunks:    analysis.Chunks,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build report: %w", err)
	}

	path := req.Output
	if path == "" {
		path = DefaultOutput(name, start)
	}
	if err := writeReport(path, rep.Markdown); err != nil {
		return nil, err
	}

	logger.Info("Report saved", "path", path, "chunks", analysis.Chunks,
		"elapsed", a.now().Sub(start).Round(time.Millisecond))

	return &Result{
		Path:   path,
		Stats:  stats,
		Chunks: analysis.Chunks,
		Cached: cached,
	}, nil
}

// loadCorpus serves the corpus from the cache when allowed and fresh,
// otherwise fetches it and refreshes the cache. Cache failures only log.
func (a *App) loadCorpus(ctx context.Context, logger *slog.Logger, name string, req Request) (*types.Corpus, bool, error) {
	key := store.CorpusKey(name, string(req.Period), req.Limit)

	if a.opts.Cache != nil && !req.NoCache {
		c, fetchedAt, err := a.opts.Cache.GetCorpus(key, a.opts.CacheTTL)
		switch {
		case err != nil:
			logger.Warn("Failed to read corpus cache", "err", err)
		case c != nil:
			logger.Info("Using cached corpus", "posts", len(c.Posts), "fetched_at", fetchedAt.Format(time.RFC3339))
			return c, true, nil
		}
	}

	logger.Info("Fetching subreddit", "period", req.Period, "limit", req.Limit)
	c, err := a.opts.Fetcher.FetchCorpus(ctx, name, reddit.FetchOptions{
		Period:   req.Period,
		Limit:    req.Limit,
		Progress: a.opts.FetchProgress,
	})
	if err != nil {
		return nil, false, err
	}

	if a.opts.Cache != nil && len(c.Posts) > 0 {
		if err := a.opts.Cache.PutCorpus(key, c); err != nil {
			logger.Warn("Failed to cache corpus", "err", err)
		}
		if n, err := a.opts.Cache.Prune(a.opts.CacheTTL); err != nil {
			logger.Warn("Failed to prune corpus cache", "err", err)
		} else if n > 0 {
			logger.Debug("Pruned expired corpora", "count", n)
		}
	}

	return c, false, nil
}

func writeReport(path, markdown string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(markdown), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
