package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirvlasenkov/subreddit-insights/internal/analyzer"
	"github.com/kirvlasenkov/subreddit-insights/internal/app"
	"github.com/kirvlasenkov/subreddit-insights/internal/auth"
	"github.com/kirvlasenkov/subreddit-insights/internal/config"
	"github.com/kirvlasenkov/subreddit-insights/internal/reddit"
	"github.com/kirvlasenkov/subreddit-insights/internal/report"
	"github.com/kirvlasenkov/subreddit-insights/internal/store"
)

const (
	minLimit    = 1
	maxLimit    = 500
	httpTimeout = 30 * time.Second
)

// runOptions are the flags shared by the root and watch commands
type runOptions struct {
	period  string
	limit   int
	output  string
	noCache bool
}

func addRunFlags(cmd *cobra.Command, o *runOptions) {
	cmd.Flags().StringVarP(&o.period, "period", "p", "", "lookback window: 7d, 30d, 90d or 180d (default from config)")
	cmd.Flags().IntVarP(&o.limit, "limit", "l", 0, "number of top posts to fetch, 1-500 (default from config)")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "report path (default <subreddit>-insights-<date>.md)")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "ignore cached subreddit data")
}

// newRequest validates the flags against the config defaults
func newRequest(subreddit string, o runOptions, defaults config.FetchConfig) (app.Request, error) {
	name := reddit.NormalizeSubreddit(subreddit)
	if name == "" {
		return app.Request{}, fmt.Errorf("subreddit name is empty")
	}

	periodStr := o.period
	if periodStr == "" {
		periodStr = defaults.DefaultPeriod
	}
	period, err := reddit.ParsePeriod(periodStr)
	if err != nil {
		return app.Request{}, err
	}

	limit := o.limit
	if limit == 0 {
		limit = defaults.DefaultLimit
	}
	if limit < minLimit || limit > maxLimit {
		return app.Request{}, fmt.Errorf("--limit must be between %d and %d, got %d", minLimit, maxLimit, limit)
	}

	return app.Request{
		Subreddit: name,
		Period:    period,
		Limit:     limit,
		Output:    o.output,
		NoCache:   o.noCache,
	}, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	req, err := newRequest(args[0], rootRun, cfg.Fetch)
	if err != nil {
		return err
	}

	a, cleanup, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := a.Run(cmd.Context(), req)
	if err != nil {
		return explain(err)
	}

	source := "fetched"
	if res.Cached {
		source = "cached"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s (%d posts %s, %d comments, %d chunks)\n",
		res.Path, res.Stats.PostCount, source, res.Stats.CommentCount, res.Chunks)
	return nil
}

// explain adds a remedy to errors that have an obvious one
func explain(err error) error {
	switch {
	case errors.Is(err, app.ErrNoPosts):
		return fmt.Errorf("%w; try a longer --period", err)
	case errors.Is(err, analyzer.ErrMalformedResponse):
		return fmt.Errorf("%w; rerun with analysis.cache_exchanges = true to inspect the raw reply", err)
	}
	return err
}

// buildApp wires the pipeline from the loaded config. The returned cleanup
// closes the corpus cache.
func buildApp(ctx context.Context) (*app.App, func(), error) {
	httpClient := auth.NewHTTPClient(cfg.Reddit.UserAgent, httpTimeout)

	credentials, err := resolveCredentials(httpClient)
	if err != nil {
		logger.Warn("Ignoring stored credential", "err", err)
	}

	requestDelay, retryBase, retryAfter := cfg.Reddit.Durations()
	client := reddit.New(reddit.Options{
		HTTPClient:        httpClient,
		AnonBaseURL:       cfg.Reddit.AnonBaseURL,
		AuthBaseURL:       cfg.Reddit.AuthBaseURL,
		UserAgent:         cfg.Reddit.UserAgent,
		Credentials:       credentials,
		RequestDelay:      requestDelay,
		MaxRetries:        cfg.Reddit.MaxRetries,
		RetryBaseDelay:    retryBase,
		DefaultRetryAfter: retryAfter,
		CommentDepth:      cfg.Reddit.CommentDepth,
		CommentLimit:      cfg.Reddit.CommentLimit,
		Logger:            logger,
	})

	var exchanges *store.ExchangeLog
	if cfg.Analysis.CacheExchanges {
		dir, err := store.LLMCacheDir()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get LLM cache dir: %w", err)
		}
		exchanges = store.NewExchangeLog(dir)
	}

	provider, err := analyzer.NewProvider(ctx, cfg.Analysis, exchanges, logger)
	if err != nil {
		return nil, nil, err
	}

	an := analyzer.New(provider, analyzer.Options{
		MaxChunkChars: cfg.Analysis.MaxChunkChars(),
		Concurrency:   cfg.Analysis.Concurrency,
		Extended:      cfg.Analysis.Extended,
		Logger:        logger,
		Progress:      newProgress("Analyzing"),
	})

	reports, err := report.New(cfg.Report.TopPosts)
	if err != nil {
		return nil, nil, err
	}

	cache := openCache()
	cleanup := func() {
		if cache != nil {
			cache.Close()
		}
	}

	return app.New(app.Options{
		Fetcher:       client,
		Analyzer:      an,
		Reports:       reports,
		Cache:         cache,
		CacheTTL:      cfg.Cache.TTLDuration(),
		TopPosts:      cfg.Report.TopPosts,
		Logger:        logger,
		FetchProgress: newProgress("Fetching comments"),
	}), cleanup, nil
}

// openCache opens the corpus cache, returning nil when it is disabled or
// cannot be opened. A broken cache never stops a run.
func openCache() *store.Store {
	if !cfg.Cache.Enabled {
		return nil
	}

	path, err := store.DefaultPath()
	if err != nil {
		logger.Warn("Corpus cache disabled", "err", err)
		return nil
	}

	s, err := store.New(path)
	if err != nil {
		logger.Warn("Corpus cache disabled", "path", path, "err", err)
		return nil
	}
	return s
}
