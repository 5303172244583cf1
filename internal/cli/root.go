// Package cli implements the subreddit-insights command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirvlasenkov/subreddit-insights/internal/config"
	"github.com/kirvlasenkov/subreddit-insights/internal/logging"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
	quiet   bool
	verbose bool

	rootRun runOptions
)

var rootCmd = &cobra.Command{
	Use:   "subreddit-insights <subreddit>",
	Short: "Product research insights from a subreddit",
	Long: `subreddit-insights fetches the top posts and comment trees of a subreddit,
asks an LLM to extract pain points, patterns, quotes and hypotheses, and writes
the result as a markdown report.

Example usage:
  subreddit-insights golang                      # last 30 days, 100 posts
  subreddit-insights r/selfhosted --period 90d   # last quarter
  subreddit-insights auth login --mode app       # use Reddit API credentials
  subreddit-insights watch golang --schedule "0 7 * * 1"`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		switch {
		case verbose:
			level = "debug"
		case quiet:
			level = "warn"
		}
		logger = logging.New(level, os.Stderr)
		slog.SetDefault(logger)

		return nil
	},
	RunE: runAnalyze,
}

// Execute runs the root command, printing any terminal error as one line
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "hide progress bars and informational logs")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	addRunFlags(rootCmd, &rootRun)

	rootCmd.AddCommand(authCmd, watchCmd, openCmd)
}

// loadConfig reads the config file and applies .env and environment
// overrides. The default config file is created on first run; an explicit
// path must exist.
func loadConfig(path string) (*config.Config, error) {
	c, err := config.Load(path)
	if err != nil {
		if !os.IsNotExist(err) || path != "" {
			return nil, err
		}
		c = config.Default()
		if err := c.Save(""); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save default config: %v\n", err)
		}
	}

	c.LoadEnv()
	return c, nil
}
