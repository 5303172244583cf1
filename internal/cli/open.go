package cli

import (
	"fmt"
	"os"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/kirvlasenkov/subreddit-insights/internal/config"
)

var openCmd = &cobra.Command{
	Use:       "open <config|cache>",
	Short:     "Open the config file or cache directory",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"config", "cache"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := openTarget(args[0])
		if err != nil {
			return err
		}
		if err := browser.OpenFile(path); err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		return nil
	},
}

// openTarget resolves the path for target, creating it when missing
func openTarget(target string) (string, error) {
	switch target {
	case "config":
		path := cfgFile
		if path == "" {
			var err error
			if path, err = config.ConfigPath(); err != nil {
				return "", err
			}
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := config.Default().Save(path); err != nil {
				return "", err
			}
		}
		return path, nil
	case "cache":
		dir, err := config.CacheDir()
		if err != nil {
			return "", err
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
		return dir, nil
	default:
		return "", fmt.Errorf("unknown target %q: use config or cache", target)
	}
}
