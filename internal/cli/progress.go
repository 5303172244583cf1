package cli

import (
	"fmt"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// newProgress returns a progress callback drawing a bar on stderr, or nil
// when --quiet is set. A new bar starts once the previous one finished, so
// the callback can be reused across scheduled runs.
func newProgress(description string) func(done, total int) {
	if quiet {
		return nil
	}

	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)

	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil || bar.IsFinished() {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+description+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}

		_ = bar.Set(done)
	}
}
