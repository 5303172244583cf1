// Package browser configures the Chrome window used for the interactive
// Reddit session login.
package browser

import (
	"path/filepath"

	"github.com/chromedp/chromedp"

	"github.com/kirvlasenkov/subreddit-insights/internal/config"
)

// UserAgent is presented by the login window instead of HeadlessChrome's
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// ProfileDir returns the Chrome profile kept between logins, so a second
// login can reuse a still-valid reddit.com session.
func ProfileDir() (string, error) {
	dir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chrome-profile"), nil
}

// LoginOptions returns allocator options for a visible login window using
// profileDir. An empty profileDir gives a throwaway profile.
func LoginOptions(profileDir string) []chromedp.ExecAllocatorOption {
	opts := make([]chromedp.ExecAllocatorOption, 0, len(chromedp.DefaultExecAllocatorOptions)+8)
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", false),
		// reddit refuses logins when navigator.webdriver is set
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(UserAgent),
		chromedp.WindowSize(1280, 900),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)
	if profileDir != "" {
		opts = append(opts, chromedp.UserDataDir(profileDir))
	}
	return opts
}
