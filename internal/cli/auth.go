package cli

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirvlasenkov/subreddit-insights/internal/auth"
	"github.com/kirvlasenkov/subreddit-insights/internal/config"
)

// Login modes accepted by `auth login --mode`
const (
	loginOAuth   = "oauth"
	loginApp     = "app"
	loginBrowser = "browser"
)

var loginMode string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Reddit credentials",
	Long: `Reddit credentials are only used when a subreddit refuses anonymous access.
Exactly one credential is stored at a time; logging in replaces it.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a Reddit credential",
	Long: `Modes:
  oauth    authorize this tool in the browser (needs reddit.client_id)
  app      verify and store the configured client id and secret
  browser  log in to reddit.com in a Chrome window and keep the session cookies`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored credential",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newAuthManager()
		if err != nil {
			return err
		}
		if err := m.Logout(); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored credential",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

func init() {
	authLoginCmd.Flags().StringVarP(&loginMode, "mode", "m", loginOAuth, "credential mode: oauth, app or browser")
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd)
}

func oauthOptions(c *config.Config) auth.OAuthOptions {
	return auth.OAuthOptions{
		ClientID:     c.Reddit.ClientID,
		ClientSecret: c.Reddit.ClientSecret,
		TokenURL:     c.Reddit.TokenURL,
		AuthorizeURL: c.Reddit.AuthorizeURL,
		RedirectURI:  c.Reddit.RedirectURI,
	}
}

func credentialStore() (*auth.Store, error) {
	path, err := auth.DefaultStorePath()
	if err != nil {
		return nil, fmt.Errorf("failed to get credential store path: %w", err)
	}
	return auth.NewStore(path), nil
}

func newAuthManager() (*auth.Manager, error) {
	store, err := credentialStore()
	if err != nil {
		return nil, err
	}
	httpClient := auth.NewHTTPClient(cfg.Reddit.UserAgent, httpTimeout)
	return auth.NewManager(store, oauthOptions(cfg), httpClient, logger), nil
}

// resolveCredentials picks the provider the forum client escalates with
func resolveCredentials(httpClient *http.Client) (auth.Provider, error) {
	store, err := credentialStore()
	if err != nil {
		return nil, err
	}
	return auth.Resolve(store, oauthOptions(cfg), httpClient)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	m, err := newAuthManager()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	switch strings.ToLower(loginMode) {
	case loginOAuth:
		err = m.LoginOAuth(ctx)
	case loginApp:
		err = m.LoginAppOnly(ctx)
	case loginBrowser:
		fmt.Fprintln(cmd.OutOrStdout(), "Log in to Reddit in the browser window that opens...")
		err = m.LoginBrowser(ctx)
	default:
		return fmt.Errorf("unknown login mode %q: use oauth, app or browser", loginMode)
	}
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Login successful - credential saved")
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	m, err := newAuthManager()
	if err != nil {
		return err
	}

	st, err := m.Status()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !st.LoggedIn {
		fmt.Fprintln(out, "Not logged in.")
		if cfg.Reddit.ClientID != "" {
			fmt.Fprintln(out, "Client credentials are configured; app-only access will be used when needed.")
		} else {
			fmt.Fprintln(out, "Only anonymous access is available.")
		}
		return nil
	}

	fmt.Fprintf(out, "Mode:     %s\n", st.Mode)
	fmt.Fprintf(out, "Usable:   %s\n", yesNo(st.Usable))
	if !st.ExpiresAt.IsZero() {
		fmt.Fprintf(out, "Expires:  %s\n", st.ExpiresAt.Local().Format(time.RFC1123))
	}
	if st.Mode == auth.ModeBrowserSession {
		fmt.Fprintf(out, "Stale at: %s\n", st.UpdatedAt.Add(auth.SessionFreshness).Local().Format(time.RFC1123))
	}
	fmt.Fprintf(out, "Updated:  %s\n", st.UpdatedAt.Local().Format(time.RFC1123))
	fmt.Fprintf(out, "File:     %s\n", st.Path)

	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
