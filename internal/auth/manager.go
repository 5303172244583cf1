package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/pkg/browser"
	"golang.org/x/oauth2"

	browseropts "github.com/kirvlasenkov/subreddit-insights/internal/browser"
)

const (
	loginTimeout   = 5 * time.Minute
	redditLoginURL = "https://www.reddit.com/login"
	sessionCookie  = "reddit_session"
)

// Manager runs the login, logout and status flows
type Manager struct {
	store      *Store
	opts       OAuthOptions
	httpClient *http.Client
	logger     *slog.Logger
	openURL    func(string) error
	now        func() time.Time
}

// NewManager creates a new auth manager
func NewManager(store *Store, opts OAuthOptions, httpClient *http.Client, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:      store,
		opts:       opts,
		httpClient: httpClient,
		logger:     logger,
		openURL:    browser.OpenURL,
		now:        time.Now,
	}
}

// Status describes the stored credential
type Status struct {
	Mode      Mode
	LoggedIn  bool
	Usable    bool
	ExpiresAt time.Time
	UpdatedAt time.Time
	Path      string
}

// Status inspects the stored credential without contacting Reddit.
// A user OAuth token past expiry is still usable when it can be refreshed.
func (m *Manager) Status() (Status, error) {
	st := Status{Path: m.store.Path()}

	cred, err := m.store.Load()
	if errors.Is(err, ErrNoCredential) {
		return st, nil
	}
	if err != nil {
		return st, err
	}

	st.Mode = cred.Mode
	st.LoggedIn = true
	st.ExpiresAt = cred.ExpiresAt
	st.UpdatedAt = cred.UpdatedAt

	now := m.now()
	switch cred.Mode {
	case ModeUserOAuth:
		st.Usable = fresh(cred.AccessToken, cred.ExpiresAt, now) || cred.RefreshToken != ""
	case ModeBrowserSession:
		st.Usable = !now.After(cred.UpdatedAt.Add(SessionFreshness)) && CookieHeader(cred.Cookies) != ""
	case ModeAppOnly:
		st.Usable = cred.ClientID != ""
	}

	return st, nil
}

// Logout clears stored credentials
func (m *Manager) Logout() error {
	return m.store.Clear()
}

// LoginAppOnly verifies the configured client credentials against the token
// endpoint and stores them.
func (m *Manager) LoginAppOnly(ctx context.Context) error {
	if m.opts.ClientID == "" {
		return fmt.Errorf("client id is not set: add reddit.client_id to the config or export REDDIT_CLIENT_ID")
	}

	if _, err := NewAppOnlyProvider(m.opts, m.httpClient).Token(ctx); err != nil {
		return err
	}

	return m.store.Save(&Credential{
		Mode:         ModeAppOnly,
		ClientID:     m.opts.ClientID,
		ClientSecret: m.opts.ClientSecret,
		UpdatedAt:    m.now(),
	})
}

// LoginOAuth runs the authorization code flow: it serves the redirect URI on
// the loopback interface, sends the user to Reddit's consent page and
// exchanges the returned code for a refreshable token pair.
func (m *Manager) LoginOAuth(ctx context.Context) error {
	if m.opts.ClientID == "" {
		return fmt.Errorf("client id is not set: add reddit.client_id to the config or export REDDIT_CLIENT_ID")
	}

	redirect, err := url.Parse(m.opts.RedirectURI)
	if err != nil {
		return fmt.Errorf("invalid redirect URI %q: %w", m.opts.RedirectURI, err)
	}

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}

	state := uuid.NewString()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			trySend(errCh, fmt.Errorf("authorization callback state mismatch"))
		case q.Get("error") != "":
			http.Error(w, "authorization denied", http.StatusBadRequest)
			trySend(errCh, fmt.Errorf("authorization denied: %s", q.Get("error")))
		default:
			fmt.Fprintln(w, "Login complete. You can close this window.")
			trySend(codeCh, q.Get("code"))
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go srv.Serve(ln)
	defer srv.Shutdown(context.Background())

	cfg := m.opts.oauth2Config()
	authURL := cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("duration", "permanent"))

	m.logger.Info("Opening browser for Reddit authorization", "url", authURL)
	if err := m.openURL(authURL); err != nil {
		m.logger.Warn("Could not open browser, visit the URL manually", "err", err)
	}

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return err
	case <-time.After(loginTimeout):
		return fmt.Errorf("login timeout exceeded")
	case <-ctx.Done():
		return ctx.Err()
	}

	tok, err := cfg.Exchange(withHTTPClient(ctx, m.httpClient), code)
	if err != nil {
		return fmt.Errorf("%w: code exchange failed: %v", ErrCredentialInvalid, err)
	}

	return m.store.Save(&Credential{
		Mode:         ModeUserOAuth,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
		UpdatedAt:    m.now(),
	})
}

// LoginBrowser opens a browser window for the user to log in to Reddit and
// stores the resulting session cookies.
func (m *Manager) LoginBrowser(ctx context.Context) error {
	profileDir, err := browseropts.ProfileDir()
	if err != nil {
		m.logger.Warn("Using a temporary browser profile", "err", err)
		profileDir = ""
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, browseropts.LoginOptions(profileDir)...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	if err := chromedp.Run(browserCtx, chromedp.Navigate(redditLoginURL)); err != nil {
		return fmt.Errorf("failed to navigate to login page: %w", err)
	}

	cookies, err := m.waitForSession(browserCtx)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	return m.store.Save(&Credential{
		Mode:      ModeBrowserSession,
		Cookies:   cookies,
		UpdatedAt: m.now(),
	})
}

// waitForSession polls the browser's cookie jar until the session cookie appears
func (m *Manager) waitForSession(ctx context.Context) ([]*network.Cookie, error) {
	timeout := time.After(loginTimeout)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			return nil, fmt.Errorf("login timeout exceeded")
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			var cookies []*network.Cookie
			err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
				var err error
				cookies, err = storage.GetCookies().Do(ctx)
				return err
			}))
			if err != nil {
				continue
			}
			for _, c := range cookies {
				if c.Name == sessionCookie && c.Value != "" && isRedditDomain(c.Domain) {
					return cookies, nil
				}
			}
		}
	}
}

// trySend delivers v unless the channel already holds a value, so repeated
// callbacks never block the handler.
func trySend[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}
