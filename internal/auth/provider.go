// Package auth supplies Reddit credentials to the forum client. Three
// credential modes (app-only client credentials, user OAuth with refresh, and
// a captured browser session) sit behind the single Provider interface.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrNoCredential means no credential is configured; callers fall back to anonymous access.
	ErrNoCredential = errors.New("no credential configured")

	// ErrCredentialInvalid means a credential exists but was rejected or has gone stale.
	ErrCredentialInvalid = errors.New("credential invalid")
)

const (
	// ExpiryBuffer is how long before its declared expiry a token is treated as stale
	ExpiryBuffer = 5 * time.Minute

	// SessionFreshness is how long a captured browser session is trusted after its last update
	SessionFreshness = 30 * 24 * time.Hour
)

// Scheme is how a token is attached to a request
type Scheme int

const (
	SchemeBearer Scheme = iota
	SchemeCookie
)

// Token is a usable credential for a single request
type Token struct {
	Scheme Scheme
	Value  string
}

// Apply sets the authorization header matching the token's scheme
func (t Token) Apply(req *http.Request) {
	switch t.Scheme {
	case SchemeCookie:
		req.Header.Set("Cookie", t.Value)
	default:
		req.Header.Set("Authorization", "Bearer "+t.Value)
	}
}

// OAuthHost reports whether the token must be sent to the OAuth API host.
// Session cookies are only honoured by the regular web host.
func (t Token) OAuthHost() bool {
	return t.Scheme == SchemeBearer
}

// Provider hands out a token, or an error when none is usable.
// Errors are never fatal to a fetch: they only mean "anonymous access only".
type Provider interface {
	Token(ctx context.Context) (Token, error)
}

// OAuthOptions describes the Reddit OAuth application
type OAuthOptions struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	AuthorizeURL string
	RedirectURI  string
	Scopes       []string
}

func (o OAuthOptions) oauth2Config() *oauth2.Config {
	scopes := o.Scopes
	if len(scopes) == 0 {
		scopes = []string{"read"}
	}
	return &oauth2.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		RedirectURL:  o.RedirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   o.AuthorizeURL,
			TokenURL:  o.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// Resolve picks the provider for the stored credential, falling back to
// app-only when client credentials are configured. A nil provider means only
// anonymous access is possible. A corrupt store is reported alongside the
// fallback provider.
func Resolve(store *Store, opts OAuthOptions, httpClient *http.Client) (Provider, error) {
	cred, err := store.Load()
	if err == nil {
		switch cred.Mode {
		case ModeUserOAuth:
			return NewUserOAuthProvider(store, opts, httpClient), nil
		case ModeBrowserSession:
			return NewBrowserSessionProvider(store), nil
		case ModeAppOnly:
			if cred.ClientID != "" {
				opts.ClientID = cred.ClientID
				opts.ClientSecret = cred.ClientSecret
			}
		}
	}
	if errors.Is(err, ErrNoCredential) {
		err = nil
	}

	if strings.TrimSpace(opts.ClientID) == "" {
		return nil, err
	}
	return NewAppOnlyProvider(opts, httpClient), err
}

// NewHTTPClient returns a client that identifies itself with userAgent on
// every request, as Reddit requires for token endpoint calls too.
func NewHTTPClient(userAgent string, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &userAgentTransport{base: http.DefaultTransport, userAgent: userAgent},
	}
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" && t.userAgent != "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(req)
}

func withHTTPClient(ctx context.Context, httpClient *http.Client) context.Context {
	if httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, httpClient)
}

// fresh reports whether an access token may still be used at now
func fresh(accessToken string, expiresAt, now time.Time) bool {
	if accessToken == "" {
		return false
	}
	if expiresAt.IsZero() {
		return true
	}
	return now.Before(expiresAt.Add(-ExpiryBuffer))
}
