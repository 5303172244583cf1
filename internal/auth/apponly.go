package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// AppOnlyProvider fetches application-only tokens with the client
// credentials grant and caches them in memory.
type AppOnlyProvider struct {
	mu         sync.Mutex
	config     clientcredentials.Config
	httpClient *http.Client
	token      *oauth2.Token
	now        func() time.Time
}

// NewAppOnlyProvider creates a provider for the given OAuth application
func NewAppOnlyProvider(opts OAuthOptions, httpClient *http.Client) *AppOnlyProvider {
	return &AppOnlyProvider{
		config: clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Token returns the cached token, fetching a new one when it is within
// ExpiryBuffer of expiring.
func (p *AppOnlyProvider) Token(ctx context.Context) (Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != nil && fresh(p.token.AccessToken, p.token.Expiry, p.now()) {
		return Token{Scheme: SchemeBearer, Value: p.token.AccessToken}, nil
	}

	tok, err := p.config.Token(withHTTPClient(ctx, p.httpClient))
	if err != nil {
		return Token{}, fmt.Errorf("%w: client credentials grant failed: %v", ErrCredentialInvalid, err)
	}
	p.token = tok

	return Token{Scheme: SchemeBearer, Value: tok.AccessToken}, nil
}

// ClearToken drops the cached token so the next call fetches a fresh one
func (p *AppOnlyProvider) ClearToken() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = nil
}
