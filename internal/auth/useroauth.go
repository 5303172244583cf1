package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// UserOAuthProvider serves the persisted user token, exchanging the refresh
// token when the access token goes stale and persisting the refreshed pair.
type UserOAuthProvider struct {
	mu         sync.Mutex
	store      *Store
	config     *oauth2.Config
	httpClient *http.Client
	now        func() time.Time
}

// NewUserOAuthProvider creates a provider backed by the credential store
func NewUserOAuthProvider(store *Store, opts OAuthOptions, httpClient *http.Client) *UserOAuthProvider {
	return &UserOAuthProvider{
		store:      store,
		config:     opts.oauth2Config(),
		httpClient: httpClient,
		now:        time.Now,
	}
}

func (p *UserOAuthProvider) Token(ctx context.Context) (Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cred, err := p.store.Load()
	if err != nil {
		return Token{}, err
	}
	if cred.Mode != ModeUserOAuth {
		return Token{}, ErrNoCredential
	}

	now := p.now()
	if fresh(cred.AccessToken, cred.ExpiresAt, now) {
		return Token{Scheme: SchemeBearer, Value: cred.AccessToken}, nil
	}

	if cred.RefreshToken == "" {
		return Token{}, fmt.Errorf("%w: access token expired and no refresh token is stored", ErrCredentialInvalid)
	}

	// An empty access token forces the token source to refresh
	src := p.config.TokenSource(withHTTPClient(ctx, p.httpClient), &oauth2.Token{RefreshToken: cred.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return Token{}, fmt.Errorf("%w: refresh rejected: %v", ErrCredentialInvalid, err)
	}

	cred.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		cred.RefreshToken = tok.RefreshToken
	}
	cred.ExpiresAt = tok.Expiry
	cred.UpdatedAt = now

	if err := p.store.Save(cred); err != nil {
		return Token{}, fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	return Token{Scheme: SchemeBearer, Value: cred.AccessToken}, nil
}
