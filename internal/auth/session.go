package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
)

// BrowserSessionProvider serves the cookie set captured from a logged-in
// browser. Sessions are trusted for SessionFreshness after their last update.
type BrowserSessionProvider struct {
	store *Store
	now   func() time.Time
}

// NewBrowserSessionProvider creates a provider backed by the credential store
func NewBrowserSessionProvider(store *Store) *BrowserSessionProvider {
	return &BrowserSessionProvider{store: store, now: time.Now}
}

func (p *BrowserSessionProvider) Token(ctx context.Context) (Token, error) {
	cred, err := p.store.Load()
	if err != nil {
		return Token{}, err
	}
	if cred.Mode != ModeBrowserSession {
		return Token{}, ErrNoCredential
	}

	if p.now().After(cred.UpdatedAt.Add(SessionFreshness)) {
		return Token{}, fmt.Errorf("%w: browser session last updated %s, log in again",
			ErrCredentialInvalid, cred.UpdatedAt.Format(time.DateOnly))
	}

	header := CookieHeader(cred.Cookies)
	if header == "" {
		return Token{}, fmt.Errorf("%w: no reddit cookies in stored session", ErrCredentialInvalid)
	}

	return Token{Scheme: SchemeCookie, Value: header}, nil
}

// CookieHeader renders the reddit.com cookies as a Cookie header value
func CookieHeader(cookies []*network.Cookie) string {
	var parts []string
	for _, c := range cookies {
		if c == nil || c.Value == "" {
			continue
		}
		if !isRedditDomain(c.Domain) {
			continue
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

func isRedditDomain(domain string) bool {
	domain = strings.TrimPrefix(domain, ".")
	return domain == "reddit.com" || strings.HasSuffix(domain, ".reddit.com")
}
