package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/kirvlasenkov/subreddit-insights/internal/config"
)

// Mode identifies which kind of credential is stored
type Mode string

const (
	ModeAppOnly        Mode = "appOnly"
	ModeUserOAuth      Mode = "userOAuth"
	ModeBrowserSession Mode = "browserSession"
)

// Credential is the single persisted login. Which fields are set depends on Mode.
type Credential struct {
	Mode Mode `json:"mode"`

	// appOnly
	ClientID     string `json:"clientId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`

	// userOAuth
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt,omitzero"`

	// browserSession
	Cookies []*network.Cookie `json:"cookies,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists the active credential as a JSON file readable only by the owner
type Store struct {
	path string
}

// NewStore creates a credential store at the given path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStorePath returns the default path for credential storage
func DefaultStorePath() (string, error) {
	configDir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "credentials.json"), nil
}

// Path returns the file backing the store
func (s *Store) Path() string {
	return s.path
}

// Save persists the credential, replacing any previous one
func (s *Store) Save(cred *Credential) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return err
	}
	// WriteFile keeps the mode of an existing file
	return os.Chmod(s.path, 0600)
}

// Load reads the stored credential. A missing file yields ErrNoCredential.
func (s *Store) Load() (*Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoCredential
		}
		return nil, err
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}

	return &cred, nil
}

// Clear removes the stored credential. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
