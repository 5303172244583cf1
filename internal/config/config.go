package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const appName = "subreddit-insights"

// LLM provider identifiers
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Config holds all application configuration
type Config struct {
	Version  int            `toml:"version"`
	Reddit   RedditConfig   `toml:"reddit"`
	Fetch    FetchConfig    `toml:"fetch"`
	Analysis AnalysisConfig `toml:"analysis"`
	Cache    CacheConfig    `toml:"cache"`
	Report   ReportConfig   `toml:"report"`
	Logging  LoggingConfig  `toml:"logging"`
}

type RedditConfig struct {
	AnonBaseURL       string `toml:"anon_base_url"`
	AuthBaseURL       string `toml:"auth_base_url"`
	TokenURL          string `toml:"token_url"`
	AuthorizeURL      string `toml:"authorize_url"`
	UserAgent         string `toml:"user_agent"`
	ClientID          string `toml:"client_id"`
	ClientSecret      string `toml:"client_secret"`
	RedirectURI       string `toml:"redirect_uri"`
	RequestDelay      string `toml:"request_delay"`
	MaxRetries        int    `toml:"max_retries"`
	RetryBaseDelay    string `toml:"retry_base_delay"`
	DefaultRetryAfter string `toml:"default_retry_after"`
	CommentDepth      int    `toml:"comment_depth"`
	CommentLimit      int    `toml:"comment_limit"`
}

type FetchConfig struct {
	DefaultPeriod string `toml:"default_period"`
	DefaultLimit  int    `toml:"default_limit"`
}

type AnalysisConfig struct {
	LLMProvider    string `toml:"llm_provider"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	MaxChunkTokens int    `toml:"max_chunk_tokens"`
	CharsPerToken  int    `toml:"chars_per_token"`
	Concurrency    int    `toml:"concurrency"`
	Extended       bool   `toml:"extended"`
	CacheExchanges bool   `toml:"cache_exchanges"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	TTL     string `toml:"ttl"`
}

type ReportConfig struct {
	TopPosts int `toml:"top_posts"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

const (
	DefaultRequestDelay    = time.Second
	DefaultRetryBaseDelay  = 2 * time.Second
	DefaultRetryAfter      = 60 * time.Second
	DefaultCacheTTL        = time.Hour
	DefaultAnthropicModel  = "claude-sonnet-4-20250514"
	DefaultGeminiModel     = "gemini-2.5-flash"
	defaultUserAgent       = "subreddit-insights/1.0 (product research tool)"
	defaultRedirectURI     = "http://localhost:8765/callback"
	defaultMaxChunkTokens  = 100000
	defaultCharsPerToken   = 4
	defaultAnalysisWorkers = 2
	defaultCommentDepth    = 3
	defaultCommentLimit    = 100
	defaultFetchLimit      = 100
	defaultFetchPeriod     = "30d"
	defaultReportTopPosts  = 5
	defaultMaxRetries      = 3
	defaultLogLevel        = "info"
	defaultAnonBaseURL     = "https://www.reddit.com"
	defaultAuthBaseURL     = "https://oauth.reddit.com"
	defaultTokenURL        = "https://www.reddit.com/api/v1/access_token"
	defaultAuthorizeURL    = "https://www.reddit.com/api/v1/authorize"
)

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Reddit: RedditConfig{
			AnonBaseURL:       defaultAnonBaseURL,
			AuthBaseURL:       defaultAuthBaseURL,
			TokenURL:          defaultTokenURL,
			AuthorizeURL:      defaultAuthorizeURL,
			UserAgent:         defaultUserAgent,
			RedirectURI:       defaultRedirectURI,
			RequestDelay:      DefaultRequestDelay.String(),
			MaxRetries:        defaultMaxRetries,
			RetryBaseDelay:    DefaultRetryBaseDelay.String(),
			DefaultRetryAfter: DefaultRetryAfter.String(),
			CommentDepth:      defaultCommentDepth,
			CommentLimit:      defaultCommentLimit,
		},
		Fetch: FetchConfig{
			DefaultPeriod: defaultFetchPeriod,
			DefaultLimit:  defaultFetchLimit,
		},
		Analysis: AnalysisConfig{
			LLMProvider:    ProviderAnthropic,
			Model:          DefaultAnthropicModel,
			MaxChunkTokens: defaultMaxChunkTokens,
			CharsPerToken:  defaultCharsPerToken,
			Concurrency:    defaultAnalysisWorkers,
			Extended:       true,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     DefaultCacheTTL.String(),
		},
		Report: ReportConfig{
			TopPosts: defaultReportTopPosts,
		},
		Logging: LoggingConfig{
			Level: defaultLogLevel,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the platform-appropriate cache directory
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, appName), nil
}

// Load reads config from path, or from ConfigPath when path is empty.
// Values missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes config to path, or to ConfigPath when path is empty
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

// LoadEnv reads a .env file from the working directory if one exists and
// applies environment overrides to the config.
func (c *Config) LoadEnv() {
	_ = godotenv.Load()
	c.ApplyEnv(os.Getenv)
	c.Normalize()
}

// ApplyEnv overrides secrets and identity settings from the environment
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&c.Reddit.ClientID, "REDDIT_CLIENT_ID")
	set(&c.Reddit.ClientSecret, "REDDIT_CLIENT_SECRET")
	set(&c.Reddit.UserAgent, "REDDIT_USER_AGENT")
	set(&c.Analysis.LLMProvider, "SUBREDDIT_INSIGHTS_LLM_PROVIDER")

	if c.Analysis.APIKey == "" {
		switch c.Analysis.LLMProvider {
		case ProviderGemini:
			set(&c.Analysis.APIKey, "GEMINI_API_KEY")
		default:
			set(&c.Analysis.APIKey, "ANTHROPIC_API_KEY")
		}
	}
}

// Normalize fills zero values with defaults
func (c *Config) Normalize() {
	d := Default()

	if c.Reddit.AnonBaseURL == "" {
		c.Reddit.AnonBaseURL = d.Reddit.AnonBaseURL
	}
	if c.Reddit.AuthBaseURL == "" {
		c.Reddit.AuthBaseURL = d.Reddit.AuthBaseURL
	}
	if c.Reddit.TokenURL == "" {
		c.Reddit.TokenURL = d.Reddit.TokenURL
	}
	if c.Reddit.AuthorizeURL == "" {
		c.Reddit.AuthorizeURL = d.Reddit.AuthorizeURL
	}
	if c.Reddit.UserAgent == "" {
		c.Reddit.UserAgent = d.Reddit.UserAgent
	}
	if c.Reddit.RedirectURI == "" {
		c.Reddit.RedirectURI = d.Reddit.RedirectURI
	}
	if c.Reddit.MaxRetries <= 0 {
		c.Reddit.MaxRetries = d.Reddit.MaxRetries
	}
	if c.Reddit.CommentDepth <= 0 {
		c.Reddit.CommentDepth = d.Reddit.CommentDepth
	}
	if c.Reddit.CommentLimit <= 0 {
		c.Reddit.CommentLimit = d.Reddit.CommentLimit
	}
	if c.Fetch.DefaultPeriod == "" {
		c.Fetch.DefaultPeriod = d.Fetch.DefaultPeriod
	}
	if c.Fetch.DefaultLimit <= 0 {
		c.Fetch.DefaultLimit = d.Fetch.DefaultLimit
	}
	if c.Analysis.LLMProvider == "" {
		c.Analysis.LLMProvider = d.Analysis.LLMProvider
	}
	if c.Analysis.LLMProvider == ProviderGemini && (c.Analysis.Model == "" || c.Analysis.Model == DefaultAnthropicModel) {
		c.Analysis.Model = DefaultGeminiModel
	}
	if c.Analysis.Model == "" {
		c.Analysis.Model = DefaultAnthropicModel
	}
	if c.Analysis.MaxChunkTokens <= 0 {
		c.Analysis.MaxChunkTokens = d.Analysis.MaxChunkTokens
	}
	if c.Analysis.CharsPerToken <= 0 {
		c.Analysis.CharsPerToken = d.Analysis.CharsPerToken
	}
	if c.Analysis.Concurrency <= 0 {
		c.Analysis.Concurrency = d.Analysis.Concurrency
	}
	if c.Report.TopPosts <= 0 {
		c.Report.TopPosts = d.Report.TopPosts
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

// MaxChunkChars converts the token budget into the character budget the
// chunker measures against.
func (a AnalysisConfig) MaxChunkChars() int {
	return a.MaxChunkTokens * a.CharsPerToken
}

// Durations returns the parsed pacing and retry durations, falling back to
// defaults for empty or invalid strings.
func (r RedditConfig) Durations() (requestDelay, retryBase, retryAfter time.Duration) {
	return ParseDuration(r.RequestDelay, DefaultRequestDelay),
		ParseDuration(r.RetryBaseDelay, DefaultRetryBaseDelay),
		ParseDuration(r.DefaultRetryAfter, DefaultRetryAfter)
}

// TTLDuration returns the cache TTL
func (c CacheConfig) TTLDuration() time.Duration {
	return ParseDuration(c.TTL, DefaultCacheTTL)
}

// ParseDuration parses s, returning fallback when s is empty or invalid.
// "0s" is honoured so pacing can be disabled.
func ParseDuration(s string, fallback time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
