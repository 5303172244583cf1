// Package reddit fetches subreddit posts and comment trees from Reddit's
// JSON API. Requests start on the anonymous host and escalate to an
// authenticated one for the rest of a fetch when Reddit refuses access.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kirvlasenkov/subreddit-insights/internal/auth"
	"github.com/kirvlasenkov/subreddit-insights/internal/types"
)

// pageSize is the largest page Reddit serves for a listing
const pageSize = 100

var subredditName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_]{1,20}$`)

// Options configures a Client. Zero durations disable the matching wait.
type Options struct {
	HTTPClient  *http.Client
	AnonBaseURL string
	AuthBaseURL string
	UserAgent   string

	// Credentials is asked for a token when the anonymous host answers 403.
	// Nil means anonymous access only.
	Credentials auth.Provider

	RequestDelay      time.Duration
	MaxRetries        int
	RetryBaseDelay    time.Duration
	DefaultRetryAfter time.Duration

	CommentDepth int
	CommentLimit int

	Logger *slog.Logger
}

// FetchOptions selects what FetchCorpus collects
type FetchOptions struct {
	Period Period
	Limit  int

	// Progress, when set, is called after each post's comments are fetched
	Progress func(done, total int)
}

// Client talks to the Reddit JSON API
type Client struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a client, filling unset options with Reddit's public hosts
// and the default retry policy.
func New(opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.AnonBaseURL == "" {
		opts.AnonBaseURL = siteURL
	}
	if opts.AuthBaseURL == "" {
		opts.AuthBaseURL = "https://oauth.reddit.com"
	}
	opts.AnonBaseURL = strings.TrimRight(opts.AnonBaseURL, "/")
	opts.AuthBaseURL = strings.TrimRight(opts.AuthBaseURL, "/")
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.CommentDepth <= 0 {
		opts.CommentDepth = 3
	}
	if opts.CommentLimit <= 0 {
		opts.CommentLimit = 100
	}
	if opts.DefaultRetryAfter <= 0 {
		opts.DefaultRetryAfter = 60 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		opts:   opts,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// fetchSession is the mutable state of a single FetchCorpus call. Once
// escalated it stays escalated until the call returns.
type fetchSession struct {
	baseURL     string
	escalated   bool
	token       auth.Token
	credErr     error
	lastRequest time.Time
}

// NormalizeSubreddit strips an "r/" prefix and surrounding whitespace
func NormalizeSubreddit(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	name = strings.TrimPrefix(name, "r/")
	return strings.Trim(name, "/")
}

// FetchCorpus collects up to opts.Limit top posts of the subreddit created
// within opts.Period, along with each post's comment tree.
func (c *Client) FetchCorpus(ctx context.Context, name string, opts FetchOptions) (*types.Corpus, error) {
	name = NormalizeSubreddit(name)
	if !subredditName.MatchString(name) {
		return nil, fmt.Errorf("invalid subreddit name %q", name)
	}
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", opts.Limit)
	}
	if opts.Period == "" {
		opts.Period = PeriodMonth
	}
	if _, err := ParsePeriod(string(opts.Period)); err != nil {
		return nil, err
	}

	logger := c.logger.With("subreddit", name)
	s := &fetchSession{baseURL: c.opts.AnonBaseURL}

	posts, err := c.fetchPosts(ctx, s, name, opts.Period, opts.Limit)
	if err != nil {
		return nil, describe(err, name, s)
	}
	logger.Info("Fetched posts", "count", len(posts), "period", opts.Period)

	corpus := types.NewCorpus(name)
	corpus.Posts = posts

	for i, post := range posts {
		comments, err := c.fetchComments(ctx, s, name, post.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Failed to fetch comments, continuing without them", "post_id", post.ID, "err", err)
			comments = []types.Comment{}
		}
		corpus.Comments[post.ID] = comments

		if opts.Progress != nil {
			opts.Progress(i+1, len(posts))
		}
	}

	return corpus, nil
}

// describe attaches the subreddit and a remedy to terminal errors
func describe(err error, name string, s *fetchSession) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Errorf("%w: r/%s does not exist, check the spelling", ErrNotFound, name)
	case errors.Is(err, ErrForbidden):
		msg := fmt.Sprintf("r/%s is likely private or banned; run `subreddit-insights auth login` or set REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET", name)
		if s.credErr != nil {
			msg += fmt.Sprintf(" (stored credential unusable: %v)", s.credErr)
		}
		return fmt.Errorf("%w: %s", ErrForbidden, msg)
	default:
		return fmt.Errorf("failed to fetch posts from r/%s: %w", name, err)
	}
}

func (c *Client) fetchPosts(ctx context.Context, s *fetchSession, name string, period Period, limit int) ([]types.Post, error) {
	cutoff := period.Cutoff(c.now())
	posts := make([]types.Post, 0, limit)
	seen := make(map[string]bool)
	after := ""

	for len(posts) < limit {
		q := url.Values{}
		q.Set("t", period.TimeFilter())
		q.Set("limit", strconv.Itoa(min(pageSize, limit-len(posts))))
		if after != "" {
			q.Set("after", after)
		}

		var page listing
		if err := c.get(ctx, s, "/r/"+name+"/top.json", q, &page); err != nil {
			return nil, err
		}
		if len(page.Data.Children) == 0 {
			break
		}

		for _, child := range page.Data.Children {
			if child.Kind != kindPost {
				continue
			}
			var d postData
			if err := json.Unmarshal(child.Data, &d); err != nil || d.ID == "" {
				continue
			}
			post := d.toPost(name)
			if seen[post.ID] || post.CreatedAt.Before(cutoff) {
				continue
			}
			seen[post.ID] = true
			posts = append(posts, post)
			if len(posts) == limit {
				break
			}
		}

		after = page.Data.After
		if after == "" {
			break
		}
	}

	return posts, nil
}

func (c *Client) fetchComments(ctx context.Context, s *fetchSession, name, postID string) ([]types.Comment, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.opts.CommentLimit))
	q.Set("depth", strconv.Itoa(c.opts.CommentDepth))

	var resp []listing
	if err := c.get(ctx, s, "/r/"+name+"/comments/"+postID+".json", q, &resp); err != nil {
		return nil, err
	}
	if len(resp) < 2 {
		return []types.Comment{}, nil
	}

	return parseComments(resp[1], postID), nil
}

// get performs one logical request against the session's current host and
// decodes the JSON body into out. 429 responses are retried for as long as
// the server asks; network failures and unexpected statuses share the retry
// budget; a 403 escalates the session once when a credential is available.
func (c *Client) get(ctx context.Context, s *fetchSession, path string, query url.Values, out any) error {
	query.Set("raw_json", "1")
	attempt := 0

	for {
		if err := c.pace(ctx, s); err != nil {
			return err
		}

		status, header, body, err := c.send(ctx, s, path, query)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			attempt++
			if attempt >= c.opts.MaxRetries {
				return &RetryError{Attempts: attempt, Err: err}
			}
			if err := c.backoff(ctx, path, attempt, err); err != nil {
				return err
			}
			continue
		}

		switch {
		case status >= 200 && status < 300:
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("failed to decode %s: %w", path, err)
			}
			return nil

		case status == http.StatusTooManyRequests:
			wait := retryAfter(header, c.now(), c.opts.DefaultRetryAfter)
			c.logger.Warn("Rate limited, backing off", "path", path, "retry_after", wait)
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}

		case status == http.StatusForbidden:
			if s.escalated || !c.escalate(ctx, s) {
				return ErrForbidden
			}

		case status == http.StatusNotFound:
			return ErrNotFound

		default:
			attempt++
			if attempt >= c.opts.MaxRetries {
				return &StatusError{StatusCode: status, Attempts: attempt}
			}
			if err := c.backoff(ctx, path, attempt, fmt.Errorf("HTTP %d", status)); err != nil {
				return err
			}
		}
	}
}

// escalate asks the credential provider for a token and, on success, moves
// the session onto the authenticated host for the rest of the fetch.
// Session cookies are only honoured by the web host, so cookie tokens keep
// the anonymous base URL.
func (c *Client) escalate(ctx context.Context, s *fetchSession) bool {
	if c.opts.Credentials == nil {
		return false
	}

	tok, err := c.opts.Credentials.Token(ctx)
	if err != nil {
		s.credErr = err
		c.logger.Warn("Access refused and no usable credential", "err", err)
		return false
	}

	s.escalated = true
	s.token = tok
	if tok.OAuthHost() {
		s.baseURL = c.opts.AuthBaseURL
	}
	c.logger.Info("Access refused anonymously, switching to authenticated requests", "base_url", s.baseURL)
	return true
}

func (c *Client) backoff(ctx context.Context, path string, attempt int, cause error) error {
	delay := time.Duration(attempt) * c.opts.RetryBaseDelay
	c.logger.Warn("Request failed, retrying", "path", path, "attempt", attempt, "delay", delay, "err", cause)
	return c.sleep(ctx, delay)
}

// pace keeps successive requests of a session at least RequestDelay apart
func (c *Client) pace(ctx context.Context, s *fetchSession) error {
	if s.lastRequest.IsZero() || c.opts.RequestDelay <= 0 {
		return nil
	}
	wait := s.lastRequest.Add(c.opts.RequestDelay).Sub(c.now())
	if wait <= 0 {
		return nil
	}
	return c.sleep(ctx, wait)
}

// send issues a single HTTP request and reads the whole body. Transport and
// body read failures are returned as errors; any status is not.
func (c *Client) send(ctx context.Context, s *fetchSession, path string, query url.Values) (int, http.Header, []byte, error) {
	if s.escalated {
		c.refreshToken(ctx, s)
	}

	reqURL := s.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, nil, nil, err
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	req.Header.Set("Accept", "application/json")
	if s.escalated {
		s.token.Apply(req)
	}

	resp, err := c.opts.HTTPClient.Do(req)
	s.lastRequest = c.now()
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, resp.Header, body, nil
}

// refreshToken lets the provider renew an expiring token mid-fetch. A failed
// renewal keeps the previous token; the session never drops back to anonymous.
func (c *Client) refreshToken(ctx context.Context, s *fetchSession) {
	tok, err := c.opts.Credentials.Token(ctx)
	if err != nil {
		c.logger.Debug("Token renewal failed, reusing previous token", "err", err)
		return
	}
	s.token = tok
}

// retryAfter reads the Retry-After header as seconds or an HTTP date
func retryAfter(h http.Header, now time.Time, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return fallback
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return fallback
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
