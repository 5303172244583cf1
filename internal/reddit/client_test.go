package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirvlasenkov/subreddit-insights/internal/auth"
	"github.com/kirvlasenkov/subreddit-insights/internal/logging"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type staticProvider struct {
	tok   auth.Token
	err   error
	calls int
}

func (p *staticProvider) Token(ctx context.Context) (auth.Token, error) {
	p.calls++
	return p.tok, p.err
}

// requestLog records every request a fake server receives
type requestLog struct {
	mu   sync.Mutex
	reqs []*http.Request
}

func (l *requestLog) add(r *http.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reqs = append(l.reqs, r.Clone(context.Background()))
}

func (l *requestLog) all() []*http.Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*http.Request(nil), l.reqs...)
}

func postThing(id string, age time.Duration, score int) map[string]any {
	return map[string]any{
		"kind": "t3",
		"data": map[string]any{
			"id":           id,
			"title":        "Title " + id,
			"selftext":     "Body " + id,
			"author":       "author_" + id,
			"score":        score,
			"num_comments": 2,
			"created_utc":  float64(testNow.Add(-age).Unix()),
			"url":          "https://example.com/" + id,
			"permalink":    "/r/test/comments/" + id + "/title/",
		},
	}
}

func commentThing(id, body string, replies any) map[string]any {
	return map[string]any{
		"kind": "t1",
		"data": map[string]any{
			"id":          id,
			"body":        body,
			"author":      "user_" + id,
			"score":       3,
			"created_utc": float64(testNow.Unix()),
			"parent_id":   "t3_p1",
			"link_id":     "t3_p1",
			"replies":     replies,
		},
	}
}

func listingOf(after string, children ...map[string]any) map[string]any {
	if children == nil {
		children = []map[string]any{}
	}
	return map[string]any{
		"kind": "Listing",
		"data": map[string]any{"after": after, "children": children},
	}
}

func commentsResponse(children ...map[string]any) []any {
	return []any{listingOf("", postThing("p1", time.Hour, 1)), listingOf("", children...)}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// redditHandler serves top.json from pages in order and an empty comment
// tree for every post.
func redditHandler(log *requestLog, pages ...map[string]any) http.HandlerFunc {
	var mu sync.Mutex
	next := 0
	return func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		switch {
		case strings.HasSuffix(r.URL.Path, "/top.json"):
			mu.Lock()
			page := listingOf("")
			if next < len(pages) {
				page = pages[next]
				next++
			}
			mu.Unlock()
			writeJSON(w, page)
		case strings.Contains(r.URL.Path, "/comments/"):
			writeJSON(w, commentsResponse())
		default:
			http.NotFound(w, r)
		}
	}
}

type testClient struct {
	*Client
	sleeps []time.Duration
}

func newTestClient(t *testing.T, opts Options) *testClient {
	t.Helper()
	if opts.UserAgent == "" {
		opts.UserAgent = "subreddit-insights-test/1.0"
	}
	opts.Logger = logging.Discard()

	tc := &testClient{Client: New(opts)}
	tc.now = func() time.Time { return testNow }
	tc.sleep = func(ctx context.Context, d time.Duration) error {
		tc.sleeps = append(tc.sleeps, d)
		return ctx.Err()
	}
	return tc
}

func TestFetchCorpus_LimitAndComments(t *testing.T) {
	var log requestLog
	srv := httptest.NewServer(redditHandler(&log, listingOf("t3_p3",
		postThing("p1", time.Hour, 50),
		postThing("p2", 2*time.Hour, 40),
		postThing("p3", 3*time.Hour, 30),
	)))
	defer srv.Close()

	c := newTestClient(t, Options{AnonBaseURL: srv.URL})
	corpus, err := c.FetchCorpus(context.Background(), "test", FetchOptions{Period: PeriodWeek, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(corpus.Posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(corpus.Posts))
	}
	for _, p := range corpus.Posts {
		if !strings.HasPrefix(p.Permalink, "https://www.reddit.com/r/test/comments/") {
			t.Errorf("expected absolute permalink, got %q", p.Permalink)
		}
	}
	if corpus.Posts[0].ID != "p1" || corpus.Posts[1].ID != "p2" {
		t.Errorf("server order not preserved: %s, %s", corpus.Posts[0].ID, corpus.Posts[1].ID)
	}
	if len(corpus.Comments) != 2 {
		t.Errorf("expected 2 comment entries, got %d", len(corpus.Comments))
	}

	reqs := log.all()
	first := reqs[0].URL.Query()
	if first.Get("t") != "week" || first.Get("limit") != "2" || first.Get("raw_json") != "1" {
		t.Errorf("unexpected listing query: %v", first)
	}
	if reqs[0].Header.Get("User-Agent") != "subreddit-insights-test/1.0" {
		t.Errorf("expected descriptive user agent, got %q", reqs[0].Header.Get("User-Agent"))
	}
	if reqs[0].Header.Get("Authorization") != "" {
		t.Errorf("anonymous request must not carry credentials")
	}
}

func TestFetchCorpus_FollowsCursor(t *testing.T) {
	var log requestLog
	srv := httptest.NewServer(redditHandler(&log,
		listingOf("t3_p2", postThing("p1", time.Hour, 5), postThing("p2", time.Hour, 4)),
		listingOf("", postThing("p2", time.Hour, 4), postThing("p3", time.Hour, 3)),
	))
	defer srv.Close()

	c := newTestClient(t, Options{AnonBaseURL: srv.URL})
	corpus, err := c.FetchCorpus(context.Background(), "r/test", FetchOptions{Period: PeriodMonth, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}

	ids := make([]string, 0, len(corpus.Posts))
	for _, p := range corpus.Posts {
		ids = append(ids, p.ID)
	}
	if strings.Join(ids, ",") != "p1,p2,p3" {
		t.Errorf("expected deduplicated posts p1,p2,p3, got %v", ids)
	}

	var listings []*http.Request
	for _, r := range log.all() {
		if strings.HasSuffix(r.URL.Path, "/top.json") {
			listings = append(listings, r)
		}
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listing requests, got %d", len(listings))
	}
	if got := listings[1].URL.Query().Get("after"); got != "t3_p2" {
		t.Errorf("expected cursor t3_p2, got %q", got)
	}
	if got := listings[1].URL.Query().Get("limit"); got != "8" {
		t.Errorf("expected remaining limit 8, got %q", got)
	}
}

func TestFetchCorpus_StopsOnEmptyPage(t *testing.T) {
	var log requestLog
	srv := httptest.NewServer(redditHandler(&log,
		listingOf("t3_p1", postThing("p1", time.Hour, 5)),
		listingOf("t3_next"),
	))
	defer srv.Close()

	c := newTestClient(t, Options{AnonBaseURL: srv.URL})
	corpus, err := c.FetchCorpus(context.Background(), "test", FetchOptions{Period: PeriodWeek, Limit: 50})
	if err != nil {
		t.Fatal(err)
	}
	if len(corpus.Posts) != 1 {
		t.Errorf("expected 1 post, got %d", len(corpus.Posts))
	}
}

func TestFetchCorpus_CutoffFilter(t *testing.T) {
	var log requestLog
	srv := httptest.NewServer(redditHandler(&log, listingOf("",
		postThing("recent", 24*time.Hour, 10),
		postThing("old", 100*24*time.Hour, 900),
		postThing("edge", 89*24*time.Hour, 20),
	)))
	defer srv.Close()

	c := newTestClient(t, Options{AnonBaseURL: srv.URL})
	corpus, err := c.FetchCorpus(context.Background(), "test", FetchOptions{Period: PeriodQuarter, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}

	cutoff := PeriodQuarter.Cutoff(testNow)
	if len(corpus.Posts) != 2 {
		t.Fatalf("expected 2 posts inside 90 days, got %d", len(corpus.Posts))
	}
	for _, p := range corpus.Posts {
		if p.CreatedAt.Before(cutoff) {
			t.Errorf("post %s created %v is before cutoff %v", p.ID, p.CreatedAt, cutoff)
		}
	}
	if q := log.all()[0].URL.Query(); q.Get("t") != "year" {
		t.Errorf("expected year filter for 90d, got %q", q.Get("t"))
	}
}

func TestFetchCorpus_ForbiddenWithoutCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(t, Options{AnonBaseURL: srv.URL})
	_, err := c.FetchCorpus(context.Background(), "private", FetchOptions{Period: PeriodWeek, Limit: 5})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if !strings.Contains(err.Error(), "private or banned") {
		t.Errorf("expected remedy in message, got %q", err.Error())
	}
}

func TestFetchCorpus_ForbiddenWhenCredentialUnusable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	provider := &staticProvider{err: auth.ErrCredentialInvalid}
	c := newTestClient(t, Options{AnonBaseURL: srv.URL, Credentials: provider})
	_, err := c.FetchCorpus(context.Background(), "private", FetchOptions{Period: PeriodWeek, Limit: 5})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if !strings.Contains(err.Error(), "credential invalid") {
		t.Errorf("expected credential cause in message, got %q", err.Error())
	}
	if provider.calls != 1 {
		t.Errorf("expected one token request, got %d", provider.calls)
	}
}

func TestFetchCorpus_EscalatesToAuthHost(t *testing.T) {
	var anonLog, authLog requestLog
	anon := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		anonLog.add(r)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer anon.Close()
	authSrv := httptest.NewServer(redditHandler(&authLog, listingOf("",
		postThing("p1", time.Hour, 5),
		postThing("p2", time.Hour, 4),
	)))
	defer authSrv.Close()

	provider := &staticProvider{tok: auth.Token{Scheme: auth.SchemeBearer, Value: "tok123"}}
	c := newTestClient(t, Options{AnonBaseURL: anon.URL, AuthBaseURL: authSrv.URL, Credentials: provider})

	corpus, err := c.FetchCorpus(context.Background(), "test", FetchOptions{Period: PeriodWeek, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(corpus.Posts) != 2 {
		t.Errorf("expected 2 posts, got %d", len(corpus.Posts))
	}

	if n := len(anonLog.all()); n != 1 {
		t.Errorf("expected exactly one anonymous request, got %d", n)
	}
	reqs := authLog.all()
	if len(reqs) != 3 {
		t.Fatalf("expected listing and 2 comment requests on auth host, got %d", len(reqs))
	}
	for _, r := range reqs {
		if got := r.Header.Get("Authorization"); got != "Bearer tok123" {
			t.Errorf("%s: expected bearer header, got %q", r.URL.Path, got)
		}
	}
}

func TestFetchCorpus_EscalationDoesNotLeakAcrossFetches(t *testing.T) {
	var anonLog, authLog requestLog
	var forbid atomic.Bool
	forbid.Store(true)
	anon := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if forbid.Load() {
			anonLog.add(r)
			w.WriteHeader(http.StatusForbidden)
			return
		}
		redditHandler(&anonLog, listingOf("", postThing("p1", time.Hour, 1)))(w, r)
	}))
	defer anon.Close()
	authSrv := httptest.NewServer(redditHandler(&authLog, listingOf("", postThing("p1", time.Hour, 1))))
	defer authSrv.Close()

	provider := &staticProvider{tok: auth.Token{Scheme: auth.SchemeBearer, Value: "tok"}}
	c := newTestClient(t, Options{AnonBaseURL: anon.URL, AuthBaseURL: authSrv.URL, Credentials: provider})

	if _, err := c.FetchCorpus(context.Background(), "test", FetchOptions{Period: PeriodWeek, Limit: 1}); err != nil {
		t.Fatal(err)
	}
	authBefore := len(authLog.all())

	forbid.Store(false)
	if _, err := c.FetchCorpus(context.Background(), "test", FetchOptions{Period: PeriodWeek, Limit: 1}); err != nil {
		t.Fatal(err)
	}
	if got := len(authLog.all()); got != authBefore {
		t.Errorf("second fetch should start anonymous, auth host got %d new requests", got-authBefore)
	}
}

func TestFetchCorpus_CookieSessionStaysOnWebHost(t *testing.T) {
	var log requestLog
	var served atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if served.Add(1) == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		redditHandler(&log, listingOf("", postThing("p1", time.Hour, 1)))(w, r)
	}))
	defer srv.Close()

	provider := &staticProvider{tok: auth.Token{Scheme: auth.SchemeCookie, Value: "reddit_session=abc"}}
	c := newTestClient(t, Options{AnonBaseURL: srv.URL, AuthBaseURL: "http://127.0.0.1:1", Credentials: provider})

	if _, err := c.FetchCorpus(context.Background(), "test", FetchOptions{Period: PeriodWeek, Limit: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range log.all() {
		if r.Header.Get("Cookie") != "reddit_session=abc" {
			t.Errorf("%s: expected session cookie, got %q", r.URL.Path, r.Header.Get("Cookie"))
		}
	}
}

type failingTransport struct {
	calls int
}

func (f *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.calls++
	return nil, errors.New("connection reset by peer")
}

func TestFetchCorpus_RetryBudgetExhausted(t *testing.T) {
	transport := &failingTransport{}
	c := newTestClient(t, Options{
		HTTPClient:     &http.Client{Transport: transport},
		AnonBaseURL:    "http://reddit.invalid",
		MaxRetries:     3,
		RetryBaseDelay: 2 * time.Second,
	})

	_, err := c.FetchCorpus(context.Background(), "test", FetchOptions{Period: PeriodWeek, Limit: 5})
	if err == nil {
		t.Fatal("expected error")
	}

	var retryErr *RetryError
	if !errors.As(err, &retryErr) || retryErr.Attempts != 3 {
		t.Fatalf("expected RetryError after 3 attempts, got %v", err)
	}
	if !strings.Contains(err.Error(), "3 attempts") || !strings.Contains(err.Error(), "connection reset by peer") {
		t.Errorf("expected count and cause in message, got %q", err.Error())
	}
	if transport.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", transport.calls)
	}

	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(c.sleeps) != len(want) || c.sleeps[0] != want[0] || c.sleeps[1] != want[1] {
		t.Errorf("expected linear backoff %v, got %v", want, c.sleeps)
	}
}

func TestFetchCorpus_RateLimitedRetriesOutsideBudget(t *testing.T) {
	var log requestLog
	var limited atomic.Int32
	ok := redditHandler(&log, listingOf("", postThing("p1", time.Hour, 1)))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/top.json") && limited.Load() < 5 {
			if limited.Add(1) == 1 {
				w.Header().Set("Retry-After", "7")
			}
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		ok(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, Options{AnonBaseURL: srv.URL, MaxRetries: 3, DefaultRetryAfter: 30 * time.Second})
	corpus, err := c.FetchCorpus(context.Background(), "test", FetchOptions{Period: PeriodWeek, Limit: 1})
	if err != nil {
		t.Fatalf("429 must not consume the retry budget: %v", err)
	}
	if len(corpus.Posts) != 1 {
		t.Errorf("expected 1 post, got %d", len(corpus.Posts))
	}

	if len(c.sleeps) != 5 {
		t.Fatalf("expected 5 backoff sleeps, got %v", c.sleeps)
	}
	if c.sleeps[0] != 7*time.Second {
		t.Errorf("expected Retry-After of 7s, got %v", c.sleeps[0])
	}
	if c.sleeps[1] != 30*time.Second {
		t.Errorf("expected default retry-after, got %v", c.sleeps[1])
	}
}

func TestFetchCorpus_RateLimitCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := newTestClient(t, Options{AnonBaseURL: srv.URL})
	c.sleep = func(context.Context, time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := c.FetchCorpus(ctx, "test", FetchOptions{Period: PeriodWeek, Limit: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}

func TestFetchCorpus_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := newTestClient(t, Options{AnonBaseURL: srv.URL})
	_, err := c.FetchCorpus(context.Background(), "doesnotexist", FetchOptions{Period: PeriodWeek, Limit: 1})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "check the spelling") {
		t.Errorf("expected spelling hint, got %q", err.Error())
	}
}

func TestFetchCorpus_ServerErrorAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, Options{AnonBaseURL: srv.URL, MaxRetries: 3})
	_, err := c.FetchCorpus(context.Background(), "test", FetchOptions{Period: PeriodWeek, Limit: 1})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected StatusError 502, got %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestFetchCorpus_CommentFailureDegrades(t *testing.T) {
	var log requestLog
	listings := redditHandler(&log, listingOf("", postThing("p1", time.Hour, 5), postThing("p2", time.Hour, 4)))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/comments/p1"):
			w.WriteHeader(http.StatusForbidden)
		case strings.Contains(r.URL.Path, "/comments/p2"):
			writeJSON(w, commentsResponse(commentThing("c1", "hello", "")))
		default:
			listings(w, r)
		}
	}))
	defer srv.Close()

	var progress []int
	c := newTestClient(t, Options{AnonBaseURL: srv.URL})
	corpus, err := c.FetchCorpus(context.Background(), "test", FetchOptions{
		Period:   PeriodWeek,
		Limit:    2,
		Progress: func(done, total int) { progress = append(progress, done) },
	})
	if err != nil {
		t.Fatalf("comment failure must not abort the fetch: %v", err)
	}

	comments, ok := corpus.Comments["p1"]
	if !ok || comments == nil || len(comments) != 0 {
		t.Errorf("expected empty, non-nil comments for p1, got %#v (present=%v)", comments, ok)
	}
	if len(corpus.Comments["p2"]) != 1 {
		t.Errorf("expected 1 comment for p2, got %d", len(corpus.Comments["p2"]))
	}
	if len(progress) != 2 || progress[1] != 2 {
		t.Errorf("unexpected progress calls %v", progress)
	}
}

func TestFetchCorpus_CommentTree(t *testing.T) {
	nested := listingOf("",
		commentThing("c2", "reply", listingOf("", commentThing("c3", "deep reply", ""))),
		map[string]any{"kind": "more", "data": map[string]any{"count": 12}},
	)
	var log requestLog
	listings := redditHandler(&log, listingOf("", postThing("p1", time.Hour, 5)))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/comments/") {
			q := r.URL.Query()
			if q.Get("depth") != "3" || q.Get("limit") != "100" {
				t.Errorf("unexpected comment query %v", q)
			}
			writeJSON(w, commentsResponse(commentThing("c1", "top", nested), commentThing("c4", "second", "")))
			return
		}
		listings(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, Options{AnonBaseURL: srv.URL})
	corpus, err := c.FetchCorpus(context.Background(), "test", FetchOptions{Period: PeriodWeek, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}

	roots := corpus.Comments["p1"]
	if len(roots) != 2 || roots[0].ID != "c1" || roots[1].ID != "c4" {
		t.Fatalf("unexpected roots %+v", roots)
	}
	if len(roots[0].Replies) != 1 || roots[0].Replies[0].ID != "c2" {
		t.Fatalf("expected c2 under c1 with the more stub skipped, got %+v", roots[0].Replies)
	}
	if len(roots[0].Replies[0].Replies) != 1 || roots[0].Replies[0].Replies[0].Body != "deep reply" {
		t.Errorf("expected nested reply c3, got %+v", roots[0].Replies[0].Replies)
	}
	if roots[0].PostID != "p1" || roots[0].ParentID != "t3_p1" {
		t.Errorf("unexpected ownership %q / %q", roots[0].PostID, roots[0].ParentID)
	}
	if roots[1].Replies == nil {
		t.Errorf("replies should be empty, not nil")
	}
}

func TestFetchCorpus_InvalidInput(t *testing.T) {
	c := newTestClient(t, Options{AnonBaseURL: "http://reddit.invalid"})

	if _, err := c.FetchCorpus(context.Background(), "bad name!", FetchOptions{Period: PeriodWeek, Limit: 1}); err == nil {
		t.Error("expected invalid name error")
	}
	if _, err := c.FetchCorpus(context.Background(), "test", FetchOptions{Period: PeriodWeek, Limit: 0}); err == nil {
		t.Error("expected invalid limit error")
	}
	if _, err := c.FetchCorpus(context.Background(), "test", FetchOptions{Period: "2d", Limit: 1}); err == nil {
		t.Error("expected invalid period error")
	}
}

func TestPace(t *testing.T) {
	c := newTestClient(t, Options{RequestDelay: time.Second})
	s := &fetchSession{}

	if err := c.pace(context.Background(), s); err != nil || len(c.sleeps) != 0 {
		t.Fatalf("first request should not wait: %v %v", err, c.sleeps)
	}

	s.lastRequest = testNow.Add(-300 * time.Millisecond)
	c.pace(context.Background(), s)
	if len(c.sleeps) != 1 || c.sleeps[0] != 700*time.Millisecond {
		t.Errorf("expected 700ms wait, got %v", c.sleeps)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"missing", "", time.Minute},
		{"seconds", "12", 12 * time.Second},
		{"date", testNow.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{"past date", testNow.Add(-time.Hour).Format(http.TimeFormat), 0},
		{"garbage", "soon", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Retry-After", tt.header)
			}
			if got := retryAfter(h, testNow, time.Minute); got != tt.want {
				t.Errorf("retryAfter(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}
