package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kirvlasenkov/subreddit-insights/internal/config"
	"github.com/kirvlasenkov/subreddit-insights/internal/types"
)

// Store caches fetched corpora in SQLite so repeated runs against the same
// subreddit and window skip the slow, rate-limited fetch.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultPath returns the cache database location
func DefaultPath() (string, error) {
	dir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache.db"), nil
}

// New opens (creating if needed) the SQLite cache at dbPath
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS corpus_cache (
		cache_key TEXT PRIMARY KEY,
		subreddit TEXT NOT NULL,
		post_count INTEGER NOT NULL,
		data TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_corpus_cache_fetched_at ON corpus_cache(fetched_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CorpusKey identifies a fetch by everything that changes its result
func CorpusKey(subreddit, period string, limit int) string {
	return strings.Join([]string{strings.ToLower(subreddit), period, strconv.Itoa(limit)}, "|")
}

// GetCorpus returns the cached corpus for key if it was stored less than
// maxAge ago. A miss returns a nil corpus and no error.
func (s *Store) GetCorpus(key string, maxAge time.Duration) (*types.Corpus, time.Time, error) {
	var data string
	var fetchedUnix int64
	err := s.db.QueryRow(
		`SELECT data, fetched_at FROM corpus_cache WHERE cache_key = ?`, key,
	).Scan(&data, &fetchedUnix)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query corpus cache: %w", err)
	}

	fetchedAt := time.Unix(fetchedUnix, 0)
	if s.now().Sub(fetchedAt) > maxAge {
		return nil, fetchedAt, nil
	}

	var c types.Corpus
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fetchedAt, fmt.Errorf("failed to decode cached corpus: %w", err)
	}
	if c.Comments == nil {
		c.Comments = make(map[string][]types.Comment)
	}

	return &c, fetchedAt, nil
}

// PutCorpus stores c under key, replacing any previous entry
func (s *Store) PutCorpus(key string, c *types.Corpus) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode corpus: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO corpus_cache (cache_key, subreddit, post_count, data, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			subreddit = excluded.subreddit,
			post_count = excluded.post_count,
			data = excluded.data,
			fetched_at = excluded.fetched_at
	`, key, c.Subreddit, len(c.Posts), string(data), s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store corpus: %w", err)
	}

	return nil
}

// Prune deletes entries older than maxAge and returns how many were removed
func (s *Store) Prune(maxAge time.Duration) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM corpus_cache WHERE fetched_at < ?`, s.now().Add(-maxAge).Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
