package reddit

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound means the subreddit does not exist
	ErrNotFound = errors.New("subreddit not found")

	// ErrForbidden means access was refused and no credential could lift it
	ErrForbidden = errors.New("access forbidden")
)

// StatusError is returned when a request keeps answering with an unexpected
// HTTP status until the retry budget runs out.
type StatusError struct {
	StatusCode int
	Attempts   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d %s after %d attempts",
		e.StatusCode, http.StatusText(e.StatusCode), e.Attempts)
}

// RetryError is returned when transient network failures exhaust the retry
// budget. Err is the last underlying failure.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}
