package github

import (
	"fmt"
	"time"
)

// Common errors
var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrUnauthorized = fmt.Errorf("unauthorized")
	ErrRateLimited  = fmt.Errorf("rate limited")
	ErrDecode       = fmt.Errorf("failed to decode response")
)

// RateLimitError reports an exhausted API rate limit together with the
// reset time advertised by the server. It is fatal for the invocation;
// the caller decides whether to wait and retry.
type RateLimitError struct {
	Reset time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded, resets at %s", e.Reset.Format(time.RFC3339))
}

// Is makes errors.Is(err, ErrRateLimited) match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
