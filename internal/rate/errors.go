package rate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited is matched by every *LimitError.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis failures from RedisStore.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrUnknownPolicy is returned for policy ids the limiter was not built with.
	ErrUnknownPolicy = errors.New("unknown rate limit policy")
	// ErrInvalidPolicy is returned by New for non-positive windows or limits.
	ErrInvalidPolicy = errors.New("invalid rate limit policy")
)

// LimitError reports a refused hit and how long the caller should wait.
type LimitError struct {
	Policy     PolicyID
	Limit      int
	RetryAfter time.Duration
	ResetAt    time.Time
	// Saturated is set when the memory store refused a new key because it
	// was already tracking MaxKeys live windows.
	Saturated bool
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limited: policy %s, retry after %s", e.Policy, e.RetryAfter)
}

// Is lets errors.Is(err, ErrRateLimited) match.
func (e *LimitError) Is(target error) bool {
	return target == ErrRateLimited
}
