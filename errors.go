package tokengate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingFields is returned when a username or password is empty.
	ErrMissingFields = errors.New("username and password are required")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials is returned for both unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUsernameTaken is returned when registering a name that already exists.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrNoToken is returned by Authorize when no bearer token was presented.
	ErrNoToken = errors.New("no bearer token")
	// ErrForbidden is returned by Authorize for malformed, tampered or expired tokens.
	ErrForbidden = errors.New("invalid or expired token")
	// ErrRateLimited is matched by every *RateLimitError.
	ErrRateLimited = errors.New("rate limited")
	// ErrMissingSecret is a fatal configuration error: no signing secret was supplied.
	ErrMissingSecret = errors.New("jwt secret is not configured")
	// ErrWeakSecret is a fatal configuration error: the signing secret is too short.
	ErrWeakSecret = errors.New("jwt secret must be at least 32 bytes")
	// ErrInvalidConfig wraps every other Config.Validate failure.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrEngineNotReady is returned by methods called on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrStoreUnavailable wraps credential store and rate-limit backend failures.
	ErrStoreUnavailable = errors.New("backing store unavailable")
)

// ValidationError carries the first failing input rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// RateLimitError reports a refused attempt and the remaining window.
type RateLimitError struct {
	Policy     RatePolicy
	Limit      int
	RetryAfter time.Duration
	ResetAt    time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (%s): retry after %s", e.Policy, e.RetryAfter.Round(time.Second))
}

// Is lets errors.Is(err, ErrRateLimited) match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
