package tokengate

import (
	"time"

	"github.com/MrEthical07/tokengate/internal/rate"
)

// RatePolicy names one of the configured rate limit policies.
type RatePolicy string

const (
	// RatePolicyLogin bounds login attempts per client: 5 per 15 minutes by default.
	RatePolicyLogin RatePolicy = RatePolicy(rate.PolicyLogin)
	// RatePolicyRegister bounds registrations per client: 3 per hour by default.
	RatePolicyRegister RatePolicy = RatePolicy(rate.PolicyRegister)
	// RatePolicySensitive bounds protected-resource access per client: 10 per hour by default.
	RatePolicySensitive RatePolicy = RatePolicy(rate.PolicySensitive)
	// RatePolicyAPI bounds all traffic per client: 100 per 15 minutes by default.
	RatePolicyAPI RatePolicy = RatePolicy(rate.PolicyAPI)
)

// PublicUser is the non-sensitive view of an account.
type PublicUser struct {
	Username string `json:"username"`
}

// UserSummary is one entry of the user listing.
type UserSummary struct {
	Username    string `json:"username"`
	Description string `json:"description"`
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token     string
	User      PublicUser
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Identity is the caller recovered from a verified bearer token.
type Identity struct {
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RateStatus describes the caller's window after an accepted attempt.
type RateStatus struct {
	Policy    RatePolicy
	Limit     int
	Remaining int
	ResetAt   time.Time
	// ResetIn is the time left in the window on the engine's clock.
	ResetIn time.Duration
}
