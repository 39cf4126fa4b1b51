package rate

import (
	"fmt"
	"time"
)

// PolicyID names a rate limit policy.
type PolicyID string

const (
	PolicyLogin     PolicyID = "login"
	PolicyRegister  PolicyID = "register"
	PolicySensitive PolicyID = "sensitive"
	PolicyAPI       PolicyID = "api"
)

// Policy is a fixed window: at most MaxAttempts accepted hits per Window.
type Policy struct {
	ID          PolicyID
	Window      time.Duration
	MaxAttempts int
}

// DefaultPolicies returns the stock policy set.
func DefaultPolicies() []Policy {
	return []Policy{
		{ID: PolicyLogin, Window: 15 * time.Minute, MaxAttempts: 5},
		{ID: PolicyRegister, Window: time.Hour, MaxAttempts: 3},
		{ID: PolicySensitive, Window: time.Hour, MaxAttempts: 10},
		{ID: PolicyAPI, Window: 15 * time.Minute, MaxAttempts: 100},
	}
}

func (p Policy) validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidPolicy)
	}
	if p.Window <= 0 {
		return fmt.Errorf("%w: %s window must be > 0", ErrInvalidPolicy, p.ID)
	}
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("%w: %s max attempts must be > 0", ErrInvalidPolicy, p.ID)
	}
	return nil
}
