package rate

import (
	"context"
	"fmt"
	"time"
)

// Decision is a store's answer to a single hit. RetryAfter is the time left
// in the window, measured on the store's clock.
type Decision struct {
	Allowed    bool
	Count      int
	RetryAfter time.Duration
	ResetAt    time.Time
	Saturated  bool
}

// Store performs one atomic check-and-increment for key.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration, maxAttempts int) (Decision, error)
}

// Status describes the window state after an accepted hit.
type Status struct {
	Policy    PolicyID
	Limit     int
	Remaining int
	ResetAt   time.Time
	ResetIn   time.Duration
}

// Limiter applies named policies on top of a Store.
type Limiter struct {
	store    Store
	policies map[PolicyID]Policy
}

// New returns a Limiter over store. With no policies, DefaultPolicies is used.
func New(store Store, policies ...Policy) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidPolicy)
	}
	if len(policies) == 0 {
		policies = DefaultPolicies()
	}

	byID := make(map[PolicyID]Policy, len(policies))
	for _, p := range policies {
		if err := p.validate(); err != nil {
			return nil, err
		}
		byID[p.ID] = p
	}
	return &Limiter{store: store, policies: byID}, nil
}

// Policy returns the configured policy for id.
func (l *Limiter) Policy(id PolicyID) (Policy, bool) {
	p, ok := l.policies[id]
	return p, ok
}

// CheckAndIncrement records one attempt for (id, key). It returns a
// *LimitError when the window is already full; the counter is not advanced.
func (l *Limiter) CheckAndIncrement(ctx context.Context, id PolicyID, key string) (Status, error) {
	p, ok := l.policies[id]
	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrUnknownPolicy, id)
	}

	d, err := l.store.Hit(ctx, storeKey(id, key), p.Window, p.MaxAttempts)
	if err != nil {
		return Status{}, err
	}

	status := Status{Policy: id, Limit: p.MaxAttempts, ResetAt: d.ResetAt, ResetIn: d.RetryAfter}
	if !d.Allowed {
		return status, &LimitError{
			Policy:     id,
			Limit:      p.MaxAttempts,
			RetryAfter: d.RetryAfter,
			ResetAt:    d.ResetAt,
			Saturated:  d.Saturated,
		}
	}
	status.Remaining = p.MaxAttempts - d.Count
	if status.Remaining < 0 {
		status.Remaining = 0
	}
	return status, nil
}

func storeKey(id PolicyID, key string) string {
	return "rl:" + string(id) + ":" + key
}
