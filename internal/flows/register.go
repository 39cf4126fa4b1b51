package flows

import (
	"context"
	"fmt"
	"time"
)

// RegisterMetrics carries metric IDs used by the register flow.
type RegisterMetrics struct {
	Success   int
	Duplicate int
	Invalid   int
}

// RegisterEvents carries audit event names used by the register flow.
type RegisterEvents struct {
	Success string
	Failure string
}

// RegisterErrors carries host-level sentinels used by the register flow.
type RegisterErrors struct {
	EngineNotReady   error
	MissingFields    error
	UsernameTaken    error
	StoreUnavailable error
}

// RegisterDeps captures registration dependencies.
type RegisterDeps struct {
	Now              func() time.Time
	ValidateUsername func(string) error
	ValidatePassword func(string) error
	HashPassword     func(string) (string, error)
	InsertUser       func(context.Context, UserRecord) error
	IsDuplicate      func(error) bool

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// RunRegister validates the submitted credentials, hashes the password and
// inserts the record. The store insert is the uniqueness check.
func RunRegister(ctx context.Context, username, password string, deps RegisterDeps) (string, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.ValidateUsername == nil ||
		deps.ValidatePassword == nil ||
		deps.HashPassword == nil ||
		deps.InsertUser == nil ||
		deps.IsDuplicate == nil {
		return "", deps.Errors.EngineNotReady
	}

	reject := func(err error, reason string) (string, error) {
		deps.MetricInc(deps.Metrics.Invalid)
		deps.EmitAudit(ctx, deps.Events.Failure, false, username, err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return "", err
	}

	if username == "" || password == "" {
		return reject(deps.Errors.MissingFields, "missing_fields")
	}
	if err := deps.ValidateUsername(username); err != nil {
		return reject(err, "username_policy")
	}
	if err := deps.ValidatePassword(password); err != nil {
		return reject(err, "password_policy")
	}

	hash, err := deps.HashPassword(password)
	password = ""
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.Failure, false, username, err, func() map[string]string {
			return map[string]string{"reason": "hash_failed"}
		})
		return "", fmt.Errorf("hash password: %w", err)
	}

	err = deps.InsertUser(ctx, UserRecord{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    deps.Now().UTC(),
	})
	if err != nil {
		if deps.IsDuplicate(err) {
			deps.MetricInc(deps.Metrics.Duplicate)
			deps.EmitAudit(ctx, deps.Events.Failure, false, username, deps.Errors.UsernameTaken, func() map[string]string {
				return map[string]string{"reason": "duplicate_username"}
			})
			return "", deps.Errors.UsernameTaken
		}
		deps.EmitAudit(ctx, deps.Events.Failure, false, username, deps.Errors.StoreUnavailable, func() map[string]string {
			return map[string]string{"reason": "store_unavailable"}
		})
		return "", fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, username, nil, nil)
	return username, nil
}
