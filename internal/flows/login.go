package flows

import (
	"context"
	"fmt"
	"time"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	Token     string
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// LoginMetrics carries metric IDs used by the login flow.
type LoginMetrics struct {
	Success int
	Failure int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	Success string
	Failure string
}

// LoginErrors carries host-level sentinels used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	MissingFields      error
	InvalidCredentials error
	StoreUnavailable   error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	GetUser        func(context.Context, string) (UserRecord, error)
	IsNotFound     func(error) bool
	VerifyPassword func(password, hash string) (bool, error)
	IssueToken     func(username string) (token string, issuedAt, expiresAt time.Time, err error)
	// DummyHash is verified when the user does not exist so both failure
	// paths pay for one hash computation.
	DummyHash string

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin checks the submitted credentials and issues a token. Unknown users
// and wrong passwords produce the same error.
func RunLogin(ctx context.Context, username, password string, deps LoginDeps) (*LoginResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.GetUser == nil ||
		deps.IsNotFound == nil ||
		deps.VerifyPassword == nil ||
		deps.IssueToken == nil {
		return nil, deps.Errors.EngineNotReady
	}

	fail := func(err error, reason string) (*LoginResult, error) {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, username, err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return nil, err
	}

	if username == "" || password == "" {
		return fail(deps.Errors.MissingFields, "missing_fields")
	}

	user, err := deps.GetUser(ctx, username)
	if err != nil {
		if !deps.IsNotFound(err) {
			deps.EmitAudit(ctx, deps.Events.Failure, false, username, deps.Errors.StoreUnavailable, func() map[string]string {
				return map[string]string{"reason": "store_unavailable"}
			})
			return nil, fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
		}
		if deps.DummyHash != "" {
			_, _ = deps.VerifyPassword(password, deps.DummyHash)
		}
		return fail(deps.Errors.InvalidCredentials, "user_not_found")
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	password = ""
	if err != nil {
		deps.Warn("tokengate: stored password hash for %q is unreadable: %v", username, err)
		return fail(deps.Errors.InvalidCredentials, "hash_unreadable")
	}
	if !ok {
		return fail(deps.Errors.InvalidCredentials, "password_mismatch")
	}

	token, issuedAt, expiresAt, err := deps.IssueToken(user.Username)
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.Failure, false, username, err, func() map[string]string {
			return map[string]string{"reason": "token_issue_failed"}
		})
		return nil, fmt.Errorf("issue token: %w", err)
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, user.Username, nil, nil)
	return &LoginResult{
		Token:     token,
		Username:  user.Username,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
