package tokengate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/MrEthical07/tokengate/credential"
	"github.com/MrEthical07/tokengate/internal/audit"
	"github.com/MrEthical07/tokengate/internal/flows"
	"github.com/MrEthical07/tokengate/internal/rate"
	"github.com/MrEthical07/tokengate/jwt"
	"github.com/MrEthical07/tokengate/password"
)

// Engine issues and verifies credentials. It is safe for concurrent use once
// returned by Builder.Build.
type Engine struct {
	config    Config
	now       func() time.Time
	store     credential.Store
	tokens    *jwt.Manager
	hasher    *password.Argon2
	dummyHash string
	limiter   *rate.Limiter
	// rateBackend is "memory" or "redis" when limiter is set.
	rateBackend string
	audit       *audit.Dispatcher
	metrics     *Metrics
	flows       flows.Deps
}

// Close flushes pending audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the current counters and latency histogram.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// TokenTTL is the lifetime given to every issued token.
func (e *Engine) TokenTTL() time.Duration {
	if e == nil || e.tokens == nil {
		return 0
	}
	return e.tokens.TTL()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

/*
====================================
ACCOUNTS
====================================
*/

// Register validates username and password, stores an Argon2id hash of the
// password and returns the public view of the new account.
//
// Validation failures return a *ValidationError naming the first failing rule.
// A name that is already registered returns ErrUsernameTaken.
func (e *Engine) Register(ctx context.Context, username, password string) (PublicUser, error) {
	if e == nil {
		return PublicUser{}, ErrEngineNotReady
	}
	name, err := flows.RunRegister(ctx, username, password, e.flows.Register)
	if err != nil {
		return PublicUser{}, err
	}
	return PublicUser{Username: name}, nil
}

// Login checks the credentials and returns a signed token on success. Unknown
// users and wrong passwords both return ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	res, err := flows.RunLogin(ctx, username, password, e.flows.Login)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:     res.Token,
		User:      PublicUser{Username: res.Username},
		IssuedAt:  res.IssuedAt,
		ExpiresAt: res.ExpiresAt,
	}, nil
}

// Authorize verifies an Authorization header value of the form
// "Bearer <token>". A missing or badly framed header returns ErrNoToken; a
// malformed, tampered or expired token returns ErrForbidden.
func (e *Engine) Authorize(ctx context.Context, header string) (*Identity, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	res, err := flows.RunAuthorize(ctx, header, e.flows.Authorize)
	if err != nil {
		return nil, err
	}
	return &Identity{
		Username:  res.Username,
		IssuedAt:  res.IssuedAt,
		ExpiresAt: res.ExpiresAt,
	}, nil
}

// ListUsers returns every registered account in registration order.
func (e *Engine) ListUsers(ctx context.Context) ([]UserSummary, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	records, err := e.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	out := make([]UserSummary, 0, len(records))
	for _, r := range records {
		out = append(out, UserSummary{
			Username:    r.Username,
			Description: r.Username + " account",
		})
	}
	return out, nil
}

// SeedUser inserts an operator-provided account. The username rules apply but
// the password policy does not, so fixture passwords such as "admin123" can be
// loaded. Seeding an existing name returns ErrUsernameTaken.
func (e *Engine) SeedUser(ctx context.Context, username, password string) error {
	if e == nil || e.store == nil || e.hasher == nil {
		return ErrEngineNotReady
	}
	if username == "" || password == "" {
		return ErrMissingFields
	}
	if err := usernameError(username); err != nil {
		return err
	}

	hash, err := e.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = e.store.Insert(ctx, credential.Record{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    e.now().UTC(),
	})
	switch {
	case errors.Is(err, credential.ErrDuplicate):
		return ErrUsernameTaken
	case err != nil:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.emitAudit(ctx, auditEventUserSeeded, true, username, nil, nil)
	return nil
}

/*
====================================
RATE LIMITING
====================================
*/

// CheckRate records one attempt by key under policy. A refused attempt
// returns a *RateLimitError and does not advance the counter. With rate
// limiting disabled every attempt is accepted.
func (e *Engine) CheckRate(ctx context.Context, policy RatePolicy, key string) (RateStatus, error) {
	if e == nil {
		return RateStatus{}, ErrEngineNotReady
	}
	if e.limiter == nil {
		return RateStatus{Policy: policy}, nil
	}

	st, err := e.limiter.CheckAndIncrement(ctx, rate.PolicyID(policy), key)
	if err != nil {
		var limitErr *rate.LimitError
		switch {
		case errors.As(err, &limitErr):
			out := &RateLimitError{
				Policy:     policy,
				Limit:      limitErr.Limit,
				RetryAfter: limitErr.RetryAfter,
				ResetAt:    limitErr.ResetAt,
			}
			e.metricInc(policyRateLimitedMetric(policy))
			e.emitRateLimit(ctx, out, key)
			return RateStatus{Policy: policy, Limit: limitErr.Limit, ResetAt: limitErr.ResetAt, ResetIn: limitErr.RetryAfter}, out
		case errors.Is(err, rate.ErrUnknownPolicy):
			return RateStatus{}, fmt.Errorf("%w: unknown rate policy %q", ErrInvalidConfig, policy)
		default:
			return RateStatus{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	return RateStatus{
		Policy:    policy,
		Limit:     st.Limit,
		Remaining: st.Remaining,
		ResetAt:   st.ResetAt,
		ResetIn:   st.ResetIn,
	}, nil
}

func policyRateLimitedMetric(policy RatePolicy) MetricID {
	switch policy {
	case RatePolicyLogin:
		return MetricLoginRateLimited
	case RatePolicyRegister:
		return MetricRegisterRateLimited
	case RatePolicySensitive:
		return MetricSensitiveRateLimited
	default:
		return MetricAPIRateLimited
	}
}

/*
====================================
FLOW WIRING
====================================
*/

func (e *Engine) initFlows() {
	emit := flows.AuditFunc(e.emitAudit)
	metricInc := func(id int) { e.metricInc(MetricID(id)) }

	e.flows = flows.Deps{
		Register: flows.RegisterDeps{
			Now:              e.now,
			ValidateUsername: usernameError,
			ValidatePassword: passwordError,
			HashPassword:     e.hasher.Hash,
			InsertUser: func(ctx context.Context, u flows.UserRecord) error {
				return e.store.Insert(ctx, credential.Record{
					Username:     u.Username,
					PasswordHash: u.PasswordHash,
					CreatedAt:    u.CreatedAt,
				})
			},
			IsDuplicate: func(err error) bool { return errors.Is(err, credential.ErrDuplicate) },
			MetricInc:   metricInc,
			EmitAudit:   emit,
			Metrics: flows.RegisterMetrics{
				Success:   int(MetricRegisterSuccess),
				Duplicate: int(MetricRegisterDuplicate),
				Invalid:   int(MetricRegisterInvalid),
			},
			Events: flows.RegisterEvents{
				Success: auditEventRegisterSuccess,
				Failure: auditEventRegisterFailure,
			},
			Errors: flows.RegisterErrors{
				EngineNotReady:   ErrEngineNotReady,
				MissingFields:    ErrMissingFields,
				UsernameTaken:    ErrUsernameTaken,
				StoreUnavailable: ErrStoreUnavailable,
			},
		},
		Login: flows.LoginDeps{
			GetUser: func(ctx context.Context, username string) (flows.UserRecord, error) {
				r, err := e.store.Lookup(ctx, username)
				if err != nil {
					return flows.UserRecord{}, err
				}
				return flows.UserRecord{
					Username:     r.Username,
					PasswordHash: r.PasswordHash,
					CreatedAt:    r.CreatedAt,
				}, nil
			},
			IsNotFound:     func(err error) bool { return errors.Is(err, credential.ErrNotFound) },
			VerifyPassword: e.hasher.Verify,
			IssueToken: func(username string) (string, time.Time, time.Time, error) {
				token, claims, err := e.tokens.Issue(username, 0)
				if err != nil {
					return "", time.Time{}, time.Time{}, err
				}
				return token, claims.IssuedAt.Time, claims.ExpiresAt.Time, nil
			},
			DummyHash: e.dummyHash,
			MetricInc: metricInc,
			EmitAudit: emit,
			Warn:      log.Printf,
			Metrics: flows.LoginMetrics{
				Success: int(MetricLoginSuccess),
				Failure: int(MetricLoginFailure),
			},
			Events: flows.LoginEvents{
				Success: auditEventLoginSuccess,
				Failure: auditEventLoginFailure,
			},
			Errors: flows.LoginErrors{
				EngineNotReady:     ErrEngineNotReady,
				MissingFields:      ErrMissingFields,
				InvalidCredentials: ErrInvalidCredentials,
				StoreUnavailable:   ErrStoreUnavailable,
			},
		},
		Authorize: flows.AuthorizeDeps{
			Now:         time.Now,
			VerifyToken: e.tokens.Verify,
			MetricInc:   metricInc,
			ObserveLatency: func(id int, d time.Duration) {
				e.metrics.Observe(MetricID(id), d)
			},
			EmitAudit:     emit,
			AnonymousUser: audit.AnonymousUser,
			Metrics: flows.AuthorizeMetrics{
				Success:   int(MetricAuthorizeSuccess),
				NoToken:   int(MetricAuthorizeNoToken),
				Forbidden: int(MetricAuthorizeForbidden),
				Latency:   int(MetricAuthorizeLatency),
			},
			Events: flows.AuthorizeEvents{
				Success: auditEventAuthorizeSuccess,
				Failure: auditEventAuthorizeFailure,
			},
			Errors: flows.AuthorizeErrors{
				EngineNotReady: ErrEngineNotReady,
				NoToken:        ErrNoToken,
				Forbidden:      ErrForbidden,
			},
		},
	}
}
