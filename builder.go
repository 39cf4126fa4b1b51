package tokengate

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tokengate/credential"
	"github.com/MrEthical07/tokengate/internal/audit"
	"github.com/MrEthical07/tokengate/internal/rate"
	"github.com/MrEthical07/tokengate/internal/security"
	"github.com/MrEthical07/tokengate/jwt"
	"github.com/MrEthical07/tokengate/password"
	"github.com/redis/go-redis/v9"
)

// dummyPassword is hashed once at Build so logins for unknown users cost
// the same as logins with a wrong password.
const dummyPassword = "tokengate-timing-equalizer"

// Builder assembles an Engine. A Builder can be used for one Build only.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	store     credential.Store
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis makes Redis the backend for rate-limit counters and, unless
// WithCredentialStore is also used, for credentials.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialStore injects the credential store. Without it the engine
// uses credential.Redis when a Redis client is set and credential.Memory otherwise.
func (b *Builder) WithCredentialStore(store credential.Store) *Builder {
	b.store = store
	return b
}

// WithAuditSink sets where audit events are delivered.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the wall clock for token issuance, verification and
// in-memory rate-limit windows.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles the in-process counters read by the metrics
// exporters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms records per-operation latency buckets. Build rejects
// it while metrics are disabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component. A missing
// or short JWT secret fails with ErrMissingSecret or ErrWeakSecret.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	engine := &Engine{
		config:  cfg,
		now:     now,
		metrics: NewMetrics(cfg.Metrics),
	}

	// -------- CREDENTIALS --------
	switch {
	case b.store != nil:
		engine.store = b.store
	case b.redis != nil:
		engine.store = credential.NewRedis(b.redis, "")
	default:
		engine.store = credential.NewMemory()
	}

	// -------- TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		Secret: cfg.JWT.Secret,
		TTL:    cfg.JWT.TTL,
		Now:    now,
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrMissingSecret):
			return nil, ErrMissingSecret
		case errors.Is(err, jwt.ErrWeakSecret):
			return nil, ErrWeakSecret
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	engine.tokens = jm

	// -------- PASSWORDS --------
	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	engine.hasher = ph
	if engine.dummyHash, err = ph.Hash(dummyPassword); err != nil {
		return nil, err
	}

	// -------- RATE LIMITS --------
	if cfg.RateLimit.Enabled {
		var store rate.Store
		if b.redis != nil {
			store = rate.NewRedisStore(b.redis, cfg.RateLimit.RedisPrefix)
			engine.rateBackend = security.BackendRedis
		} else {
			engine.rateBackend = security.BackendMemory
			store = rate.NewMemoryStore(rate.MemoryConfig{
				MaxKeys: cfg.RateLimit.MaxTrackedKeys,
				Now:     now,
			})
		}

		specs := cfg.RateLimit.policies()
		policies := make([]rate.Policy, 0, len(specs))
		for _, s := range specs {
			policies = append(policies, rate.Policy{
				ID:          rate.PolicyID(s.policy),
				Window:      s.rule.Window,
				MaxAttempts: s.rule.MaxAttempts,
			})
		}
		limiter, err := rate.New(store, policies...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		engine.limiter = limiter
	}

	// -------- AUDIT --------
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	engine.initFlows()
	b.built = true

	return engine, nil
}
