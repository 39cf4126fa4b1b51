package tokengate

import (
	"fmt"
	"time"

	"github.com/MrEthical07/tokengate/jwt"
	"github.com/MrEthical07/tokengate/password"
)

// DefaultTokenTTL is the lifetime of issued bearer tokens.
const DefaultTokenTTL = jwt.DefaultTTL

// Config is the complete engine configuration. Start from DefaultConfig and
// override fields; the Builder validates it once at Build time.
type Config struct {
	JWT       JWTConfig
	Password  PasswordConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the HS256 signing secret and token lifetime.
type JWTConfig struct {
	Secret []byte
	TTL    time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id cost parameters. Memory is in KiB.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateRule is one fixed window: at most MaxAttempts per Window.
type RateRule struct {
	Window      time.Duration
	MaxAttempts int
}

// RateLimitConfig configures the four policies and the in-memory key cap.
// RedisPrefix is used only when the Builder is given a Redis client.
type RateLimitConfig struct {
	Enabled        bool
	MaxTrackedKeys int
	RedisPrefix    string
	Login          RateRule
	Register       RateRule
	Sensitive      RateRule
	API            RateRule
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the authorize latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the stock configuration. JWT.Secret is left empty and
// must be supplied.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			TTL: DefaultTokenTTL,
		},
		Password: PasswordConfig{
			Memory:      pw.Memory,
			Time:        pw.Time,
			Parallelism: pw.Parallelism,
			SaltLength:  pw.SaltLength,
			KeyLength:   pw.KeyLength,
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			MaxTrackedKeys: 100_000,
			RedisPrefix:    "tg:",
			Login:          RateRule{Window: 15 * time.Minute, MaxAttempts: 5},
			Register:       RateRule{Window: time.Hour, MaxAttempts: 3},
			Sensitive:      RateRule{Window: time.Hour, MaxAttempts: 10},
			API:            RateRule{Window: 15 * time.Minute, MaxAttempts: 100},
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if len(cfg.JWT.Secret) > 0 {
		out.JWT.Secret = make([]byte, len(cfg.JWT.Secret))
		copy(out.JWT.Secret, cfg.JWT.Secret)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem. A missing or short
// secret yields ErrMissingSecret or ErrWeakSecret; everything else wraps
// ErrInvalidConfig.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.Secret) == 0 {
		return ErrMissingSecret
	}
	if len(c.JWT.Secret) < jwt.MinSecretLength {
		return ErrWeakSecret
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("%w: JWT TTL must be > 0", ErrInvalidConfig)
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return fmt.Errorf("%w: Password Memory must be >= 8192 KiB", ErrInvalidConfig)
	}
	if c.Password.Time < 1 {
		return fmt.Errorf("%w: Password Time must be >= 1", ErrInvalidConfig)
	}
	if c.Password.Parallelism < 1 {
		return fmt.Errorf("%w: Password Parallelism must be >= 1", ErrInvalidConfig)
	}
	if c.Password.SaltLength < 16 {
		return fmt.Errorf("%w: Password SaltLength must be >= 16", ErrInvalidConfig)
	}
	if c.Password.KeyLength < 16 {
		return fmt.Errorf("%w: Password KeyLength must be >= 16", ErrInvalidConfig)
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxTrackedKeys <= 0 {
			return fmt.Errorf("%w: RateLimit MaxTrackedKeys must be > 0", ErrInvalidConfig)
		}
		rules := []struct {
			name string
			rule RateRule
		}{
			{"Login", c.RateLimit.Login},
			{"Register", c.RateLimit.Register},
			{"Sensitive", c.RateLimit.Sensitive},
			{"API", c.RateLimit.API},
		}
		for _, r := range rules {
			if r.rule.Window <= 0 {
				return fmt.Errorf("%w: RateLimit %s Window must be > 0", ErrInvalidConfig, r.name)
			}
			if r.rule.MaxAttempts <= 0 {
				return fmt.Errorf("%w: RateLimit %s MaxAttempts must be > 0", ErrInvalidConfig, r.name)
			}
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return fmt.Errorf("%w: Audit BufferSize must be > 0", ErrInvalidConfig)
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return fmt.Errorf("%w: Metrics EnableLatencyHistograms requires Metrics Enabled", ErrInvalidConfig)
	}

	return nil
}

func (c RateLimitConfig) policies() []rateRuleSpec {
	return []rateRuleSpec{
		{RatePolicyLogin, c.Login},
		{RatePolicyRegister, c.Register},
		{RatePolicySensitive, c.Sensitive},
		{RatePolicyAPI, c.API},
	}
}

type rateRuleSpec struct {
	policy RatePolicy
	rule   RateRule
}
