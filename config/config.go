package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/MrEthical07/tokengate"
	"github.com/MrEthical07/tokengate/logger"
)

// Accepted ENVIRONMENT values.
const (
	// EnvDevelopment enables demo users and gin debug mode.
	EnvDevelopment = "development"
	// EnvProduction never seeds demo users.
	EnvProduction = "production"
	// EnvTest behaves like production for seeding.
	EnvTest = "test"
)

const (
	// RedisAddrMiniredis selects an embedded in-process Redis.
	RedisAddrMiniredis = "miniredis"

	defaultEnvFile = ".env"
)

// Settings is the flat process configuration. Each field maps to the
// upper-cased environment variable of its mapstructure key.
type Settings struct {
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`

	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	LogLevel        string `mapstructure:"log_level"`
	LogFormat       string `mapstructure:"log_format"`
	LogFile         string `mapstructure:"log_file"`
	SecurityLogFile string `mapstructure:"security_log_file"`

	RateLimitMaxKeys int      `mapstructure:"rate_limit_max_keys"`
	SeedDemoUsers    bool     `mapstructure:"seed_demo_users"`
	TrustedProxies   []string `mapstructure:"trusted_proxies"`
}

type options struct {
	envFile  string
	explicit bool
}

// Option customizes Load.
type Option func(*options)

// WithEnvFile reads path instead of ./.env. Unlike the default file, an
// explicitly named file must exist.
func WithEnvFile(path string) Option {
	return func(o *options) {
		o.envFile = path
		o.explicit = true
	}
}

// WithoutEnvFile skips .env loading entirely.
func WithoutEnvFile() Option {
	return func(o *options) {
		o.envFile = ""
		o.explicit = false
	}
}

// Load resolves Settings and validates them.
func Load(opts ...Option) (*Settings, error) {
	o := options{envFile: defaultEnvFile}
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()
	setDefaults(v)

	if o.envFile != "" {
		if err := applyEnvFile(v, o.envFile, o.explicit); err != nil {
			return nil, err
		}
	}

	v.AutomaticEnv()
	v.SetDefault("seed_demo_users", strings.EqualFold(strings.TrimSpace(v.GetString("environment")), EnvDevelopment))

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	s.normalize()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 3000)
	v.SetDefault("environment", EnvDevelopment)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", tokengate.DefaultTokenTTL)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", logger.FormatJSON)
	v.SetDefault("log_file", "")
	v.SetDefault("security_log_file", "security.log")
	v.SetDefault("rate_limit_max_keys", tokengate.DefaultConfig().RateLimit.MaxTrackedKeys)
	v.SetDefault("seed_demo_users", false)
	v.SetDefault("trusted_proxies", []string{})
}

// applyEnvFile layers the file's values between the process environment and
// the defaults. The process environment is never modified.
func applyEnvFile(v *viper.Viper, path string, required bool) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	for key, value := range values {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		v.SetDefault(strings.ToLower(key), value)
	}
	return nil
}

func (s *Settings) normalize() {
	s.Environment = strings.ToLower(strings.TrimSpace(s.Environment))
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	s.LogFormat = strings.ToLower(strings.TrimSpace(s.LogFormat))
	if s.Environment != EnvDevelopment {
		s.SeedDemoUsers = false
	}

	proxies := s.TrustedProxies[:0]
	for _, p := range s.TrustedProxies {
		if p = strings.TrimSpace(p); p != "" {
			proxies = append(proxies, p)
		}
	}
	s.TrustedProxies = proxies
}

// Validate reports the first invalid setting. A missing secret is returned
// as tokengate.ErrMissingSecret unwrapped.
func (s *Settings) Validate() error {
	if s.JWTSecret == "" {
		return tokengate.ErrMissingSecret
	}
	switch s.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("config: ENVIRONMENT must be development, production or test (got %q)", s.Environment)
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("config: PORT out of range: %d", s.Port)
	}
	if s.TokenTTL <= 0 {
		return fmt.Errorf("config: TOKEN_TTL must be > 0")
	}
	if s.RateLimitMaxKeys <= 0 {
		return fmt.Errorf("config: RATE_LIMIT_MAX_KEYS must be > 0")
	}
	if s.RedisDB < 0 {
		return fmt.Errorf("config: REDIS_DB must be >= 0")
	}
	return nil
}

// IsDevelopment reports whether ENVIRONMENT is development.
func (s *Settings) IsDevelopment() bool {
	return s.Environment == EnvDevelopment
}

// Addr returns the listen address for Port.
func (s *Settings) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// AuthConfig returns the engine configuration derived from s.
func (s *Settings) AuthConfig() (tokengate.Config, error) {
	cfg := tokengate.DefaultConfig()
	cfg.JWT.Secret = []byte(s.JWTSecret)
	cfg.JWT.TTL = s.TokenTTL
	cfg.RateLimit.MaxTrackedKeys = s.RateLimitMaxKeys
	if err := cfg.Validate(); err != nil {
		return tokengate.Config{}, err
	}
	return cfg, nil
}

// LoggerConfig returns the main logger configuration.
func (s *Settings) LoggerConfig() logger.Config {
	return logger.Config{
		Level:    s.LogLevel,
		Format:   s.LogFormat,
		Output:   logger.OutputStdout,
		File:     s.LogFile,
		Compress: true,
	}
}

// SecurityLoggerConfig returns the audit logger configuration. It writes
// only to SECURITY_LOG_FILE, or to stderr when that is empty.
func (s *Settings) SecurityLoggerConfig() logger.Config {
	cfg := logger.Config{
		Level:    "info",
		Format:   logger.FormatJSON,
		Output:   logger.OutputNone,
		File:     s.SecurityLogFile,
		Compress: true,
	}
	if s.SecurityLogFile == "" {
		cfg.Output = logger.OutputStderr
	}
	return cfg
}
