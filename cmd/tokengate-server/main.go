// Command tokengate-server serves the tokengate HTTP API.
//
// Configuration comes from the environment and an optional .env file; see
// package config for the keys. JWT_SECRET is required.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/tokengate"
	"github.com/MrEthical07/tokengate/config"
	"github.com/MrEthical07/tokengate/httpapi"
	"github.com/MrEthical07/tokengate/logger"
)

const serviceName = "tokengate"

var demoUsers = []struct {
	username string
	password string
}{
	{"admin", "admin123"},
	{"user", "password123"},
	{"demo", "demo123"},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	settings, err := config.Load()
	if err != nil {
		if errors.Is(err, tokengate.ErrMissingSecret) {
			return fmt.Errorf("JWT_SECRET environment variable is required: %w", err)
		}
		return err
	}

	log, closeLog, err := logger.New(settings.LoggerConfig(), serviceName)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	securityLog, closeSecurity, err := logger.New(settings.SecurityLoggerConfig(), serviceName)
	if err != nil {
		return err
	}
	defer func() { _ = closeSecurity() }()

	if settings.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	authCfg, err := settings.AuthConfig()
	if err != nil {
		log.Error().Err(err).Msg("invalid auth configuration")
		return err
	}

	rdb, closeRedis, err := openRedis(ctx, settings, log)
	if err != nil {
		return err
	}
	defer closeRedis()

	builder := tokengate.New().
		WithConfig(authCfg).
		WithAuditSink(tokengate.NewZerologSink(securityLog))
	if rdb != nil {
		builder = builder.WithRedis(rdb)
	}
	engine, err := builder.Build()
	if err != nil {
		log.Error().Err(err).Msg("engine build failed")
		return err
	}
	defer engine.Close()
	logSecurityReport(log, engine.SecurityReport())

	if settings.SeedDemoUsers {
		seedDemoUsers(ctx, engine, log)
	}

	router, err := httpapi.NewRouter(engine, httpapi.Options{
		Logger:         log,
		TrustedProxies: settings.TrustedProxies,
	})
	if err != nil {
		return err
	}

	log.Info().
		Int("port", settings.Port).
		Str("environment", settings.Environment).
		Dur("token_ttl", settings.TokenTTL).
		Bool("redis", rdb != nil).
		Msg("server starting")

	if err := httpapi.NewServer(settings.Addr(), router, log).Run(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return err
	}

	log.Info().Uint64("audit_dropped", engine.AuditDropped()).Msg("server stopped")
	return nil
}

func logSecurityReport(log zerolog.Logger, r tokengate.SecurityReport) {
	log.Info().
		Str("algorithm", r.SigningAlgorithm).
		Dur("token_ttl", r.TokenTTL).
		Uint32("argon2_memory_kib", r.Argon2.Memory).
		Uint32("argon2_time", r.Argon2.Time).
		Str("credential_backend", r.CredentialBackend).
		Str("rate_limit_backend", r.RateLimitBackend).
		Bool("audit", r.AuditEnabled).
		Msg("security posture")
	for _, w := range r.Warnings {
		log.Warn().Str("warning", w).Msg("security posture")
	}
}

func seedDemoUsers(ctx context.Context, engine *tokengate.Engine, log zerolog.Logger) {
	for _, u := range demoUsers {
		err := engine.SeedUser(ctx, u.username, u.password)
		switch {
		case err == nil:
			log.Info().Str("username", u.username).Msg("seeded demo user")
		case errors.Is(err, tokengate.ErrUsernameTaken):
			log.Debug().Str("username", u.username).Msg("demo user already present")
		default:
			log.Warn().Err(err).Str("username", u.username).Msg("demo user seeding failed")
		}
	}
}
