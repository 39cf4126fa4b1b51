package tokengate

import (
	"github.com/MrEthical07/tokengate/credential"
	"github.com/MrEthical07/tokengate/internal/security"
	"github.com/MrEthical07/tokengate/jwt"
)

// SecurityReport summarizes the engine's security posture. It never
// contains the signing secret.
type SecurityReport = security.Report

// PasswordConfigReport is the Argon2id cost section of a SecurityReport.
type PasswordConfigReport = security.PasswordReport

// SecurityReport describes the active configuration and warns about weak
// settings such as a reduced Argon2id cost or disabled rate limiting.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	backend := security.BackendCustom
	switch e.store.(type) {
	case *credential.Memory:
		backend = security.BackendMemory
	case *credential.Redis:
		backend = security.BackendRedis
	}

	return security.BuildReport(security.ReportInput{
		SigningAlgorithm: jwt.Algorithm,
		TokenTTL:         e.config.JWT.TTL,
		Password: security.PasswordReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		CredentialBackend:  backend,
		RateLimitingActive: e.limiter != nil,
		RateLimitBackend:   e.rateBackend,
		RateLimitMaxKeys:   e.config.RateLimit.MaxTrackedKeys,
		AuditEnabled:       e.config.Audit.Enabled,
		MetricsEnabled:     e.metrics.Enabled(),
	})
}
