package security

import (
	"fmt"
	"time"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendCustom = "custom"
	BackendNone   = "none"

	recommendedMemoryKB = 64 * 1024
	recommendedTime     = 3
	maxRecommendedTTL   = 24 * time.Hour
)

type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type Report struct {
	SigningAlgorithm   string
	TokenTTL           time.Duration
	Argon2             PasswordReport
	CredentialBackend  string
	RateLimitingActive bool
	RateLimitBackend   string
	RateLimitMaxKeys   int
	AuditEnabled       bool
	MetricsEnabled     bool
	Warnings           []string
}

type ReportInput struct {
	SigningAlgorithm   string
	TokenTTL           time.Duration
	Password           PasswordReport
	CredentialBackend  string
	RateLimitingActive bool
	RateLimitBackend   string
	RateLimitMaxKeys   int
	AuditEnabled       bool
	MetricsEnabled     bool
}

func BuildReport(input ReportInput) Report {
	r := Report{
		SigningAlgorithm:   input.SigningAlgorithm,
		TokenTTL:           input.TokenTTL,
		Argon2:             input.Password,
		CredentialBackend:  input.CredentialBackend,
		RateLimitingActive: input.RateLimitingActive,
		RateLimitBackend:   BackendNone,
		AuditEnabled:       input.AuditEnabled,
		MetricsEnabled:     input.MetricsEnabled,
	}
	if input.RateLimitingActive {
		r.RateLimitBackend = input.RateLimitBackend
		if r.RateLimitBackend == BackendMemory {
			r.RateLimitMaxKeys = input.RateLimitMaxKeys
		}
	}

	if input.Password.Memory < recommendedMemoryKB {
		r.Warnings = append(r.Warnings, fmt.Sprintf("argon2id memory %d KiB is below %d KiB", input.Password.Memory, recommendedMemoryKB))
	}
	if input.Password.Time < recommendedTime {
		r.Warnings = append(r.Warnings, fmt.Sprintf("argon2id time cost %d is below %d", input.Password.Time, recommendedTime))
	}
	if input.TokenTTL > maxRecommendedTTL {
		r.Warnings = append(r.Warnings, fmt.Sprintf("token TTL %s exceeds %s", input.TokenTTL, maxRecommendedTTL))
	}
	if !input.RateLimitingActive {
		r.Warnings = append(r.Warnings, "rate limiting is disabled")
	}
	if !input.AuditEnabled {
		r.Warnings = append(r.Warnings, "audit events are disabled")
	}
	return r
}
