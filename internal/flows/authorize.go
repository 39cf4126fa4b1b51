package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/tokengate/jwt"
)

const bearerPrefix = "Bearer "

// AuthorizeResult is the identity recovered from a verified token.
type AuthorizeResult struct {
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AuthorizeMetrics carries metric IDs used by the authorize flow.
type AuthorizeMetrics struct {
	Success   int
	NoToken   int
	Forbidden int
	Latency   int
}

// AuthorizeEvents carries audit event names used by the authorize flow.
type AuthorizeEvents struct {
	Success string
	Failure string
}

// AuthorizeErrors carries host-level sentinels used by the authorize flow.
type AuthorizeErrors struct {
	EngineNotReady error
	NoToken        error
	Forbidden      error
}

// AuthorizeDeps captures authorization dependencies.
type AuthorizeDeps struct {
	Now            func() time.Time
	VerifyToken    func(string) (*jwt.Claims, error)
	MetricInc      func(int)
	ObserveLatency func(int, time.Duration)
	EmitAudit      AuditFunc

	AnonymousUser string
	Metrics       AuthorizeMetrics
	Events        AuthorizeEvents
	Errors        AuthorizeErrors
}

// BearerToken extracts the token from an Authorization header of the exact
// form "Bearer <token>". The token must be non-empty and contain no whitespace.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := header[len(bearerPrefix):]
	if token == "" || strings.ContainsAny(token, " \t\r\n") {
		return "", false
	}
	return token, true
}

// TokenFailureReason names a token verification error for audit metadata.
func TokenFailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, jwt.ErrExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTampered):
		return "tampered"
	case errors.Is(err, jwt.ErrMalformed):
		return "malformed"
	default:
		return "invalid"
	}
}

// RunAuthorize turns a raw Authorization header into an identity. Every call
// emits exactly one audit event. All token failures collapse to Forbidden;
// the precise reason only reaches the audit metadata.
func RunAuthorize(ctx context.Context, header string, deps AuthorizeDeps) (*AuthorizeResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(int, time.Duration) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.AnonymousUser == "" {
		deps.AnonymousUser = "anonymous"
	}
	if deps.VerifyToken == nil {
		return nil, deps.Errors.EngineNotReady
	}

	start := deps.Now()
	defer func() {
		deps.ObserveLatency(deps.Metrics.Latency, deps.Now().Sub(start))
	}()

	token, ok := BearerToken(header)
	if !ok {
		deps.MetricInc(deps.Metrics.NoToken)
		deps.EmitAudit(ctx, deps.Events.Failure, false, deps.AnonymousUser, deps.Errors.NoToken, func() map[string]string {
			return map[string]string{"reason": "no_token"}
		})
		return nil, deps.Errors.NoToken
	}

	claims, err := deps.VerifyToken(token)
	if err != nil {
		reason := TokenFailureReason(err)
		deps.MetricInc(deps.Metrics.Forbidden)
		deps.EmitAudit(ctx, deps.Events.Failure, false, deps.AnonymousUser, deps.Errors.Forbidden, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return nil, deps.Errors.Forbidden
	}

	result := &AuthorizeResult{Username: claims.Username}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, claims.Username, nil, nil)
	return result, nil
}
