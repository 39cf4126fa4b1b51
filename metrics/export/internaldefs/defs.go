package internaldefs

import (
	"github.com/MrEthical07/tokengate"
)

// Prefix is prepended to every exported series name.
const Prefix = "tokengate_"

// CounterDef describes one unlabelled counter.
type CounterDef struct {
	ID   tokengate.MetricID
	Name string
	Help string
}

// PolicyCounterDef is one member of the rate-limited family, labelled by policy.
type PolicyCounterDef struct {
	ID     tokengate.MetricID
	Policy tokengate.RatePolicy
}

// HistogramDef describes one latency histogram.
type HistogramDef struct {
	ID   tokengate.MetricID
	Name string
	Help string
}

// Bucket is one upper bound of the latency histogram. Le is the Prometheus
// label value, Suffix the form usable in an instrument name.
type Bucket struct {
	Le     string
	Suffix string
}

var CounterDefs = []CounterDef{
	{ID: tokengate.MetricLoginSuccess, Name: Prefix + "login_success_total", Help: "Successful logins."},
	{ID: tokengate.MetricLoginFailure, Name: Prefix + "login_failure_total", Help: "Failed logins, unknown user and wrong password combined."},
	{ID: tokengate.MetricRegisterSuccess, Name: Prefix + "register_success_total", Help: "Accounts created."},
	{ID: tokengate.MetricRegisterDuplicate, Name: Prefix + "register_duplicate_total", Help: "Registrations rejected because the username exists."},
	{ID: tokengate.MetricRegisterInvalid, Name: Prefix + "register_invalid_total", Help: "Registrations rejected by input validation."},
	{ID: tokengate.MetricAuthorizeSuccess, Name: Prefix + "authorize_success_total", Help: "Requests admitted by the bearer-token gate."},
	{ID: tokengate.MetricAuthorizeNoToken, Name: Prefix + "authorize_no_token_total", Help: "Requests without a bearer token."},
	{ID: tokengate.MetricAuthorizeForbidden, Name: Prefix + "authorize_forbidden_total", Help: "Requests with a malformed, tampered or expired token."},
	{ID: tokengate.MetricRateLimitHit, Name: Prefix + "rate_limit_hit_total", Help: "Rate-limit checks that denied a request, all policies."},
}

// RateLimitedName is the family of per-policy refusal counters.
const (
	RateLimitedName = Prefix + "rate_limited_total"
	RateLimitedHelp = "Requests refused by a rate-limit policy."
	PolicyLabel     = "policy"
)

var RateLimitedDefs = []PolicyCounterDef{
	{ID: tokengate.MetricLoginRateLimited, Policy: tokengate.RatePolicyLogin},
	{ID: tokengate.MetricRegisterRateLimited, Policy: tokengate.RatePolicyRegister},
	{ID: tokengate.MetricSensitiveRateLimited, Policy: tokengate.RatePolicySensitive},
	{ID: tokengate.MetricAPIRateLimited, Policy: tokengate.RatePolicyAPI},
}

var HistogramDefs = []HistogramDef{
	{ID: tokengate.MetricAuthorizeLatency, Name: Prefix + "authorize_latency_seconds", Help: "Authorize latency."},
}

// AuditDroppedName counts audit events lost to dispatcher backpressure.
const (
	AuditDroppedName = Prefix + "audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// Buckets matches the engine's fixed latency buckets.
var Buckets = [8]Bucket{
	{Le: "0.005", Suffix: "0_005"},
	{Le: "0.01", Suffix: "0_01"},
	{Le: "0.025", Suffix: "0_025"},
	{Le: "0.05", Suffix: "0_05"},
	{Le: "0.1", Suffix: "0_1"},
	{Le: "0.25", Suffix: "0_25"},
	{Le: "0.5", Suffix: "0_5"},
	{Le: "+Inf", Suffix: "inf"},
}

// Cumulative converts raw per-bucket counts into cumulative counts. Missing
// trailing buckets count as zero.
func Cumulative(raw []uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
