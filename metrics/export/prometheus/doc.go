// Package prometheus renders tokengate metrics in the Prometheus text
// exposition format.
//
// [New] reads [tokengate.Engine.MetricsSnapshot] on every scrape. Counters are
// named tokengate_*_total; per-policy refusals share the family
// tokengate_rate_limited_total{policy="..."}; the single histogram is
// tokengate_authorize_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
