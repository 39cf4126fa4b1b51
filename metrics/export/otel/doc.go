// Package otel binds tokengate metrics to an OpenTelemetry Meter.
//
// [New] registers one Int64ObservableCounter per engine counter, a single
// counter for per-policy refusals carrying a "policy" attribute, and an
// Int64ObservableGauge per latency bucket. One callback reads
// [tokengate.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
