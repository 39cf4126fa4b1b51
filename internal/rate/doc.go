// Package rate implements the fixed-window attempt counters that bound login,
// registration, protected-resource and general API traffic per client key.
//
// # Window semantics
//
// A window opens on the first hit for a (policy, key) pair and lasts for the
// policy's Window. Each accepted hit increments the counter exactly once; once
// the counter reaches MaxAttempts further hits are refused without incrementing
// until the window closes. Keys have the form rl:<policy>:<client key>.
//
// # Stores
//
//   - MemoryStore: process-local, mutex guarded, capped at MaxKeys with
//     expired windows swept on demand. When the cap is reached and nothing has
//     expired, new keys are refused.
//   - RedisStore: one Lua script per hit, so check and increment are a single
//     server-side step.
//
// # What this package must NOT do
//
//   - Decide which client key a request maps to. Callers pass the key.
//   - Emit audit events or metrics. The engine does that around CheckAndIncrement.
package rate
