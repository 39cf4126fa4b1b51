// Package middleware adapts tokengate.Engine to gin.
//
// # Pipeline
//
// Route protection is an explicit ordered list of [Check] values run by
// [Pipeline]. Each check returns [Continue] or [Halt]; the first Halt aborts
// the request with its status and body. The stock checks are:
//
//   - [RateLimit] for one rate policy, keyed by client IP.
//   - [Authorize] for the bearer-token gate. 401 and 403 carry empty bodies.
//   - [BindCredentials] for the JSON login/register body.
//
// [Guard] is Pipeline(Authorize(engine)).
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT parse
// tokens, hash passwords or count attempts itself.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Write response bodies that tell a caller why a token was rejected.
package middleware
