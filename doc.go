// Package tokengate is a small credential service: it registers accounts,
// logs them in with an HS256-signed bearer token and authorizes requests that
// present that token.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// tokengate is the public surface. It exposes [Engine], [Builder], [Config]
// and value types (LoginResult, Identity, RateStatus, MetricsSnapshot). Flow
// orchestration, rate-limit bookkeeping and audit dispatch live under
// internal/ and are never exported. Token encoding lives in the jwt package,
// password hashing in password and account persistence in credential.
//
// # What this package must NOT do
//
//   - Start without a signing secret. Build fails with ErrMissingSecret.
//   - Store or log plaintext passwords.
//   - Tell a caller whether a failed login named an existing account.
//   - Import the HTTP layer. Transport lives in middleware and httpapi.
package tokengate
