// Package flows contains the orchestration for every Engine operation:
// RunRegister, RunLogin and RunAuthorize.
//
// Each flow takes a typed dependency struct of function fields and sentinel
// errors supplied by the root package, so the ordering of checks can be
// tested here without a store, hasher or token manager.
//
// # Architecture boundaries
//
// Flows decide the order of checks, which audit event and metric each outcome
// produces, and which sentinel is returned. They do NOT own the credential
// store, the token manager or the audit dispatcher.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import the root package.
//   - Reveal whether a failed login named an existing user.
package flows
