// Package security builds the static security posture report of an engine:
// signing algorithm, token lifetime, Argon2id cost, storage backends and
// which protections are active, plus warnings for weak settings.
//
// # What this package must NOT do
//
//   - Read secrets or include them in a report.
//   - Depend on the root package.
package security
