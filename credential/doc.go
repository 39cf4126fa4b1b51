// Package credential holds the username to password-hash records behind
// registration and login.
//
// # Design
//
// Store is the injected collaborator used by the engine. Insert is the only
// write and performs the uniqueness check atomically with the write, so two
// concurrent registrations of the same name yield exactly one success. Records
// are immutable once inserted.
//
// Memory keeps records in process and is the default. Redis keeps them in a
// single hash, one field per username, written with HSETNX.
//
// # What this package must NOT do
//
//   - Hash or compare passwords. Callers hand in finished PHC strings.
//   - Normalize usernames. Lookups are exact and case-sensitive.
package credential
