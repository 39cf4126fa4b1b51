// Package password hashes credentials with Argon2id and verifies them in constant time.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Parameters travel with every hash, so records written under an older Config
// still verify after the defaults change.
//
// # What this package must NOT do
//
//   - Enforce password policy. Length and character rules live in the root validators.
//   - Store credentials or log plaintext.
package password
