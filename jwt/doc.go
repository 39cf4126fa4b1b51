// Package jwt issues and verifies the HS256 bearer tokens handed out at login.
//
// Verification authenticates the raw "header.payload" bytes before any claim is
// decoded, so a token that was altered in transit is reported as tampered rather
// than malformed. Expiry is checked against the manager clock with no leeway.
package jwt
