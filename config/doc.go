// Package config loads process settings for the tokengate server from the
// environment, an optional .env file and built-in defaults, in that order of
// precedence.
//
// Settings.AuthConfig converts the loaded values into a tokengate.Config for
// the engine Builder. A missing JWT_SECRET is reported as
// tokengate.ErrMissingSecret so callers can treat it as fatal.
package config
