// Package httpapi exposes a tokengate Engine over HTTP with gin.
//
// Routes:
//
//	POST /auth/register       register policy, then Engine.Register
//	POST /auth/login          login policy, then Engine.Login
//	GET  /auth/users          Engine.ListUsers
//	GET  /protected           sensitive policy + bearer token
//	GET  /protected/profile   sensitive policy + bearer token
//	POST /protected/validate  sensitive policy + bearer token
//	GET  /health              liveness, not rate limited
//	GET  /metrics             Prometheus text, not rate limited
//
// Every other route runs under the api policy first. Engine errors are
// mapped to status codes by statusFor.
package httpapi
