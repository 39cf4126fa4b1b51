// Package audit relays security events (logins, registrations, authorization
// decisions, rate-limit refusals) from the request path to a Sink without
// blocking it.
//
// # Components
//
//   - [Event]: one record with timestamp, type, username, client IP, endpoint and metadata.
//   - [Sink]: consumer interface. ZerologSink writes structured log lines;
//     ChannelSink and JSONWriterSink serve tests and custom wiring.
//   - [Dispatcher]: buffered async relay that either drops or blocks when full.
//
// # What this package must NOT do
//
//   - Decide which events are emitted. The engine does that.
//   - Record passwords or tokens.
package audit
