// Package logger builds the process zerolog.Logger from a Config: level,
// console or JSON format, stdout or stderr, and an optional rotating file
// written through lumberjack.
//
// The server uses two loggers: the main one for request and lifecycle lines,
// and a security logger, usually file-only, that receives audit events.
package logger
