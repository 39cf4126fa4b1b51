package flows

import (
	"context"
	"time"
)

// Deps groups flow dependency sets. The root engine builds this once and
// delegates each request method to the matching flow.
type Deps struct {
	Register  RegisterDeps
	Login     LoginDeps
	Authorize AuthorizeDeps
}

// UserRecord is the flow-local view of a stored credential.
type UserRecord struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// AuditFunc emits one audit event. metadata may be nil and is only invoked
// when the event is actually recorded.
type AuditFunc func(ctx context.Context, eventType string, success bool, username string, err error, metadata func() map[string]string)

func noopAudit(context.Context, string, bool, string, error, func() map[string]string) {}

func noopMetric(int) {}
