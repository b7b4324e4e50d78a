package authkit

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventRegistered           ActivityEventType = "auth.registered"
	ActivityEventLoginSuccess         ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure         ActivityEventType = "auth.login.failure"
	ActivityEventStepUpSuccess        ActivityEventType = "auth.step_up.success"
	ActivityEventLogout               ActivityEventType = "auth.logout"
	ActivityEventTokenRefreshed       ActivityEventType = "auth.token.refreshed"
	ActivityEventPasswordChanged      ActivityEventType = "auth.password.changed"
	ActivityEventPasswordResetSuccess ActivityEventType = "auth.password.reset"
	ActivityEventEmailVerified        ActivityEventType = "auth.email.verified"
	ActivityEventSessionRevoked       ActivityEventType = "auth.session.revoked"
	ActivityEventAccountDisabled      ActivityEventType = "auth.account.disabled"
	ActivityEventExternalLogin        ActivityEventType = "auth.external.login"
	ActivityEventTwoFactorEnabled     ActivityEventType = "auth.two_factor.enabled"
	ActivityEventTwoFactorDisabled    ActivityEventType = "auth.two_factor.disabled"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	IdentityID string
	Email      string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sink failures are logged and never abort the triggering flow.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
