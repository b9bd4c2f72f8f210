package identity

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventRegistrationRequested ActivityEventType = "registration.requested"
	ActivityEventEmailVerified         ActivityEventType = "email.verified"
	ActivityEventRegistrationCompleted ActivityEventType = "registration.completed"
	ActivityEventOTPResent             ActivityEventType = "otp.resent"
	ActivityEventPasswordResetRequest  ActivityEventType = "password.reset.requested"
	ActivityEventPasswordResetSuccess  ActivityEventType = "password.reset"
	ActivityEventPasswordSet           ActivityEventType = "password.set"
	ActivityEventLoginSuccess          ActivityEventType = "login.success"
	ActivityEventLoginFailure          ActivityEventType = "login.failure"
	ActivityEventLoginLocked           ActivityEventType = "login.locked"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	Email      string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
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

// NewLoggingActivitySink writes every event to logger at info level.
func NewLoggingActivitySink(logger Logger) ActivitySink {
	logger = normalizeLogger(logger)
	return ActivitySinkFunc(func(ctx context.Context, event ActivityEvent) error {
		logger.WithContext(ctx).Info("activity",
			"event", event.EventType,
			"user_id", event.UserID,
			"email", event.Email,
			"occurred_at", event.OccurredAt,
		)
		return nil
	})
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

func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		normalizeLogger(logger).Warn("failed to record activity event",
			"event", event.EventType,
			"error", err,
		)
	}
}
