package identity

import (
	"context"
	"time"
)

// Logger is the structured logger used across the package. Messages are
// followed by alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Name() string
	Email() string
	Role() string
}

// Config holds token and middleware options
type Config interface {
	GetSigningKey() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
}

// IdentityProvider resolves and verifies identities against the
// credential store.
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, email, password string) (Identity, error)
	FindIdentityByEmail(ctx context.Context, email string) (Identity, error)
}

// Notifier delivers a one time code to an email address.
type Notifier interface {
	SendOTP(ctx context.Context, email, code string, purpose OTPPurpose) error
}

// NotifierFunc adapts a function into a Notifier.
type NotifierFunc func(ctx context.Context, email, code string, purpose OTPPurpose) error

// SendOTP implements Notifier.
func (f NotifierFunc) SendOTP(ctx context.Context, email, code string, purpose OTPPurpose) error {
	if f == nil {
		return nil
	}
	return f(ctx, email, code, purpose)
}

// Clock returns the current time. Tests swap it to move across OTP
// expiry and cooldown windows.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
