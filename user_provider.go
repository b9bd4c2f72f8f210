package identity

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// MaxLoginAttempts is the maximun number of failed attempts a user gets
// within LoginLockoutPeriod
var MaxLoginAttempts = 5

// LoginLockoutPeriod is how long failed attempts are remembered
var LoginLockoutPeriod = "15m"

// UserProvider verifies credentials against the credential store
type UserProvider struct {
	repo   RepositoryManager
	clock  Clock
	logger Logger
}

var _ IdentityProvider = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(repo RepositoryManager) *UserProvider {
	return &UserProvider{
		repo:   repo,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.logger = normalizeLogger(l)
	return u
}

func (u *UserProvider) WithClock(c Clock) *UserProvider {
	u.clock = c
	return u
}

// VerifyIdentity will find the user, compare to the password, and return
// identity. Every credential failure is reported as ErrInvalidCredentials.
func (u *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	users := u.repo.Users()

	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification")
	}

	if !user.HasPassword() {
		u.logger.Debug("login refused, account has no password", "email", user.Email)
		return nil, ErrInvalidCredentials
	}

	if !user.EmailVerified {
		u.logger.Debug("login refused, email not verified", "email", user.Email)
		return nil, ErrInvalidCredentials
	}

	now := u.clock.now()

	if user.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*user.LoginAttemptAt, now, LoginLockoutPeriod)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to calculate login attempt cooldown")
		}
		if expired {
			user.LoginAttempts = 0
		}
	}

	if user.LoginAttempts >= MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if err := u.track(ctx, func(ctx context.Context, tx bun.Tx) error {
			return users.TrackAttemptedLoginTx(ctx, tx, user, now)
		}); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to track login attempt")
		}
		return nil, ErrInvalidCredentials
	}

	if err := u.track(ctx, func(ctx context.Context, tx bun.Tx) error {
		return users.TrackSuccessfulLoginTx(ctx, tx, user, now)
	}); err != nil {
		u.logger.Error("failed to track successful login", "error", err)
	}

	return NewIdentityFromUser(user), nil
}

// FindIdentityByEmail returns the identity of a verified account
func (u *UserProvider) FindIdentityByEmail(ctx context.Context, email string) (Identity, error) {
	user, err := u.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	return NewIdentityFromUser(user), nil
}

func (u *UserProvider) track(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return u.repo.RunInTx(ctx, nil, fn)
}
