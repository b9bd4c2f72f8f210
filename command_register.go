package identity

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// RegisterMessage starts a registration for an email address
type RegisterMessage struct {
	Email      string                   `json:"email" example:"jane@example.com" doc:"Email address to register"`
	OnResponse func(*LifecycleResponse) `json:"-"`
}

func (RegisterMessage) Type() string { return "identity.register" }

func (m RegisterMessage) Validate() error {
	m.Email = NormalizeEmail(m.Email)
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, emailRules...),
	)
}

// RegisterHandler creates or refreshes an unverified record and issues a
// registration code.
type RegisterHandler struct {
	lifecycle
}

// NewRegisterHandler creates a handler with sane defaults.
func NewRegisterHandler(repo RepositoryManager, opts ...LifecycleOption) *RegisterHandler {
	return &RegisterHandler{lifecycle: newLifecycle(repo, opts...)}
}

func (h *RegisterHandler) Execute(ctx context.Context, msg RegisterMessage) error {
	return h.run(ctx, "registration", func(ctx context.Context) error {
		return h.execute(ctx, msg)
	})
}

func (h *RegisterHandler) execute(ctx context.Context, msg RegisterMessage) error {
	if err := msg.Validate(); err != nil {
		return NewValidationError(err)
	}

	email := NormalizeEmail(msg.Email)
	now := h.clock.now()

	var (
		user   *User
		issued *IssuedOTP
	)

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		users := h.repo.Users()

		var err error
		user, err = users.GetByEmailTx(ctx, tx, email)
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			return err
		}

		if user != nil {
			if user.EmailVerified {
				return ErrAccountExists
			}
			if remaining := CooldownRemaining(user.LastRegistrationOTPAt, now, h.cooldown); remaining > 0 {
				return NewCooldownError(remaining)
			}
		}

		issued, err = h.issuer.Issue(now)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue registration code")
		}

		if user == nil {
			user = &User{
				Email:     email,
				Role:      RoleUser,
				CreatedAt: &now,
				UpdatedAt: &now,
			}
			user.setRegistrationOTP(issued.Hash, issued.ExpiresAt, now)
			// a concurrent first registration for the same email may have
			// inserted since the lookup; the latest code wins
			user, err = users.UpsertRegistrationTx(ctx, tx, user)
			return err
		}

		user.setRegistrationOTP(issued.Hash, issued.ExpiresAt, now)
		user.UpdatedAt = &now
		return users.SaveColumnsTx(ctx, tx, user, registrationOTPColumns...)
	})
	if err != nil {
		return failure(err, "failed to register user")
	}

	h.notify(ctx, email, issued.Code, OTPPurposeRegistration)
	h.record(ctx, ActivityEventRegistrationRequested, user)

	if msg.OnResponse != nil {
		msg.OnResponse(&LifecycleResponse{
			Success: true,
			Email:   email,
			DevOTP:  h.devCode(issued.Code),
		})
	}

	return nil
}
