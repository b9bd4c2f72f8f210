package identity

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// CompleteRegistrationMessage sets name and password using a valid
// registration code.
type CompleteRegistrationMessage struct {
	Email      string                   `json:"email"`
	OTP        string                   `json:"otp"`
	Name       string                   `json:"name"`
	Password   string                   `json:"password"`
	OnResponse func(*LifecycleResponse) `json:"-"`
}

func (CompleteRegistrationMessage) Type() string { return "identity.complete_registration" }

func (m CompleteRegistrationMessage) Validate() error {
	m.Email = NormalizeEmail(m.Email)
	m.Name = trimmedName(m.Name)
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, emailRules...),
		validation.Field(&m.OTP, validation.Required),
		validation.Field(&m.Name, validation.Required),
		validation.Field(&m.Password, passwordRules...),
	)
}

type CompleteRegistrationHandler struct {
	lifecycle
}

func NewCompleteRegistrationHandler(repo RepositoryManager, opts ...LifecycleOption) *CompleteRegistrationHandler {
	return &CompleteRegistrationHandler{lifecycle: newLifecycle(repo, opts...)}
}

func (h *CompleteRegistrationHandler) Execute(ctx context.Context, msg CompleteRegistrationMessage) error {
	return h.run(ctx, "registration completion", func(ctx context.Context) error {
		return h.execute(ctx, msg)
	})
}

func (h *CompleteRegistrationHandler) execute(ctx context.Context, msg CompleteRegistrationMessage) error {
	if err := msg.Validate(); err != nil {
		return NewValidationError(err)
	}

	email := NormalizeEmail(msg.Email)
	now := h.clock.now()

	var user *User
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		users := h.repo.Users()

		var err error
		user, err = users.GetByEmailTx(ctx, tx, email)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return ErrInvalidOrExpiredCode
			}
			return err
		}

		if !VerifyOTP(msg.OTP, user.EmailOTPHash, user.EmailOTPExpiresAt, now) {
			return ErrInvalidOrExpiredCode
		}

		hash, err := HashPassword(msg.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.Name = trimmedName(msg.Name)
		user.PasswordHash = hash
		user.EmailVerified = true
		user.clearRegistrationOTP()
		user.UpdatedAt = &now

		return users.SaveColumnsTx(ctx, tx, user, completeRegistrationColumns...)
	})
	if err != nil {
		return failure(err, "failed to complete registration")
	}

	h.record(ctx, ActivityEventRegistrationCompleted, user)

	if msg.OnResponse != nil {
		msg.OnResponse(&LifecycleResponse{Success: true, Email: email})
	}
	return nil
}
