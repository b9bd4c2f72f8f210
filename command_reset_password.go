package identity

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ResetPasswordMessage replaces the password using a reset code
type ResetPasswordMessage struct {
	Email       string                   `json:"email"`
	OTP         string                   `json:"otp"`
	NewPassword string                   `json:"newPassword"`
	OnResponse  func(*LifecycleResponse) `json:"-"`
}

func (ResetPasswordMessage) Type() string { return "identity.reset_password" }

func (m ResetPasswordMessage) Validate() error {
	m.Email = NormalizeEmail(m.Email)
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, emailRules...),
		validation.Field(&m.OTP, validation.Required),
		validation.Field(&m.NewPassword, passwordRules...),
	)
}

// ResetPasswordHandler consumes a reset code and stores the new password.
// A successful reset also proves control of the email, so the record is
// marked verified and any login lockout is lifted.
type ResetPasswordHandler struct {
	lifecycle
}

func NewResetPasswordHandler(repo RepositoryManager, opts ...LifecycleOption) *ResetPasswordHandler {
	return &ResetPasswordHandler{lifecycle: newLifecycle(repo, opts...)}
}

func (h *ResetPasswordHandler) Execute(ctx context.Context, msg ResetPasswordMessage) error {
	return h.run(ctx, "password reset", func(ctx context.Context) error {
		return h.execute(ctx, msg)
	})
}

func (h *ResetPasswordHandler) execute(ctx context.Context, msg ResetPasswordMessage) error {
	if err := msg.Validate(); err != nil {
		return NewValidationError(err)
	}

	email := NormalizeEmail(msg.Email)
	now := h.clock.now()

	var (
		user     *User
		rejected error
	)

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		users := h.repo.Users()

		var err error
		user, err = users.GetResetCandidateTx(ctx, tx, email)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return ErrInvalidResetCode
			}
			return err
		}

		if err := checkResetCode(user, msg.OTP, now); err != nil {
			rejected = err
			if !errors.Is(err, ErrResetCodeExpired) {
				return h.countResetAttempt(ctx, tx, user, now)
			}
			// a dead code closes the reset window
			user.clearResetOTP()
			user.UpdatedAt = &now
			return users.SaveColumnsTx(ctx, tx, user, resetAttemptColumns...)
		}

		hash, err := HashPassword(msg.NewPassword)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.EmailVerified = true
		user.LoginAttempts = 0
		user.LoginAttemptAt = nil
		user.clearResetOTP()
		user.UpdatedAt = &now

		return users.SaveColumnsTx(ctx, tx, user, resetPasswordColumns...)
	})
	if err != nil {
		return failure(err, "failed to reset password")
	}

	if rejected != nil {
		return rejected
	}

	h.record(ctx, ActivityEventPasswordResetSuccess, user)

	if msg.OnResponse != nil {
		msg.OnResponse(&LifecycleResponse{Success: true, Email: email})
	}
	return nil
}
