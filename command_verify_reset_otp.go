package identity

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/uptrace/bun"
)

// MaxResetOTPAttempts is how many wrong codes a pending password reset
// accepts before it is closed.
var MaxResetOTPAttempts = 5

// VerifyResetOTPMessage checks a password reset code without consuming it
type VerifyResetOTPMessage struct {
	Email      string                   `json:"email"`
	OTP        string                   `json:"otp"`
	OnResponse func(*LifecycleResponse) `json:"-"`
}

func (VerifyResetOTPMessage) Type() string { return "identity.verify_reset_otp" }

func (m VerifyResetOTPMessage) Validate() error {
	m.Email = NormalizeEmail(m.Email)
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, emailRules...),
		validation.Field(&m.OTP, validation.Required),
	)
}

type VerifyResetOTPHandler struct {
	lifecycle
}

func NewVerifyResetOTPHandler(repo RepositoryManager, opts ...LifecycleOption) *VerifyResetOTPHandler {
	return &VerifyResetOTPHandler{lifecycle: newLifecycle(repo, opts...)}
}

func (h *VerifyResetOTPHandler) Execute(ctx context.Context, msg VerifyResetOTPMessage) error {
	return h.run(ctx, "reset code verification", func(ctx context.Context) error {
		return h.execute(ctx, msg)
	})
}

func (h *VerifyResetOTPHandler) execute(ctx context.Context, msg VerifyResetOTPMessage) error {
	if err := msg.Validate(); err != nil {
		return NewValidationError(err)
	}

	email := NormalizeEmail(msg.Email)
	now := h.clock.now()

	var rejected error
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		users := h.repo.Users()

		user, err := users.GetByEmailTx(ctx, tx, email)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				rejected = ErrInvalidResetCode
				return nil
			}
			return err
		}

		if err := checkResetCode(user, msg.OTP, now); err != nil {
			h.logger.Debug("reset code rejected", "email", email, "reason", err)
			rejected = err
			if errors.Is(err, ErrInvalidResetCode) {
				return h.countResetAttempt(ctx, tx, user, now)
			}
			return nil
		}

		if !user.ResetPasswordAllowed {
			rejected = ErrResetNotAllowed
		}
		return nil
	})
	if err != nil {
		return failure(err, "failed to verify reset code")
	}
	if rejected != nil {
		return rejected
	}

	if msg.OnResponse != nil {
		msg.OnResponse(&LifecycleResponse{Success: true, Email: email})
	}
	return nil
}

// countResetAttempt records a wrong reset code. Once MaxResetOTPAttempts
// is reached the pending reset is cleared and a new code must be
// requested.
func (l *lifecycle) countResetAttempt(ctx context.Context, tx bun.IDB, user *User, now time.Time) error {
	if user.ResetOTPHash == "" {
		return nil
	}

	user.ResetOTPAttempts++
	if user.ResetOTPAttempts >= MaxResetOTPAttempts {
		l.logger.Warn("reset code attempts exhausted", "email", user.Email)
		user.clearResetOTP()
	}
	user.UpdatedAt = &now
	return l.repo.Users().SaveColumnsTx(ctx, tx, user, resetAttemptColumns...)
}

// checkResetCode matches the code first and the expiry second, so a
// wrong code never reveals whether a reset is pending.
func checkResetCode(user *User, code string, now time.Time) error {
	if user.ResetOTPHash == "" || CompareOTP(code, user.ResetOTPHash) != nil {
		return ErrInvalidResetCode
	}
	if user.ResetOTPExpiresAt == nil || !now.Before(*user.ResetOTPExpiresAt) {
		return ErrResetCodeExpired
	}
	return nil
}
