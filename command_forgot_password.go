package identity

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ForgotPasswordMessage requests a password reset code
type ForgotPasswordMessage struct {
	Email      string                   `json:"email"`
	OnResponse func(*LifecycleResponse) `json:"-"`
}

func (ForgotPasswordMessage) Type() string { return "identity.forgot_password" }

func (m ForgotPasswordMessage) Validate() error {
	m.Email = NormalizeEmail(m.Email)
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, emailRules...),
	)
}

// ForgotPasswordHandler opens a password reset for a known email.
//
// Unknown emails get the same acknowledgement as known ones. The only
// observable difference is the cooldown error, which is only raised for
// known emails.
type ForgotPasswordHandler struct {
	lifecycle
}

func NewForgotPasswordHandler(repo RepositoryManager, opts ...LifecycleOption) *ForgotPasswordHandler {
	return &ForgotPasswordHandler{lifecycle: newLifecycle(repo, opts...)}
}

func (h *ForgotPasswordHandler) Execute(ctx context.Context, msg ForgotPasswordMessage) error {
	return h.run(ctx, "password reset request", func(ctx context.Context) error {
		return h.execute(ctx, msg)
	})
}

func (h *ForgotPasswordHandler) execute(ctx context.Context, msg ForgotPasswordMessage) error {
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
		if err != nil {
			return err
		}

		if remaining := CooldownRemaining(user.LastResetOTPAt, now, h.cooldown); remaining > 0 {
			return NewCooldownError(remaining)
		}

		issued, err = h.issuer.Issue(now)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue reset code")
		}

		user.setResetOTP(issued.Hash, issued.ExpiresAt, now)
		user.UpdatedAt = &now
		return users.SaveColumnsTx(ctx, tx, user, resetOTPColumns...)
	})

	resp := &LifecycleResponse{Success: true, Email: email}

	switch {
	case errors.Is(err, ErrUserNotFound):
		h.logger.Debug("password reset requested for unknown email", "email", email)
	case err != nil:
		return failure(err, "failed to request password reset")
	default:
		h.notify(ctx, email, issued.Code, OTPPurposePasswordReset)
		h.record(ctx, ActivityEventPasswordResetRequest, user)
		resp.DevOTP = h.devCode(issued.Code)
	}

	if msg.OnResponse != nil {
		msg.OnResponse(resp)
	}
	return nil
}
