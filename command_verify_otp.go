package identity

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
)

// VerifyOTPMessage checks a registration code without consuming it
type VerifyOTPMessage struct {
	Email      string                   `json:"email"`
	OTP        string                   `json:"otp"`
	OnResponse func(*LifecycleResponse) `json:"-"`
}

func (VerifyOTPMessage) Type() string { return "identity.verify_otp" }

func (m VerifyOTPMessage) Validate() error {
	m.Email = NormalizeEmail(m.Email)
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, emailRules...),
		validation.Field(&m.OTP, validation.Required),
	)
}

// VerifyOTPHandler confirms a registration code is valid. The record is
// not modified, so the same code must be presented again to complete the
// registration.
type VerifyOTPHandler struct {
	lifecycle
}

func NewVerifyOTPHandler(repo RepositoryManager, opts ...LifecycleOption) *VerifyOTPHandler {
	return &VerifyOTPHandler{lifecycle: newLifecycle(repo, opts...)}
}

func (h *VerifyOTPHandler) Execute(ctx context.Context, msg VerifyOTPMessage) error {
	return h.run(ctx, "otp verification", func(ctx context.Context) error {
		return h.execute(ctx, msg)
	})
}

func (h *VerifyOTPHandler) execute(ctx context.Context, msg VerifyOTPMessage) error {
	if err := msg.Validate(); err != nil {
		return NewValidationError(err)
	}

	email := NormalizeEmail(msg.Email)
	user, err := h.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidOrExpiredCode
		}
		return failure(err, "failed to verify code")
	}

	if !VerifyOTP(msg.OTP, user.EmailOTPHash, user.EmailOTPExpiresAt, h.clock.now()) {
		h.logger.Debug("registration code rejected", "email", email)
		return ErrInvalidOrExpiredCode
	}

	h.record(ctx, ActivityEventEmailVerified, user)

	if msg.OnResponse != nil {
		msg.OnResponse(&LifecycleResponse{Success: true, Email: email})
	}
	return nil
}
