package identity

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ResendOTPMessage asks for a fresh registration code
type ResendOTPMessage struct {
	Email      string                   `json:"email"`
	OnResponse func(*LifecycleResponse) `json:"-"`
}

func (ResendOTPMessage) Type() string { return "identity.resend_otp" }

func (m ResendOTPMessage) Validate() error {
	m.Email = NormalizeEmail(m.Email)
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, emailRules...),
	)
}

// ResendOTPHandler replaces the registration code of an existing,
// unverified record. The previous code stops verifying.
type ResendOTPHandler struct {
	lifecycle
}

func NewResendOTPHandler(repo RepositoryManager, opts ...LifecycleOption) *ResendOTPHandler {
	return &ResendOTPHandler{lifecycle: newLifecycle(repo, opts...)}
}

func (h *ResendOTPHandler) Execute(ctx context.Context, msg ResendOTPMessage) error {
	return h.run(ctx, "otp resend", func(ctx context.Context) error {
		return h.execute(ctx, msg)
	})
}

func (h *ResendOTPHandler) execute(ctx context.Context, msg ResendOTPMessage) error {
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

		if user.EmailVerified {
			return ErrEmailAlreadyVerified
		}

		if remaining := CooldownRemaining(user.LastRegistrationOTPAt, now, h.cooldown); remaining > 0 {
			return NewCooldownError(remaining)
		}

		issued, err = h.issuer.Issue(now)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue registration code")
		}

		user.setRegistrationOTP(issued.Hash, issued.ExpiresAt, now)
		user.UpdatedAt = &now
		return users.SaveColumnsTx(ctx, tx, user, registrationOTPColumns...)
	})
	if err != nil {
		return failure(err, "failed to resend code")
	}

	h.notify(ctx, email, issued.Code, OTPPurposeRegistration)
	h.record(ctx, ActivityEventOTPResent, user)

	if msg.OnResponse != nil {
		msg.OnResponse(&LifecycleResponse{
			Success: true,
			Email:   email,
			DevOTP:  h.devCode(issued.Code),
		})
	}
	return nil
}
