package identity

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// SetPasswordMessage sets the first local password of a verified account
type SetPasswordMessage struct {
	Name       string                   `json:"name"`
	Email      string                   `json:"email"`
	Password   string                   `json:"password"`
	OnResponse func(*LifecycleResponse) `json:"-"`
}

func (SetPasswordMessage) Type() string { return "identity.set_password" }

func (m SetPasswordMessage) Validate() error {
	m.Email = NormalizeEmail(m.Email)
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, emailRules...),
		validation.Field(&m.Password, passwordRules...),
	)
}

// SetPasswordHandler lets a verified account without a local password,
// typically one created through a federated sign in, set one. Accounts
// that already have a password must go through the reset flow.
type SetPasswordHandler struct {
	lifecycle
}

func NewSetPasswordHandler(repo RepositoryManager, opts ...LifecycleOption) *SetPasswordHandler {
	return &SetPasswordHandler{lifecycle: newLifecycle(repo, opts...)}
}

func (h *SetPasswordHandler) Execute(ctx context.Context, msg SetPasswordMessage) error {
	return h.run(ctx, "set password", func(ctx context.Context) error {
		return h.execute(ctx, msg)
	})
}

func (h *SetPasswordHandler) execute(ctx context.Context, msg SetPasswordMessage) error {
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
			return err
		}

		if !user.EmailVerified {
			return ErrEmailNotVerified
		}
		if user.HasPassword() {
			return ErrPasswordAlreadySet
		}

		hash, err := HashPassword(msg.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		if name := trimmedName(msg.Name); name != "" {
			user.Name = name
		}
		user.PasswordHash = hash
		user.UpdatedAt = &now

		return users.SaveColumnsTx(ctx, tx, user, setPasswordColumns...)
	})
	if err != nil {
		return failure(err, "failed to set password")
	}

	h.record(ctx, ActivityEventPasswordSet, user)

	if msg.OnResponse != nil {
		msg.OnResponse(&LifecycleResponse{Success: true, Email: email})
	}
	return nil
}
