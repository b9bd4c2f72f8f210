package identity

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the credential store
type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetResetCandidateTx(ctx context.Context, tx bun.IDB, email string) (*User, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	UpsertRegistrationTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	SaveColumnsTx(ctx context.Context, tx bun.IDB, user *User, columns ...string) error

	TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User, at time.Time) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User, at time.Time) error
}

type users struct {
	repository.Repository[*User]
	db            *bun.DB
	deterministic bool
}

var _ Users = (*users)(nil)

type UsersOption func(*users)

// WithDeterministicIDs derives user IDs from the normalized email so the
// same address always maps to the same ID across environments.
func WithDeterministicIDs() UsersOption {
	return func(u *users) {
		u.deterministic = true
	}
}

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	repoUsers := &users{
		Repository: repo,
		db:         db,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}
	return repoUsers
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "failed to load user by email")
	}
	return record, nil
}

// GetResetCandidateTx finds a record by email that has an open password
// reset, in a single lookup.
func (a *users) GetResetCandidateTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Where("?TableAlias.reset_password_allowed = ?", true).
		Where("?TableAlias.reset_otp_hash IS NOT NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "failed to load password reset candidate")
	}
	return record, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if err := a.prepareUserDefaults(user); err != nil {
		return nil, err
	}
	return a.Repository.CreateTx(ctx, tx, user)
}

// UpsertRegistrationTx inserts a pending record, or when another writer
// created the same email first, overwrites only its registration code
// columns. The stored record is returned.
func (a *users) UpsertRegistrationTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if err := a.prepareUserDefaults(user); err != nil {
		return nil, err
	}

	_, err := tx.NewInsert().
		Model(user).
		On("CONFLICT (email) DO UPDATE").
		Set("email_otp_hash = EXCLUDED.email_otp_hash").
		Set("email_otp_expires_at = EXCLUDED.email_otp_expires_at").
		Set("last_registration_otp_at = EXCLUDED.last_registration_otp_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user")
	}

	return a.GetByEmailTx(ctx, tx, user.Email)
}

// SaveColumnsTx writes the named columns of user, matched by primary key.
func (a *users) SaveColumnsTx(ctx context.Context, tx bun.IDB, user *User, columns ...string) error {
	res, err := tx.NewUpdate().
		Model(user).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (a *users) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User, at time.Time) error {
	user.LoginAttempts++
	user.LoginAttemptAt = &at
	user.UpdatedAt = &at
	return a.SaveColumnsTx(ctx, tx, user, loginAttemptColumns...)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User, at time.Time) error {
	user.LoginAttempts = 0
	user.LoginAttemptAt = nil
	user.LoggedInAt = &at
	user.UpdatedAt = &at
	return a.SaveColumnsTx(ctx, tx, user, loginSuccessColumns...)
}

func (a *users) prepareUserDefaults(user *User) error {
	user.Email = NormalizeEmail(user.Email)

	if user.ID == uuid.Nil {
		if a.deterministic {
			id, err := hashid.NewUUID(user.Email)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to derive user id")
			}
			user.ID = id
		} else {
			user.ID = uuid.New()
		}
	}

	if user.Role == "" {
		user.Role = RoleUser
	}

	now := time.Now().UTC()
	if user.CreatedAt == nil {
		user.CreatedAt = &now
	}
	if user.UpdatedAt == nil {
		user.UpdatedAt = user.CreatedAt
	}
	return nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
		return ErrUserNotFound
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
