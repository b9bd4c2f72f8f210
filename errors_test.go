package identity_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	identity "github.com/trustlayer/go-identity"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: http.StatusOK},
		{name: "account exists", err: identity.ErrAccountExists, want: http.StatusBadRequest},
		{name: "already verified", err: identity.ErrEmailAlreadyVerified, want: http.StatusBadRequest},
		{name: "invalid code", err: identity.ErrInvalidOrExpiredCode, want: http.StatusBadRequest},
		{name: "reset expired", err: identity.ErrResetCodeExpired, want: http.StatusBadRequest},
		{name: "not found", err: identity.ErrUserNotFound, want: http.StatusNotFound},
		{name: "not verified", err: identity.ErrEmailNotVerified, want: http.StatusForbidden},
		{name: "password set", err: identity.ErrPasswordAlreadySet, want: http.StatusForbidden},
		{name: "credentials", err: identity.ErrInvalidCredentials, want: http.StatusUnauthorized},
		{name: "lockout", err: identity.ErrTooManyLoginAttempts, want: http.StatusTooManyRequests},
		{name: "cooldown", err: identity.NewCooldownError(10 * time.Second), want: http.StatusTooManyRequests},
		{name: "fiber error", err: fiber.ErrUnprocessableEntity, want: http.StatusUnprocessableEntity},
		{name: "plain error", err: errors.New("boom"), want: http.StatusInternalServerError},
		{name: "internal", err: goerrors.New("db down", goerrors.CategoryInternal), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, identity.HTTPStatus(tt.err))
		})
	}
}

func TestCodeCheckErrorsShareMessage(t *testing.T) {
	for _, err := range []error{
		identity.ErrInvalidOrExpiredCode,
		identity.ErrInvalidResetCode,
		identity.ErrResetCodeExpired,
		identity.ErrResetNotAllowed,
	} {
		assert.Equal(t, "invalid or expired code", err.(*goerrors.Error).Message)
		assert.True(t, identity.IsCodeCheckError(err))
	}
	assert.False(t, identity.IsCodeCheckError(identity.ErrUserNotFound))
}

func TestNewCooldownError(t *testing.T) {
	err := identity.NewCooldownError(41500 * time.Millisecond)

	assert.Equal(t, goerrors.CategoryRateLimit, err.Category)
	assert.Equal(t, identity.TextCodeCooldown, err.TextCode)
	assert.Equal(t, 42, err.Metadata[identity.MetadataRetryAfter])
	assert.Contains(t, err.Message, "42 seconds")
}

func TestNewValidationError(t *testing.T) {
	assert.Nil(t, identity.NewValidationError(nil))

	verr := validation.Errors{
		"email":    errors.New("must be a valid email address"),
		"password": errors.New("cannot be blank"),
	}

	err := identity.NewValidationError(verr)
	require.NotNil(t, err)
	assert.Equal(t, goerrors.CategoryValidation, err.Category)
	assert.Equal(t, identity.TextCodeValidation, err.TextCode)
	assert.Equal(t, "must be a valid email address", err.Metadata["email"])
	assert.Equal(t, "cannot be blank", err.Metadata["password"])

	rich := goerrors.New("already rich", goerrors.CategoryConflict)
	assert.Same(t, rich, identity.NewValidationError(rich))
}

func TestTokenErrorHelpers(t *testing.T) {
	assert.True(t, identity.IsTokenExpiredError(identity.ErrTokenExpired))
	assert.True(t, identity.IsTokenExpiredError(errors.New("token is expired")))
	assert.False(t, identity.IsTokenExpiredError(nil))

	assert.True(t, identity.IsMalformedError(identity.ErrTokenMalformed))
	assert.True(t, identity.IsMalformedError(identity.ErrUnauthorized))
	assert.False(t, identity.IsMalformedError(identity.ErrTokenExpired))
}
