package identity

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to the errors returned by this package.
const (
	TextCodeValidation          = "VALIDATION_FAILED"
	TextCodeAccountExists       = "ACCOUNT_EXISTS"
	TextCodeEmailVerified       = "EMAIL_ALREADY_VERIFIED"
	TextCodeInvalidOrExpiredOTP = "INVALID_OR_EXPIRED_OTP"
	TextCodeInvalidResetCode    = "INVALID_RESET_CODE"
	TextCodeResetCodeExpired    = "RESET_CODE_EXPIRED"
	TextCodeResetNotAllowed     = "RESET_NOT_ALLOWED"
	TextCodeUserNotFound        = "USER_NOT_FOUND"
	TextCodeEmailNotVerified    = "EMAIL_NOT_VERIFIED"
	TextCodePasswordAlreadySet  = "PASSWORD_ALREADY_SET"
	TextCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	TextCodeTooManyAttempts     = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeCooldown            = "OTP_COOLDOWN"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeTokenMalformed      = "TOKEN_MALFORMED"
	TextCodeUnauthorized        = "UNAUTHORIZED"
)

// codeCheckMessage is shared by every OTP check so a caller cannot tell
// which condition failed.
const codeCheckMessage = "invalid or expired code"

// MetadataRetryAfter holds the seconds left on a cooldown.
const MetadataRetryAfter = "retry_after"

var (
	ErrAccountExists = goerrors.New("an account with this email already exists", goerrors.CategoryConflict).
				WithTextCode(TextCodeAccountExists)

	ErrEmailAlreadyVerified = goerrors.New("email address is already verified", goerrors.CategoryConflict).
				WithTextCode(TextCodeEmailVerified)

	ErrInvalidOrExpiredCode = goerrors.New(codeCheckMessage, goerrors.CategoryBadInput).
				WithTextCode(TextCodeInvalidOrExpiredOTP)

	ErrInvalidResetCode = goerrors.New(codeCheckMessage, goerrors.CategoryBadInput).
				WithTextCode(TextCodeInvalidResetCode)

	ErrResetCodeExpired = goerrors.New(codeCheckMessage, goerrors.CategoryBadInput).
				WithTextCode(TextCodeResetCodeExpired)

	ErrResetNotAllowed = goerrors.New(codeCheckMessage, goerrors.CategoryBadInput).
				WithTextCode(TextCodeResetNotAllowed)

	ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
			WithTextCode(TextCodeUserNotFound)

	ErrEmailNotVerified = goerrors.New("email address is not verified", goerrors.CategoryAuthz).
				WithTextCode(TextCodeEmailNotVerified)

	ErrPasswordAlreadySet = goerrors.New("password already set, use the password reset flow", goerrors.CategoryAuthz).
				WithTextCode(TextCodePasswordAlreadySet)

	ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
				WithTextCode(TextCodeInvalidCredentials)

	ErrTooManyLoginAttempts = goerrors.New("too many login attempts, try again later", goerrors.CategoryRateLimit).
				WithTextCode(TextCodeTooManyAttempts)

	ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
			WithTextCode(TextCodeTokenExpired)

	ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
				WithTextCode(TextCodeTokenMalformed)

	ErrUnauthorized = goerrors.New("missing or malformed bearer token", goerrors.CategoryAuth).
			WithTextCode(TextCodeUnauthorized)
)

// ErrNoEmptyString is returned when hashing an empty secret
var ErrNoEmptyString = errors.New("empty string not allowed")

// ErrMismatchedHashAndPassword is returned when a secret does not match its hash
var ErrMismatchedHashAndPassword = errors.New("mismatched hash and password")

// NewCooldownError reports how long a caller must wait before a new code
// can be issued. Seconds are rounded up.
func NewCooldownError(remaining time.Duration) *goerrors.Error {
	secs := RetryAfterSeconds(remaining)
	return goerrors.New(
		fmt.Sprintf("please wait %d seconds before requesting a new code", secs),
		goerrors.CategoryRateLimit,
	).
		WithTextCode(TextCodeCooldown).
		WithMetadata(map[string]any{MetadataRetryAfter: secs})
}

// RetryAfterSeconds rounds d up to whole seconds, never below one.
func RetryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// NewValidationError converts an ozzo validation error into a rich error
// carrying the failing fields as metadata.
func NewValidationError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}

	fields := map[string]any{}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				fields[field] = ferr.Error()
			}
		}
	}

	return goerrors.New(strings.TrimSuffix(err.Error(), "."), goerrors.CategoryValidation).
		WithTextCode(TextCodeValidation).
		WithMetadata(fields)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTokenExpired) || strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for malformed or missing tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrUnauthorized) ||
		strings.Contains(err.Error(), "token is malformed")
}

// IsCodeCheckError reports whether err is one of the OTP check failures
func IsCodeCheckError(err error) bool {
	return errors.Is(err, ErrInvalidOrExpiredCode) ||
		errors.Is(err, ErrInvalidResetCode) ||
		errors.Is(err, ErrResetCodeExpired) ||
		errors.Is(err, ErrResetNotAllowed)
}
