package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OTPPurpose tells the notifier which flow a code belongs to.
type OTPPurpose string

const (
	OTPPurposeRegistration  OTPPurpose = "registration"
	OTPPurposePasswordReset OTPPurpose = "password_reset"
)

// User is the credential record, one per normalized email.
//
// Each OTP hash is stored together with its expiry; both are set and
// cleared as a pair.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          UserRole  `bun:"user_role,notnull" json:"role,omitempty"`
	Name          string    `bun:"name" json:"name,omitempty"`
	Email         string    `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string    `bun:"password_hash,nullzero" json:"-"`
	EmailVerified bool      `bun:"is_email_verified,notnull" json:"email_verified"`

	EmailOTPHash      string     `bun:"email_otp_hash,nullzero" json:"-"`
	EmailOTPExpiresAt *time.Time `bun:"email_otp_expires_at,nullzero" json:"-"`

	ResetOTPHash         string     `bun:"reset_otp_hash,nullzero" json:"-"`
	ResetOTPExpiresAt    *time.Time `bun:"reset_otp_expires_at,nullzero" json:"-"`
	ResetPasswordAllowed bool       `bun:"reset_password_allowed,notnull" json:"-"`
	ResetOTPAttempts     int        `bun:"reset_otp_attempts,notnull" json:"-"`

	LastRegistrationOTPAt *time.Time `bun:"last_registration_otp_at,nullzero" json:"-"`
	LastResetOTPAt        *time.Time `bun:"last_reset_otp_at,nullzero" json:"-"`

	LoginAttempts  int        `bun:"login_attempts,notnull" json:"-"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at,nullzero" json:"-"`
	LoggedInAt     *time.Time `bun:"logged_in_at,nullzero" json:"logged_in_at,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

// HasPassword reports whether a local password was ever set. Accounts
// created through a federated identity have none.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != ""
}

func (u *User) setRegistrationOTP(hash string, expiresAt, now time.Time) {
	u.EmailOTPHash = hash
	u.EmailOTPExpiresAt = &expiresAt
	u.LastRegistrationOTPAt = &now
}

func (u *User) clearRegistrationOTP() {
	u.EmailOTPHash = ""
	u.EmailOTPExpiresAt = nil
}

func (u *User) setResetOTP(hash string, expiresAt, now time.Time) {
	u.ResetOTPHash = hash
	u.ResetOTPExpiresAt = &expiresAt
	u.ResetPasswordAllowed = true
	u.ResetOTPAttempts = 0
	u.LastResetOTPAt = &now
}

func (u *User) clearResetOTP() {
	u.ResetOTPHash = ""
	u.ResetOTPExpiresAt = nil
	u.ResetPasswordAllowed = false
	u.ResetOTPAttempts = 0
}

// NormalizeEmail trims and lowercases an email so it can be used as the
// unique record key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Column sets written by the lifecycle commands.
var (
	registrationOTPColumns = []string{
		"email_otp_hash", "email_otp_expires_at", "last_registration_otp_at",
		"is_email_verified", "updated_at",
	}
	completeRegistrationColumns = []string{
		"name", "password_hash", "is_email_verified",
		"email_otp_hash", "email_otp_expires_at", "updated_at",
	}
	resetOTPColumns = []string{
		"reset_otp_hash", "reset_otp_expires_at", "reset_password_allowed",
		"reset_otp_attempts", "last_reset_otp_at", "updated_at",
	}
	resetPasswordColumns = []string{
		"password_hash", "is_email_verified", "login_attempts", "login_attempt_at",
		"reset_otp_hash", "reset_otp_expires_at", "reset_password_allowed", "reset_otp_attempts",
		"updated_at",
	}
	resetAttemptColumns = []string{
		"reset_otp_hash", "reset_otp_expires_at", "reset_password_allowed", "reset_otp_attempts",
		"updated_at",
	}
	setPasswordColumns  = []string{"name", "password_hash", "updated_at"}
	loginAttemptColumns = []string{"login_attempts", "login_attempt_at", "updated_at"}
	loginSuccessColumns = []string{"login_attempts", "login_attempt_at", "logged_in_at", "updated_at"}
)
