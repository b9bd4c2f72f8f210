package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	// OTPDigits is the length of every issued code
	OTPDigits = 6
	// DefaultOTPTTL is how long an issued code stays valid
	DefaultOTPTTL = 10 * time.Minute
	// DefaultOTPCooldown is the minimum wait between two codes for the
	// same purpose and email
	DefaultOTPCooldown = 60 * time.Second
)

var otpUpperBound = big.NewInt(1_000_000)

// GenerateOTP returns a uniformly random six digit decimal code.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpUpperBound)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", OTPDigits, n.Int64()), nil
}

// IssuedOTP is a freshly generated code. Only Hash is persisted.
type IssuedOTP struct {
	Code      string
	Hash      string
	ExpiresAt time.Time
}

// OTPIssuer generates codes and their absolute expiry.
type OTPIssuer struct {
	TTL      time.Duration
	Generate func() (string, error)
}

// NewOTPIssuer returns an issuer using ttl, or DefaultOTPTTL when ttl is
// not positive.
func NewOTPIssuer(ttl time.Duration) *OTPIssuer {
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	return &OTPIssuer{TTL: ttl, Generate: GenerateOTP}
}

// Issue creates a code valid until now+TTL.
func (i *OTPIssuer) Issue(now time.Time) (*IssuedOTP, error) {
	gen := i.Generate
	if gen == nil {
		gen = GenerateOTP
	}

	code, err := gen()
	if err != nil {
		return nil, err
	}

	hash, err := HashOTP(code)
	if err != nil {
		return nil, fmt.Errorf("hash otp: %w", err)
	}

	return &IssuedOTP{
		Code:      code,
		Hash:      hash,
		ExpiresAt: now.Add(i.TTL),
	}, nil
}

// VerifyOTP checks code against the stored hash and expiry. A code is
// valid strictly before its expiry instant.
func VerifyOTP(code, hash string, expiresAt *time.Time, now time.Time) bool {
	if code == "" || hash == "" || expiresAt == nil {
		return false
	}
	if !now.Before(*expiresAt) {
		return false
	}
	return CompareOTP(code, hash) == nil
}
