package identity

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Work factors for stored secrets. Race builds lower them, see
// bcrypt_cost_race.go.
var (
	PasswordHashCost = 12
	OTPHashCost      = bcrypt.DefaultCost
)

// bcrypt ignores input past 72 bytes
const maxPasswordBytes = 72

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	return hashSecret(password, PasswordHashCost)
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	return compareSecret(password, hash)
}

// HashOTP hashes a one time code with a per code salt.
func HashOTP(code string) (string, error) {
	return hashSecret(code, OTPHashCost)
}

// CompareOTP checks code against a hash produced by HashOTP.
func CompareOTP(code, hash string) error {
	if hash == "" {
		return ErrMismatchedHashAndPassword
	}
	return compareSecret(code, hash)
}

func hashSecret(secret string, cost int) (string, error) {
	if secret == "" {
		return "", ErrNoEmptyString
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	return string(h), err
}

func compareSecret(secret, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}
