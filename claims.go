package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the read side of a validated bearer token.
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	Name() string
	Role() string
	HasRole(role string) bool
	IsAtLeast(minRole string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims are the claims signed into every issued token
type JWTClaims struct {
	jwt.RegisteredClaims
	UID       string `json:"uid"`
	UserEmail string `json:"email"`
	UserName  string `json:"name,omitempty"`
	UserRole  string `json:"role"`
}

var _ AuthClaims = (*JWTClaims)(nil)

func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the uid claim, falling back to the subject
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

func (c *JWTClaims) Email() string { return c.UserEmail }
func (c *JWTClaims) Name() string  { return c.UserName }
func (c *JWTClaims) Role() string  { return c.UserRole }

// HasRole checks the global role claim
func (c *JWTClaims) HasRole(role string) bool {
	return c.UserRole == role
}

// IsAtLeast checks if the role claim meets minRole
func (c *JWTClaims) IsAtLeast(minRole string) bool {
	role, ok := ParseRole(c.UserRole)
	if !ok {
		return false
	}
	required, ok := ParseRole(minRole)
	if !ok {
		return false
	}
	return role.IsAtLeast(required)
}

func (c *JWTClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}
