package identity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SessionObject carries the claims of an authenticated request
type SessionObject struct {
	UserID         string         `json:"user_id"`
	Email          string         `json:"email"`
	Name           string         `json:"name,omitempty"`
	Role           string         `json:"role"`
	Audience       []string       `json:"audience,omitempty"`
	Issuer         string         `json:"issuer,omitempty"`
	IssuedAt       *time.Time     `json:"issued_at,omitempty"`
	ExpirationDate *time.Time     `json:"expiration_date,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetAudience() []string {
	return s.Audience
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

// IsExpired reports whether the session expired at now
func (s *SessionObject) IsExpired(now time.Time) bool {
	return s.ExpirationDate != nil && !now.Before(*s.ExpirationDate)
}

func (s SessionObject) String() string {
	b, err := json.Marshal(s)
	if err != nil {
		return s.UserID
	}
	return string(b)
}

// SessionFromClaims builds a session from validated token claims.
func SessionFromClaims(claims AuthClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnauthorized
	}

	session := &SessionObject{
		UserID: claims.UserID(),
		Email:  claims.Email(),
		Name:   claims.Name(),
		Role:   claims.Role(),
		Data:   map[string]any{},
	}

	if iat := claims.IssuedAt(); !iat.IsZero() {
		session.IssuedAt = &iat
	}
	if exp := claims.Expires(); !exp.IsZero() {
		session.ExpirationDate = &exp
	}

	if jc, ok := claims.(*JWTClaims); ok {
		session.Issuer = jc.Issuer
		session.Audience = jc.Audience
	}

	return session, nil
}
