package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Token lifetime bounds, in hours
const (
	MinTokenExpiration     = 7 * 24
	MaxTokenExpiration     = 30 * 24
	DefaultTokenExpiration = MaxTokenExpiration
)

// TokenService issues and validates bearer tokens
type TokenService interface {
	Generate(identity Identity) (string, time.Time, error)
	Validate(tokenString string) (AuthClaims, error)
}

// TokenServiceImpl signs HS256 tokens with a shared secret
type TokenServiceImpl struct {
	signingKey      []byte
	tokenExpiration int
	issuer          string
	audience        jwt.ClaimStrings
	clock           Clock
	logger          Logger
}

// NewTokenService creates a TokenService from cfg. The token expiration is
// clamped to the supported range.
func NewTokenService(cfg Config, logger Logger) *TokenServiceImpl {
	return &TokenServiceImpl{
		signingKey:      []byte(cfg.GetSigningKey()),
		tokenExpiration: clampTokenExpiration(cfg.GetTokenExpiration()),
		issuer:          cfg.GetIssuer(),
		audience:        jwt.ClaimStrings(cfg.GetAudience()),
		logger:          normalizeLogger(logger),
	}
}

// WithClock overrides the time source
func (ts *TokenServiceImpl) WithClock(c Clock) *TokenServiceImpl {
	ts.clock = c
	return ts
}

// Generate signs a token for identity and returns it with its expiry.
func (ts *TokenServiceImpl) Generate(identity Identity) (string, time.Time, error) {
	if identity == nil {
		return "", time.Time{}, goerrors.New("identity must not be nil", goerrors.CategoryInternal)
	}

	now := ts.clock.now()
	expiresAt := now.Add(time.Duration(ts.tokenExpiration) * time.Hour)

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:       identity.ID(),
		UserEmail: identity.Email(),
		UserName:  identity.Name(),
		UserRole:  identity.Role(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", time.Time{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, claims.ExpiresAt.Time, nil
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	if tokenString == "" {
		return nil, ErrUnauthorized
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ts.clock.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Warn("token validate unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)
	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		ts.logger.Debug("token validate failed", "error", err)
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

func clampTokenExpiration(hours int) int {
	switch {
	case hours <= 0:
		return DefaultTokenExpiration
	case hours < MinTokenExpiration:
		return MinTokenExpiration
	case hours > MaxTokenExpiration:
		return MaxTokenExpiration
	default:
		return hours
	}
}
