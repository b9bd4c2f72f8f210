package identity

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// GetFiberClaims extracts the AuthClaims stored by the bearer middleware,
// looking at the user context first and the locals under key second.
func GetFiberClaims(c *fiber.Ctx, key string) (AuthClaims, bool) {
	if claims, ok := GetClaims(c.UserContext()); ok {
		return claims, true
	}
	if key == "" {
		key = "user"
	}
	claims, ok := c.Locals(key).(AuthClaims)
	return claims, ok
}

// SessionFromContext builds the session of the authenticated request
func SessionFromContext(ctx context.Context) (*SessionObject, error) {
	claims, ok := GetClaims(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	return SessionFromClaims(claims)
}
