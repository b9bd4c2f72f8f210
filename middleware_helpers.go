package identity

import (
	"context"

	"github.com/trustlayer/go-identity/middleware/jwtware"
)

// ContextEnricherAdapter adapts jwtware.AuthClaims to AuthClaims and stores
// them in the standard context for downstream handlers.
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}
	return WithClaimsContext(c, authClaims)
}

// tokenValidatorAdapter narrows AuthClaims to what the middleware needs
type tokenValidatorAdapter struct {
	validator TokenValidator
}

func (t tokenValidatorAdapter) Validate(token string) (jwtware.AuthClaims, error) {
	if t.validator == nil {
		return nil, ErrUnauthorized
	}
	claims, err := t.validator.Validate(token)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
