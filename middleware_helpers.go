package users

import (
	"context"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-users/middleware/authware"
)

// ValidationListener aliases the authware listener so consumers can use the
// package helpers directly.
type ValidationListener = authware.ValidationListener

// ContextEnricherAdapter adapts authware.AuthClaims to AuthClaims and stores
// them in the standard context for downstream usage.
func ContextEnricherAdapter(c context.Context, claims authware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}
	return WithClaimsContext(c, authClaims)
}

// RegisterValidationListeners appends listeners to an authware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *authware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}

// NewAuthwareConfig wires the token service and identity provider into the
// request authentication middleware: tokens are verified by the token
// service, subjects are resolved through the provider, and the token is
// double checked against the resolved identity before the principal is
// attached to the request.
func NewAuthwareConfig(tokens TokenService, provider IdentityProvider, opts Config) authware.Config {
	return authware.Config{
		ContextKey:  opts.GetContextKey(),
		TokenLookup: opts.GetTokenLookup(),
		AuthScheme:  opts.GetAuthScheme(),
		SigningKey: authware.SigningKey{
			JWTAlg: opts.GetSigningMethod(),
			Key:    []byte(opts.GetSigningKey()),
		},
		TokenValidator:  authwareValidator{tokens: tokens},
		IdentityLookup:  identityLookup(provider),
		TokenGuard:      tokenGuard(tokens),
		ContextEnricher: ContextEnricherAdapter,
	}
}

// authwareValidator bridges TokenService.Validate to the authware contract.
type authwareValidator struct {
	tokens TokenService
}

func (v authwareValidator) Validate(tokenString string) (authware.AuthClaims, error) {
	claims, err := v.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// identityLookup resolves token subjects against the credential store. A
// missing record reads as an anonymous request, not a failure.
func identityLookup(provider IdentityProvider) authware.IdentityLookup {
	return func(c router.Context, subject string) (authware.Identity, error) {
		identity, err := provider.FindIdentityByIdentifier(c.Context(), subject)
		if err != nil {
			if IsIdentityNotFoundError(err) {
				return nil, nil
			}
			return nil, err
		}
		return identity, nil
	}
}

func tokenGuard(tokens TokenService) authware.TokenGuard {
	return func(raw string, claims authware.AuthClaims, identity authware.Identity) bool {
		return tokens.IsValidFor(raw, identity.Email())
	}
}
