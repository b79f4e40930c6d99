package authware

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup       = "header:" + router.HeaderAuthorization
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
)

// invalidTokenBody is the fixed plain-text payload returned for tokens that
// fail verification. Kept stable so clients can match on it.
const invalidTokenBody = "Invalid or expired token"

// TokenValidator validates raw tokens without importing the root package.
// This mirrors TokenService.Validate from the users package.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// AuthClaims is the read view of a verified token. This mirrors the
// AuthClaims interface from the users package.
type AuthClaims interface {
	Subject() string
	Claims() map[string]any
	Expires() time.Time
	IssuedAt() time.Time
}

// Identity is the resolved account a token's subject points at.
type Identity interface {
	ID() string
	Name() string
	Email() string
}

// IdentityLookup resolves a token subject against the credential store.
// Returning (nil, nil) means the subject is unknown and the request should
// continue unauthenticated.
type IdentityLookup func(c router.Context, subject string) (Identity, error)

// TokenGuard runs an extra token-vs-identity check after the subject has been
// resolved. It receives the raw token so implementations can re-verify it
// against the identity. Returning false leaves the request unauthenticated
// without failing it.
type TokenGuard func(raw string, claims AuthClaims, identity Identity) bool

// ValidationListener is invoked after a token has been validated but before
// the request proceeds.
type ValidationListener func(ctx router.Context, claims AuthClaims) error

type Config struct {
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	SigningKey     SigningKey
	SigningKeys    map[string]SigningKey
	ContextKey     string
	// IdentityKey is the locals key the resolved identity is stored under.
	IdentityKey string
	TokenLookup string
	AuthScheme  string
	KeyFunc     jwt.Keyfunc
	JWKSetURLs  []string

	// TokenValidator verifies raw tokens. When nil, a validator is built from
	// the configured signing keys or JWK set URLs.
	TokenValidator TokenValidator

	// IdentityLookup resolves the token subject to a stored identity. When
	// nil the middleware authenticates on claims alone.
	IdentityLookup IdentityLookup

	// TokenGuard is an optional token-vs-identity consistency check.
	TokenGuard TokenGuard

	// ContextEnricher is an optional function to propagate claims to the
	// standard Go context. If provided, it will be called after successful
	// token validation.
	ContextEnricher func(c context.Context, claims AuthClaims) context.Context

	// ValidationListeners are invoked after token validation succeeds. Use
	// them to emit events or perform bookkeeping before the request proceeds.
	ValidationListeners []ValidationListener
}

// New returns the request authentication middleware. Requests without a
// usable Authorization value pass through anonymously; requests presenting a
// token that fails verification are rejected with a 401 and a fixed
// plain-text body.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			// already authenticated upstream, nothing to redo
			if ctx.Locals(cfg.ContextKey) != nil {
				return ctx.Next()
			}

			raw, err := ExtractRawTokenFromContext(ctx, cfg.getExtractors())
			if err != nil || raw == "" {
				return ctx.Next()
			}

			claims, err := cfg.TokenValidator.Validate(raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			// a token without a subject asserts no principal
			if claims.Subject() == "" {
				return ctx.Next()
			}

			var identity Identity
			if cfg.IdentityLookup != nil {
				identity, err = cfg.IdentityLookup(ctx, claims.Subject())
				if err != nil || identity == nil {
					// unknown or unavailable subject: continue unauthenticated
					return ctx.Next()
				}

				if cfg.TokenGuard != nil && !cfg.TokenGuard(raw, claims, identity) {
					return ctx.Next()
				}
			}

			if err := cfg.runValidationListeners(ctx, claims); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, claims)

			if identity != nil && cfg.IdentityKey != "" {
				ctx.Locals(cfg.IdentityKey, identity)
			}

			// if a context enricher we use it to propagate claims to the standard context
			if cfg.ContextEnricher != nil {
				stdCtx := ctx.Context()
				stdCtxWithClaims := cfg.ContextEnricher(stdCtx, claims)
				ctx.SetContext(stdCtxWithClaims)
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

// Protected returns a hard gate for routes that require an authenticated
// principal. Run it after New; it rejects any request New left anonymous.
func Protected(contextKey ...string) router.MiddlewareFunc {
	key := "user"
	if len(contextKey) > 0 && contextKey[0] != "" {
		key = contextKey[0]
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if ctx.Locals(key) == nil {
				return unauthorized(ctx)
			}
			return ctx.Next()
		}
	}
}

func unauthorized(c router.Context) error {
	c.SetHeader("Content-Type", "text/plain; charset=utf-8")
	return c.Status(router.StatusUnauthorized).SendString(invalidTokenBody)
}

func ExtractRawTokenFromContext(ctx router.Context, extractors []JWTExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			return unauthorized(c)
		}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.IdentityKey == "" {
		cfg.IdentityKey = "identity"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	cfg.KeyFunc = resolveKeyFunc(cfg)

	if cfg.TokenValidator == nil {
		if cfg.KeyFunc == nil {
			panic("AUTHWARE: middleware configuration: one of TokenValidator, KeyFunc, JWKSetURLs, SigningKeys, or SigningKey is required.")
		}
		cfg.TokenValidator = keyfuncValidator{keyFunc: cfg.KeyFunc}
	}

	return cfg
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(ctx router.Context, claims AuthClaims) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(ctx, claims); err != nil {
			return err
		}
	}
	return nil
}
