package authware

import (
	"fmt"
	"log"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// SigningKey holds a verification key plus the algorithm it expects.
type SigningKey struct {
	JWTAlg string
	Key    any
}

// resolveKeyFunc builds a jwt.Keyfunc from whichever key source the config
// carries. Returns nil when no key material is available.
func resolveKeyFunc(cfg Config) jwt.Keyfunc {
	if cfg.KeyFunc != nil {
		return cfg.KeyFunc
	}

	if len(cfg.SigningKeys) > 0 || len(cfg.JWKSetURLs) > 0 {
		var givenKeys map[string]keyfunc.GivenKey
		if cfg.SigningKeys != nil {
			givenKeys = make(map[string]keyfunc.GivenKey, len(cfg.SigningKeys))
			for kid, key := range cfg.SigningKeys {
				givenKeys[kid] = keyfunc.NewGivenCustom(key.Key, keyfunc.GivenKeyOptions{
					Algorithm: key.JWTAlg,
				})
			}
		}

		if len(cfg.JWKSetURLs) > 0 {
			kf, err := multiKeyfunc(givenKeys, cfg.JWKSetURLs)
			if err != nil {
				panic("Failed to create keyfunc from JWK Set URL: " + err.Error())
			}
			return kf
		}

		return keyfunc.NewGiven(givenKeys).Keyfunc
	}

	if cfg.SigningKey.Key != nil {
		return signingKeyFunc(cfg.SigningKey)
	}

	return nil
}

func multiKeyfunc(givenKeys map[string]keyfunc.GivenKey, jwtSetUrls []string) (jwt.Keyfunc, error) {
	opts := keyfuncOptions(givenKeys)
	m := make(map[string]keyfunc.Options, len(jwtSetUrls))
	for _, url := range jwtSetUrls {
		m[url] = opts
	}
	mopts := keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	}
	multi, err := keyfunc.GetMultiple(m, mopts)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWT URLs: %w", err)
	}
	return multi.Keyfunc, nil
}

func keyfuncOptions(givenKeys map[string]keyfunc.GivenKey) keyfunc.Options {
	return keyfunc.Options{
		GivenKeys: givenKeys,
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of JWT set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}
}

func signingKeyFunc(key SigningKey) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if key.JWTAlg != "" {
			alg, ok := token.Header["alg"].(string)
			if !ok {
				return nil, fmt.Errorf("unexpected JWT signing method: expected %q got: missing json type", key.JWTAlg)
			}
			if alg != key.JWTAlg {
				return nil, fmt.Errorf("unexpected jwt signing method: expected: %q: got: %q", key.JWTAlg, alg)
			}
		}
		return key.Key, nil
	}
}

// tokenClaims is the local claims shape used when authware validates tokens
// on its own via a keyfunc instead of a TokenValidator.
type tokenClaims struct {
	jwt.RegisteredClaims
	Ext map[string]any `json:"ext,omitempty"`
}

func (c *tokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

func (c *tokenClaims) Claims() map[string]any {
	if c.Ext == nil {
		return map[string]any{}
	}
	return c.Ext
}

func (c *tokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

func (c *tokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

var _ AuthClaims = (*tokenClaims)(nil)

// keyfuncValidator verifies tokens directly against a jwt.Keyfunc. Used when
// the caller supplies key material instead of a TokenValidator.
type keyfuncValidator struct {
	keyFunc jwt.Keyfunc
}

func (v keyfuncValidator) Validate(tokenString string) (AuthClaims, error) {
	claims := &tokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc)
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}

	return claims, nil
}
