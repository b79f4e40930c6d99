package users

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthClaims is the read-side view of a verified identity token.
type AuthClaims interface {
	Subject() string
	Claims() map[string]any
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims. Ext carries the
// open claim mapping callers may attach at issuance; registered claims stay
// under the control of the token service.
type JWTClaims struct {
	jwt.RegisteredClaims
	Ext map[string]any `json:"ext,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Claims returns the extension claim mapping. Never nil.
func (c *JWTClaims) Claims() map[string]any {
	if c.Ext == nil {
		return map[string]any{}
	}
	return c.Ext
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ensureTokenID assigns a jti when the caller did not provide one so every
// issued token stays individually traceable.
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
