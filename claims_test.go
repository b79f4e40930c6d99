package users_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTClaims_Accessors(t *testing.T) {
	issued := time.Now().Add(-time.Minute).Truncate(time.Second)
	expires := time.Now().Add(time.Hour).Truncate(time.Second)

	claims := &users.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "pepe@example.com",
			Issuer:    "test-issuer",
			Audience:  jwt.ClaimStrings{"test-audience"},
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Ext: map[string]any{"plan": "pro"},
	}

	assert.Equal(t, "pepe@example.com", claims.Subject())
	assert.Equal(t, issued, claims.IssuedAt())
	assert.Equal(t, expires, claims.Expires())
	assert.Equal(t, map[string]any{"plan": "pro"}, claims.Claims())
}

func TestJWTClaims_ZeroValues(t *testing.T) {
	claims := &users.JWTClaims{}

	assert.Empty(t, claims.Subject())
	assert.True(t, claims.Expires().IsZero())
	assert.True(t, claims.IssuedAt().IsZero())
	assert.NotNil(t, claims.Claims(), "extension claims are never nil")
	assert.Empty(t, claims.Claims())
}

func TestSessionObject_Getters(t *testing.T) {
	userID := uuid.New()
	issued := time.Now()

	session := &users.SessionObject{
		UserID:   userID.String(),
		Audience: []string{"api"},
		Issuer:   "test-issuer",
		IssuedAt: &issued,
		Data:     map[string]any{"role": "admin"},
	}

	assert.Equal(t, userID.String(), session.GetUserID())
	assert.Equal(t, []string{"api"}, session.GetAudience())
	assert.Equal(t, "test-issuer", session.GetIssuer())
	assert.Equal(t, &issued, session.GetIssuedAt())
	assert.Equal(t, map[string]any{"role": "admin"}, session.GetData())

	parsed, err := session.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
}

func TestSessionObject_GetUserUUIDRejectsNonUUID(t *testing.T) {
	session := &users.SessionObject{UserID: "pepe@example.com"}

	_, err := session.GetUserUUID()
	assert.Error(t, err)
}

func TestSessionObject_String(t *testing.T) {
	session := users.SessionObject{
		UserID: "pepe@example.com",
		Issuer: "test-issuer",
	}

	out := session.String()
	assert.Contains(t, out, "user=pepe@example.com")
	assert.Contains(t, out, "iss=test-issuer")
	assert.Contains(t, out, "iat=<nil>")
}
