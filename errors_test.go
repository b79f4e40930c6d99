package users_test

import (
	"errors"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
)

func TestIsTokenExpiredError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"expired sentinel", users.ErrTokenExpired, true},
		{"wrapped expired sentinel", fmt.Errorf("verify: %w", users.ErrTokenExpired), true},
		{"plain expired message", errors.New("token is expired by 1h"), true},
		{"malformed sentinel", users.ErrTokenMalformed, false},
		{"unrelated error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, users.IsTokenExpiredError(tt.err))
		})
	}
}

func TestIsMalformedError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"malformed sentinel", users.ErrTokenMalformed, true},
		{"wrapped malformed sentinel", fmt.Errorf("verify: %w", users.ErrTokenMalformed), true},
		{"missing or malformed message", errors.New("missing or malformed JWT"), true},
		{"expired sentinel", users.ErrTokenExpired, false},
		{"unrelated error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, users.IsMalformedError(tt.err))
		})
	}
}

func TestIsInvalidTokenError(t *testing.T) {
	assert.True(t, users.IsInvalidTokenError(users.ErrTokenExpired))
	assert.True(t, users.IsInvalidTokenError(users.ErrTokenMalformed))
	assert.False(t, users.IsInvalidTokenError(users.ErrIdentityNotFound))
	assert.False(t, users.IsInvalidTokenError(nil))
}

func TestIsIdentityNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"identity sentinel", users.ErrIdentityNotFound, true},
		{"wrapped identity sentinel", fmt.Errorf("login: %w", users.ErrIdentityNotFound), true},
		{"generic not found category", goerrors.New("no such record", goerrors.CategoryNotFound), true},
		{"repository record not found", repository.NewRecordNotFound(), true},
		{"wrapped repository miss", fmt.Errorf("lookup: %w", repository.NewRecordNotFound()), true},
		{"credential mismatch", users.ErrMismatchedHashAndPassword, false},
		{"unrelated error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, users.IsIdentityNotFoundError(tt.err))
		})
	}
}
