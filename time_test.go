package users_test

import (
	"testing"
	"time"

	"github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
)

func TestIsWithinThresholdPeriod(t *testing.T) {
	tests := []struct {
		name          string
		inputTime     time.Time
		thresholdExpr string
		expected      bool
		expectErr     bool
	}{
		{
			name:          "Within 1 hour threshold",
			inputTime:     time.Now().Add(-30 * time.Minute),
			thresholdExpr: "1h",
			expected:      true,
			expectErr:     false,
		},
		{
			name:          "Outside 1 hour threshold",
			inputTime:     time.Now().Add(-90 * time.Minute),
			thresholdExpr: "1h",
			expected:      false,
			expectErr:     false,
		},
		{
			name:          "Within 2 hour threshold",
			inputTime:     time.Now().Add(-90 * time.Minute),
			thresholdExpr: "2h",
			expected:      true,
			expectErr:     false,
		},
		{
			name:          "Invalid threshold expression",
			inputTime:     time.Now(),
			thresholdExpr: "invalid",
			expected:      false,
			expectErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := users.IsWithinThresholdPeriod(tt.inputTime, tt.thresholdExpr)

			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestIsOutsideThresholdPeriod(t *testing.T) {
	tests := []struct {
		name          string
		inputTime     time.Time
		thresholdExpr string
		expected      bool
		expectErr     bool
	}{
		{
			name:          "Within 1 hour threshold",
			inputTime:     time.Now().Add(-30 * time.Minute),
			thresholdExpr: "1h",
			expected:      false,
			expectErr:     false,
		},
		{
			name:          "Outside 1 hour threshold",
			inputTime:     time.Now().Add(-90 * time.Minute),
			thresholdExpr: "1h",
			expected:      true,
			expectErr:     false,
		},
		{
			name:          "Invalid threshold expression",
			inputTime:     time.Now(),
			thresholdExpr: "invalid",
			expected:      false,
			expectErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := users.IsOutsideThresholdPeriod(tt.inputTime, tt.thresholdExpr)

			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}
