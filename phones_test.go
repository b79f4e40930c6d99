package users_test

import (
	"testing"

	"github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		input    users.PhoneInput
		expected string
		wantErr  bool
	}{
		{
			name:     "US number with city code",
			input:    users.PhoneInput{CountryCode: "1", CityCode: "212", Number: "5550123"},
			expected: "+12125550123",
		},
		{
			name:     "country code with plus prefix",
			input:    users.PhoneInput{CountryCode: "+44", CityCode: "20", Number: "79460000"},
			expected: "+442079460000",
		},
		{
			name:     "country code with 00 prefix",
			input:    users.PhoneInput{CountryCode: "0044", CityCode: "20", Number: "79460000"},
			expected: "+442079460000",
		},
		{
			name:     "formatting characters are stripped",
			input:    users.PhoneInput{CountryCode: "1", CityCode: "(212)", Number: "555-0123"},
			expected: "+12125550123",
		},
		{
			name:    "empty input",
			input:   users.PhoneInput{},
			wantErr: true,
		},
		{
			name:    "too short to be valid",
			input:   users.PhoneInput{CountryCode: "1", Number: "12"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := users.NormalizePhone(tt.input)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
