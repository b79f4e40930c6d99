package users

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// PhoneInput is the wire shape for a phone number attached at registration.
type PhoneInput struct {
	Number      string `json:"number"`
	CityCode    string `json:"city_code"`
	CountryCode string `json:"country_code"`
}

// NormalizePhone parses the split phone fields into a canonical E.164 string.
// The country code may carry a leading "+" or "00" prefix.
func NormalizePhone(in PhoneInput) (string, error) {
	raw := "+" + cleanDialDigits(in.CountryCode) + cleanDialDigits(in.CityCode) + cleanDialDigits(in.Number)
	if raw == "+" {
		return "", goerrors.New("empty phone number", goerrors.CategoryValidation).
			WithTextCode("INVALID_PHONE")
	}

	num, err := phonenumbers.Parse(raw, "ZZ")
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryValidation, "unparseable phone number").
			WithTextCode("INVALID_PHONE")
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", goerrors.New("invalid phone number", goerrors.CategoryValidation).
			WithTextCode("INVALID_PHONE").
			WithMetadata(map[string]any{"number": raw})
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func cleanDialDigits(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	s = strings.TrimPrefix(s, "00")

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// phoneFromInput builds a Phone record bound to the owning user. The stored
// fields keep the caller's split shape while Number holds the E.164 form.
func phoneFromInput(in PhoneInput, userID uuid.UUID, normalized string) *Phone {
	return &Phone{
		ID:          uuid.New(),
		Number:      normalized,
		CityCode:    cleanDialDigits(in.CityCode),
		CountryCode: cleanDialDigits(in.CountryCode),
		UserID:      userID,
	}
}
