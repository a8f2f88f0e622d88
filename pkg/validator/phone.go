package validator

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var (
	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")

	// ErrUnparsablePhone indicates the phone number could not be parsed
	ErrUnparsablePhone = errors.New("phone number could not be parsed")

	// ErrInvalidPhone indicates the phone number is not valid for its region
	ErrInvalidPhone = errors.New("phone number is not valid")
)

// DefaultPhoneRegion is the region used to parse numbers entered without a
// country prefix.
const DefaultPhoneRegion = "GB"

// PhoneValidator handles phone number validation, delegating the actual
// validity rules to the phonenumbers library.
type PhoneValidator struct {
	region string
}

// NewPhoneValidator creates a new phone validator for the default region
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{region: DefaultPhoneRegion}
}

// NewPhoneValidatorForRegion creates a phone validator for a specific region
func NewPhoneValidatorForRegion(region string) *PhoneValidator {
	return &PhoneValidator{region: region}
}

// Validate validates a phone number.
// Accepts national format (07700 900123) or international (+44 7700 900123).
// Returns the number formatted in E.164 and an error if invalid.
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	parsed, err := phonenumbers.Parse(phone, v.region)
	if err != nil {
		return "", ErrUnparsablePhone
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return "", ErrInvalidPhone
	}

	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

// IsValid reports whether a phone number passes validation
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}
