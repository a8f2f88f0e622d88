package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPhoneValidator(t *testing.T) {
	validator := NewPhoneValidator()
	assert.NotNil(t, validator)
}

func TestPhoneValidate_ValidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	validNumbers := []struct {
		input    string
		expected string
		name     string
	}{
		{"07700 900123", "+447700900123", "National format with space"},
		{"07700900123", "+447700900123", "National format"},
		{"+44 7700 900123", "+447700900123", "International format"},
		{"+447700900123", "+447700900123", "E.164 format"},
		{"(07700) 900-123", "+447700900123", "With separators"},
		{"020 7946 0958", "+442079460958", "London landline"},
	}

	for _, tc := range validNumbers {
		t.Run(tc.name, func(t *testing.T) {
			formatted, err := validator.Validate(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, formatted)
		})
	}
}

func TestPhoneValidate_InvalidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	invalidNumbers := []struct {
		input       string
		expectedErr error
		name        string
	}{
		{"", ErrEmptyPhone, "Empty"},
		{"   ", ErrEmptyPhone, "Whitespace only"},
		{"0770090", ErrInvalidPhone, "Too short"},
		{"07700 900123 4567", ErrInvalidPhone, "Too long"},
		{"not a number", ErrUnparsablePhone, "Not numeric"},
	}

	for _, tc := range invalidNumbers {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.Validate(tc.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func TestPhoneIsValid(t *testing.T) {
	validator := NewPhoneValidator()

	assert.True(t, validator.IsValid("07700 900123"))
	assert.False(t, validator.IsValid(""))
	assert.False(t, validator.IsValid("12345"))
}

func TestPhoneValidatorForRegion(t *testing.T) {
	validator := NewPhoneValidatorForRegion("IE")

	formatted, err := validator.Validate("085 123 4567")
	require.NoError(t, err)
	assert.Equal(t, "+353851234567", formatted)
}
