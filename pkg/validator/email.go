package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyEmail indicates email address is empty
	ErrEmptyEmail = errors.New("email address cannot be empty")

	// ErrInvalidEmail indicates email address is syntactically invalid
	ErrInvalidEmail = errors.New("email address is not valid")
)

// emailRegex is a pragmatic syntax check, not a full RFC 5322 parser
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// EmailValidator handles email address syntax validation
type EmailValidator struct{}

// NewEmailValidator creates a new email validator instance
func NewEmailValidator() *EmailValidator {
	return &EmailValidator{}
}

// Validate validates an email address and returns the trimmed, lowercased
// address on success
func (v *EmailValidator) Validate(email string) (string, error) {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return "", ErrEmptyEmail
	}

	normalized := strings.ToLower(trimmed)
	if !emailRegex.MatchString(normalized) {
		return "", ErrInvalidEmail
	}

	return normalized, nil
}

// IsValid reports whether an email address passes validation
func (v *EmailValidator) IsValid(email string) bool {
	_, err := v.Validate(email)
	return err == nil
}
