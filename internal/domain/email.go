package domain

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/pesio-ai/be-hr-approvals/internal/errors"
)

var validate = sync.OnceValue(func() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
})

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	return validate()
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail normalizes email and checks it is well formed.
func ValidateEmail(field, email string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", errors.InvalidInput(field, "email is required")
	}
	if err := validate().Var(email, "email"); err != nil {
		return "", errors.InvalidInput(field, "malformed email address")
	}
	return email, nil
}

// SameEmail compares two addresses after normalization.
func SameEmail(a, b string) bool {
	return NormalizeEmail(a) == NormalizeEmail(b)
}
