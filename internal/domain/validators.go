package domain

import (
	"fmt"
	"regexp"
)

var emailRegex = regexp.MustCompile(`^.+@.+\..+$`)

// ValidateEmail enforces the liberal regex spec §4.2 names for registration
// and login: ".+@.+\..+".
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateName enforces the name >= 2 chars constraint (spec §4.2).
func ValidateName(name string) error {
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

// ValidatePassword enforces the password >= 8 chars constraint (spec §4.2).
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}

// ValidatePositiveAmount checks that an amount is a positive integer number
// of minor units (spec §4.4 precondition).
func ValidatePositiveAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amount)
	}
	return nil
}

// ValidateIdempotencyKey rejects empty keys (spec §4.4 precondition).
func ValidateIdempotencyKey(key string) error {
	if key == "" {
		return fmt.Errorf("idempotency key is required")
	}
	return nil
}
