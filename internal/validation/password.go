package validation

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var specialChars = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)

// HasSpecialChar checks if a string contains at least one special character
func HasSpecialChar(s string) bool {
	return specialChars.MatchString(s)
}

// CheckPassword enforces the account password policy.
func CheckPassword(pw string) error {
	switch {
	case len(pw) < MinPasswordLength:
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	case len(pw) > MaxPasswordLength:
		return fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
	case !HasSpecialChar(pw):
		return fmt.Errorf("password must contain a special character")
	}
	return nil
}

func passwordTag(fl validator.FieldLevel) bool {
	return CheckPassword(fl.Field().String()) == nil
}
