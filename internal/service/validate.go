package service

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dtroode/authkeeper/internal/apperr"
)

const minPasswordLength = 8

// maxPasswordLength is the longest input bcrypt accepts, in bytes.
const maxPasswordLength = 72

const (
	passwordRequirement = "Password must be at least 8 characters long, include an uppercase letter and a number"
	passwordTooLong     = "Password must be at most 72 characters long"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// passwordSymbols are the non-alphanumeric characters a password may contain.
const passwordSymbols = "@$!%*?&"

// checkPassword returns a validation error when password breaks the password rule.
func checkPassword(password string) error {
	if len(password) > maxPasswordLength {
		return apperr.NewErrValidation(passwordTooLong)
	}
	if !isValidPassword(password) {
		return apperr.NewErrValidation(passwordRequirement)
	}
	return nil
}

func isValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// isValidPassword requires minPasswordLength characters drawn from ASCII
// letters, digits and passwordSymbols, with at least one uppercase letter and one digit.
func isValidPassword(password string) bool {
	if len(password) < minPasswordLength {
		return false
	}

	var hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case r > unicode.MaxASCII:
			return false
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'a' && r <= 'z':
		case strings.ContainsRune(passwordSymbols, r):
		default:
			return false
		}
	}

	return hasUpper && hasDigit
}
