package contextutils

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,32}$`)

// IsValidEmail checks if an email address is valid using go-playground/validator
func IsValidEmail(email string) bool {
	return validate.Var(email, "email") == nil
}

// IsValidUsername checks that a username is 3-32 characters of letters, digits,
// dots, dashes or underscores.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}
