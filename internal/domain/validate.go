package domain

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// validatorInstance is a package-level validator instance.
// Using a single instance is more efficient as it caches struct information.
var validatorInstance = validator.New()

func init() {
	// Usernames are interpolated into broker destinations such as
	// /user/{username}/queue/private, so path separators and wildcards are
	// rejected.
	_ = validatorInstance.RegisterValidation("username", validateUsername)
}

func validateUsername(fl validator.FieldLevel) bool {
	return ValidUsername(fl.Field().String())
}

// ValidUsername reports whether name can be used as a chat username.
func ValidUsername(name string) bool {
	if strings.TrimSpace(name) != name || name == "" || len(name) > 64 {
		return false
	}
	return !strings.ContainsAny(name, "/\\*#>{} \t\r\n")
}

// Validator returns the shared validator so other packages get the custom
// "username" rule.
func Validator() *validator.Validate {
	return validatorInstance
}
