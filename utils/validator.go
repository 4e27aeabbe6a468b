package utils

import (
	"fmt"
	"strings"

	"github.com/badoux/checkmail"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	// Format validation errors
	var errors []string
	for _, err := range err.(validator.ValidationErrors) {
		field := strings.ToLower(err.Field())
		tag := err.Tag()
		param := err.Param()

		switch tag {
		case "required":
			errors = append(errors, field+" is required")
		case "min":
			errors = append(errors, field+" must be at least "+param+" characters")
		case "max":
			errors = append(errors, field+" must be at most "+param+" characters")
		case "email":
			errors = append(errors, field+" must be a valid email")
		default:
			errors = append(errors, field+" is invalid")
		}
	}

	return fmt.Errorf(strings.Join(errors, ", "))
}

// ValidateAddressFormat is the strict check applied when recipients are
// created or edited through the management API.
func ValidateAddressFormat(email string) error {
	return checkmail.ValidateFormat(email)
}

// IsDeliverableAddress is the lighter syntactic check the dispatch path
// applies before sending: an "@" with a non-empty local and domain part.
// Addresses that fail it are skipped silently, never dispatched to.
func IsDeliverableAddress(email string) bool {
	local, domain, found := strings.Cut(email, "@")
	return found && local != "" && domain != ""
}
