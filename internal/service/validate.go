package service

import (
	"errors"
	"fmt"
	"regexp"

	crmerrors "github.com/abgdnv/gocrm/internal/errors"
	"github.com/go-playground/validator/v10"
)

// Accepted phone formats: international (+ followed by 7-15 digits) or
// grouped NNN-NNN-NNNN.
var (
	intlPhonePattern    = regexp.MustCompile(`^\+\d{7,15}$`)
	groupedPhonePattern = regexp.MustCompile(`^\d{3}-\d{3}-\d{4}$`)
)

// validateCustomerFields checks field-level customer constraints. Pure; the
// uniqueness check against the store happens in the mutation engine.
func validateCustomerFields(v *validator.Validate, in CustomerCreateDto) error {
	if err := v.Struct(in); err != nil {
		return asFieldError(err)
	}
	if in.Phone != "" && !intlPhonePattern.MatchString(in.Phone) && !groupedPhonePattern.MatchString(in.Phone) {
		return crmerrors.NewValidationError(crmerrors.CodeInvalidPhone,
			"Invalid phone format. Use +1234567890 or 123-456-7890")
	}
	return nil
}

// validateProductFields checks field-level product constraints. Pure.
func validateProductFields(v *validator.Validate, in ProductCreateDto) error {
	if err := v.Struct(in); err != nil {
		return asFieldError(err)
	}
	if in.Price.Sign() <= 0 {
		return crmerrors.NewValidationError(crmerrors.CodeInvalidPrice, "Price must be positive")
	}
	if in.Stock != nil && *in.Stock < 0 {
		return crmerrors.NewValidationError(crmerrors.CodeInvalidStock, "Stock cannot be negative")
	}
	return nil
}

// asFieldError converts a validator error into a ValidationError: required
// failures report missing_field, email syntax failures report invalid_email.
func asFieldError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	for _, fieldErr := range validationErrors {
		switch fieldErr.Tag() {
		case "required":
			return crmerrors.NewValidationError(crmerrors.CodeMissingField,
				fmt.Sprintf("%s is required", fieldErr.Field()))
		case "email":
			return crmerrors.NewValidationError(crmerrors.CodeInvalidEmail, "Invalid email format")
		default:
			return crmerrors.NewValidationError(crmerrors.CodeMissingField,
				fmt.Sprintf("%s failed on rule: %s", fieldErr.Field(), fieldErr.Tag()))
		}
	}
	return err
}
