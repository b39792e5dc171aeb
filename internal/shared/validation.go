package shared

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps form field names to a human readable message. The
// "general" key carries errors that do not belong to a single field.
type FieldErrors map[string]string

// Add records msg for field unless the field already has an error.
func (e FieldErrors) Add(field, msg string) {
	if _, exists := e[field]; !exists {
		e[field] = msg
	}
}

// NewValidator returns a validator that reports fields by their `form` tag.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// ValidateForm runs struct validation and converts failures to FieldErrors.
func ValidateForm(v *validator.Validate, form any) FieldErrors {
	errs := FieldErrors{}
	err := v.Struct(form)
	if err == nil {
		return errs
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		errs.Add("general", "Invalid form submission.")
		return errs
	}
	for _, fieldErr := range validationErrs {
		errs.Add(fieldErr.Field(), messageFor(fieldErr))
	}
	return errs
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "min":
		return fmt.Sprintf("Field must be at least %s characters long.", fe.Param())
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	case "eqfield":
		return fmt.Sprintf("Field must be equal to %s.", strings.ToLower(fe.Param()))
	case "gte", "lte":
		return "Value is out of range."
	default:
		return "Invalid value."
	}
}
