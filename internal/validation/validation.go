// Package validation checks request structs with go-playground/validator struct tags.
package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/myrjola/manuscript/internal/errors"
	"github.com/myrjola/manuscript/internal/models"
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	validate := validator.New()
	// Report fields by their JSON name since that is what clients send.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return &Validator{validate: validate}
}

// Struct validates v and wraps the first failure in models.ErrInvalidInput with a client-facing message.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return errors.Wrap(models.ErrInvalidInput, "invalid input")
	}
	return errors.Wrap(models.ErrInvalidInput, describe(validationErrors[0]))
}

func describe(fieldErr validator.FieldError) string {
	field := fieldErr.Field()
	switch fieldErr.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "invalid email address"
	case "min":
		if fieldErr.Kind() == reflect.String {
			return field + " must be at least " + fieldErr.Param() + " characters"
		}
		return field + " must be at least " + fieldErr.Param()
	case "max":
		if fieldErr.Kind() == reflect.String {
			return field + " must be at most " + fieldErr.Param() + " characters"
		}
		return field + " must be at most " + fieldErr.Param()
	case "gt":
		return field + " must be greater than " + fieldErr.Param()
	case "hexcolor":
		return field + " must be a hex color"
	case "oneof":
		return field + " must be one of " + fieldErr.Param()
	default:
		return "invalid " + field
	}
}
