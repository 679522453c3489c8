// Package validator validates request payloads and imported rows.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rpattn/esgdash/internal/domain"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
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

// Struct runs the validate tags of payload and reports failures as a
// domain.ValidationError keyed by JSON field name.
func Struct(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fields := make([]string, 0, len(fieldErrs))
	problems := make([]string, 0, len(fieldErrs))
	onlyRequired := true
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field())
		if fe.Tag() != "required" {
			onlyRequired = false
		}
		problems = append(problems, describe(fe))
	}
	sort.Strings(fields)
	sort.Strings(problems)

	if onlyRequired {
		return domain.NewMissingFieldsError(fields...)
	}
	return &domain.ValidationError{
		Fields:  fields,
		Message: "invalid fields: " + strings.Join(problems, "; "),
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
