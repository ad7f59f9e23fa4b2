package validator

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var mobilePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

func (v *Validator) registerRules() {
	// Mainland mobile number, 11 digits
	v.validate.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	})

	// Rejects whitespace-only strings
	v.validate.RegisterValidation("not_blank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	// YYYY-MM-DD
	v.validate.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gtefield":
		return fmt.Sprintf("must not be before %s", fe.Param())
	case "mobile":
		return "must be a valid mobile number"
	case "not_blank":
		return "must not be blank"
	case "date":
		return "must be a date in YYYY-MM-DD format"
	case "dive":
		return "contains an invalid item"
	default:
		return fmt.Sprintf("validation failed for rule '%s'", fe.Tag())
	}
}
