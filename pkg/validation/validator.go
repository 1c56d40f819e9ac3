package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/richxcame/upi-guard/internal/upi"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Get returns the shared validator with the custom tags registered
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their JSON names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})

		_ = validate.RegisterValidation("upi", validateUPI)
	})
	return validate
}

// validateUPI accepts strings that parse as a virtual payment address
func validateUPI(fl validator.FieldLevel) bool {
	return upi.Validate(fl.Field().String()) == nil
}

// ValidateStruct validates s and converts failures into a *ValidationError.
// A `upi` tag failure carries the parser's own message.
func ValidateStruct(s interface{}) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := NewValidationError(verrs)
	for _, fe := range verrs {
		if fe.Tag() != "upi" {
			continue
		}
		if value, ok := fe.Value().(string); ok {
			if perr := upi.Validate(value); perr != nil {
				out.AddError(fe.Field(), perr.Error())
			}
		}
	}
	return out
}
