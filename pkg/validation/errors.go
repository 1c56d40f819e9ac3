package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a validation error with field-level details
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	fields := make([]string, 0, len(v.Errors))
	for field := range v.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, fmt.Sprintf("%s: %s", field, v.Errors[field]))
	}
	return strings.Join(messages, "; ")
}

// NewValidationError creates a new ValidationError from validator.ValidationErrors
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	out := &ValidationError{Errors: make(map[string]string, len(errs))}
	for _, fe := range errs {
		out.Errors[fe.Field()] = getErrorMessage(fe)
	}
	return out
}

// tagMessages maps validator tags to message formats. Each format takes the
// field name and the tag parameter.
var tagMessages = map[string]string{
	"required":   "%s is required",
	"email":      "%s must be a valid email address",
	"min":        "%s must be at least %s characters long",
	"max":        "%s must be at most %s characters long",
	"gte":        "%s must be greater than or equal to %s",
	"lte":        "%s must be less than or equal to %s",
	"oneof":      "%s must be one of: %s",
	"upi":        "%s must be a valid UPI ID (username@domain)",
	"uuid":       "%s must be a valid UUID",
	"printascii": "%s must contain printable characters only",
}

func getErrorMessage(err validator.FieldError) string {
	format, ok := tagMessages[err.Tag()]
	if !ok {
		return fmt.Sprintf("%s is invalid", err.Field())
	}
	if strings.Count(format, "%s") == 1 {
		return fmt.Sprintf(format, err.Field())
	}
	return fmt.Sprintf(format, err.Field(), err.Param())
}

// AddError adds a custom error message for a field
func (v *ValidationError) AddError(field, message string) {
	if v.Errors == nil {
		v.Errors = make(map[string]string)
	}
	v.Errors[field] = message
}

// HasErrors reports whether any field failed
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// GetFieldError returns the message recorded for field
func (v *ValidationError) GetFieldError(field string) (string, bool) {
	msg, exists := v.Errors[field]
	return msg, exists
}
