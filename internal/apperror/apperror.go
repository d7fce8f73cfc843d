// Package apperror maps validation failures to client-facing messages.
package apperror

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	errRequired      = errors.New("is required")
	errInvalidEmail  = errors.New("must be a valid email address")
	errMustBeNonNeg  = errors.New("must be zero or greater")
	errInvalidChoice = errors.New("must be one of the listed values")
	errTooLong       = errors.New("is too long")
)

var tagErrors = map[string]error{
	"required": errRequired,
	"email":    errInvalidEmail,
	"gte":      errMustBeNonNeg,
	"oneof":    errInvalidChoice,
	"category": errInvalidChoice,
	"max":      errTooLong,
}

// FieldError names a field and what is wrong with it.
type FieldError struct {
	Field   string
	Message string
}

// Error implements error.
func (e FieldError) Error() string {
	return e.Field + " " + e.Message
}

// FieldErrors converts validator errors into one FieldError per failing field.
// Field names are the json tag names when the validator was built by NewValidator.
func FieldErrors(err error) []FieldError {
	var validationErr validator.ValidationErrors
	if !errors.As(err, &validationErr) {
		return nil
	}

	list := make([]FieldError, 0, len(validationErr))
	for _, e := range validationErr {
		msg := fmt.Sprintf("is invalid (%s)", e.Tag())
		if v, ok := tagErrors[e.Tag()]; ok {
			msg = v.Error()
		}
		list = append(list, FieldError{Field: e.Field(), Message: msg})
	}
	return list
}

// CustomValidationError renders validator errors as a list of {field: message} objects.
func CustomValidationError(err error) []map[string]string {
	errList := make([]map[string]string, 0)
	for _, fe := range FieldErrors(err) {
		errList = append(errList, map[string]string{fe.Field: fe.Message})
	}
	return errList
}
