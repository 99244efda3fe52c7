package errs

import (
	"errors"
	"fmt"
)

type ValidationError struct {
	message string
	cause   error
}

func (v *ValidationError) Error() string {
	return v.message
}

func (v *ValidationError) Unwrap() error {
	return v.cause
}

// ValidationErrorf formats like fmt.Errorf; an error passed with %w stays
// reachable through errors.As.
func ValidationErrorf(format string, args ...any) *ValidationError {
	err := fmt.Errorf(format, args...)
	return &ValidationError{
		message: err.Error(),
		cause:   errors.Unwrap(err),
	}
}

var _ error = &ValidationError{}
