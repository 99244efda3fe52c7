package errs

import "fmt"

type InvalidArgumentError struct {
	message string
}

func (v *InvalidArgumentError) Error() string {
	return v.message
}

func InvalidArgumentErrorf(format string, args ...any) *InvalidArgumentError {
	return &InvalidArgumentError{
		message: fmt.Sprintf(format, args...),
	}
}

var _ error = &InvalidArgumentError{}
