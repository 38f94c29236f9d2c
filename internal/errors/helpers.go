package errors

import "errors"

// GetCode extracts the error code from any error.
// Returns CodeUnknown if the error is not a domain error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks if the error has the specified code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// IsRetryable reports whether the error is a transient fault the caller may
// retry. Only TRANSIENT qualifies; every other code is terminal for the
// attempted operation.
func IsRetryable(err error) bool {
	return IsCode(err, CodeTransient)
}
