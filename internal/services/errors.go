package services

import "errors"

// ErrInvalidCredentials is the single authentication failure. Unknown email,
// wrong password and disallowed account status all map here so a caller can
// never tell which one occurred.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError marks input rejected before any store call was made.
// Field names the offending input when the failure is field-specific.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Field != "" {
		return e.Field + ": " + e.Reason
	}
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func fieldError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
