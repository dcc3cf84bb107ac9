package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrTransport   = errors.New("transport failure")
	ErrUnavailable = errors.New("responder unavailable")
)

// Invalid returns an error wrapping ErrValidation with a client-facing message.
func Invalid(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrValidation }

// Invalidf is Invalid with formatting.
func Invalidf(format string, a ...interface{}) error {
	return Invalid(fmt.Sprintf(format, a...))
}
