package service

import "errors"

// ErrInvalidInput matches InvalidInputError through errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError is returned for a field value the service does not accept.
type InvalidInputError struct {
	Field string
	Value string
}

func (e InvalidInputError) Error() string {
	return "invalid " + e.Field + ": " + e.Value
}

func (e InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}
