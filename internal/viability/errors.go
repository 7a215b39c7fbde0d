package viability

import "errors"

// ErrInvalidInput is the sentinel wrapped by every InvalidInputError.
var ErrInvalidInput = errors.New("viability: invalid input")

// InvalidInputError reports input the scorer cannot work with.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "viability: invalid input: " + e.Reason
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}
