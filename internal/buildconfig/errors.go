package buildconfig

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingEntry indicates no entry module path was configured
	ErrMissingEntry = errors.New("missing entry module")
	// ErrInvalidExtensionList indicates the resolve extension list is empty or malformed
	ErrInvalidExtensionList = errors.New("invalid resolve extension list")
	// ErrAmbiguousTransformRule indicates two transform rules claim the same files with no declared precedence
	ErrAmbiguousTransformRule = errors.New("ambiguous transform rule")
	// ErrInvalidPattern indicates a match or exclude pattern could not be compiled
	ErrInvalidPattern = errors.New("invalid pattern")
	// ErrInvalidField indicates a field holds a value outside its allowed shape
	ErrInvalidField = errors.New("invalid field")
)

// FieldError names the configuration field that failed validation and the
// shape it was expected to have.
type FieldError struct {
	Field    string
	Expected string
	Err      error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: %s: expected %s", e.Err, e.Field, e.Expected)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldErr(err error, field, expected string, args ...any) *FieldError {
	return &FieldError{Field: field, Expected: fmt.Sprintf(expected, args...), Err: err}
}
