package vectorstore

import "fmt"

// ValidationError reports locally detectable bad input: mismatched lengths
// or nothing valid to store. It is fatal to the call and never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
