package engine

import (
	"errors"
)

// ErrForbidden is returned when the acting user lacks the required role. The
// caller surfaces it as an explicit denial; no state changes.
var ErrForbidden = errors.New("actor does not have the required role")

// ValidationError rejects a submission or an input with the specific
// constraint that was violated.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}
