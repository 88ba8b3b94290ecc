package opt

import (
	"errors"
	"fmt"
)

// Error taxonomy. Pre-search failures (ErrInfeasibleInstance, ErrBuilder)
// are reported before the backend is ever invoked. Post-solve failures
// (ErrMalformedAssignment, ErrInvariantViolation, ErrConsistency) indicate a
// defect in the encoding or the backend and are never repaired silently.
var (
	ErrInfeasibleInstance  = errors.New("infeasible instance")
	ErrBuilder             = errors.New("builder error")
	ErrMalformedAssignment = errors.New("malformed assignment")
	ErrInvariantViolation  = errors.New("invariant violation")
	ErrConsistency         = errors.New("objective consistency error")
)

func builderErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBuilder, fmt.Sprintf(format, args...))
}

func infeasiblef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInfeasibleInstance, fmt.Sprintf(format, args...))
}
