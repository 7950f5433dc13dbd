package diagnostic

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCheck indicates a catalog entry that names no registered check.
	ErrUnknownCheck = errors.New("diagnostic: unknown check")

	// ErrNilNetwork indicates a run without a network.
	ErrNilNetwork = errors.New("diagnostic: nil network")

	// ErrNoSolver indicates a solver-based check built without a solver.
	ErrNoSolver = errors.New("diagnostic: no solver configured")

	// ErrPanic indicates a check that panicked instead of returning.
	ErrPanic = errors.New("diagnostic: check panicked")
)

// CheckError records that a check failed to run. It is never used for a
// violation the check found.
type CheckError struct {
	Check string
	Err   error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%s: %v", e.Check, e.Err)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}
