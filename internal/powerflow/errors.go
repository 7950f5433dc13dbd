package powerflow

import (
	"errors"
	"fmt"

	"github.com/san-kum/gridiag/internal/network"
)

var (
	// ErrNotConverged indicates the iteration did not reach the tolerance
	// within the iteration limit, or diverged to NaN/Inf.
	ErrNotConverged = errors.New("powerflow: did not converge")

	// ErrSingular indicates a branch with zero series impedance or a node
	// without self admittance.
	ErrSingular = errors.New("powerflow: singular admittance")

	// ErrNoReference indicates a network without any in-service slack source.
	ErrNoReference = errors.New("powerflow: no reference source")

	// ErrInvalidReference indicates an in-service element attached to a bus
	// that does not exist.
	ErrInvalidReference = errors.New("powerflow: element references unknown bus")
)

// StructuralError is a fatal error in the network structure. Retrying the
// same network cannot succeed.
type StructuralError struct {
	Table   network.TableName
	ID      int
	Wrapped error
}

func (e *StructuralError) Error() string {
	if e.Table == "" {
		return e.Wrapped.Error()
	}
	return fmt.Sprintf("%v (%s %d)", e.Wrapped, e.Table, e.ID)
}

func (e *StructuralError) Unwrap() error {
	return e.Wrapped
}

func structural(table network.TableName, id int, err error) *StructuralError {
	return &StructuralError{Table: table, ID: id, Wrapped: err}
}
