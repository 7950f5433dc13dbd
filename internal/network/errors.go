package network

import "errors"

var (
	// ErrDuplicateID indicates an insert under an id that is already taken.
	ErrDuplicateID = errors.New("network: duplicate row id")

	// ErrMissingID indicates a lookup or update of an id that does not exist.
	ErrMissingID = errors.New("network: no row with id")

	// ErrUnknownTable indicates a table name outside the model.
	ErrUnknownTable = errors.New("network: unknown table")

	// ErrUnknownColumn indicates a column name the row type does not carry.
	ErrUnknownColumn = errors.New("network: unknown column")
)
