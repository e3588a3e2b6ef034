package storage

import "errors"

var (
	// ErrInvalidTable is returned for a table spec without name, columns or key.
	ErrInvalidTable = errors.New("storage: invalid table spec")

	// ErrRowShape is returned when a row does not match the table's columns.
	ErrRowShape = errors.New("storage: row does not match columns")
)
