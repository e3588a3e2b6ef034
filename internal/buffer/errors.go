package buffer

import "errors"

var (
	// ErrTransient marks a sink error as retryable. Sinks wrap it:
	//
	//	return fmt.Errorf("%w: database is locked", buffer.ErrTransient)
	ErrTransient = errors.New("buffer: transient sink failure")

	// ErrUnknownTable is returned when flushing a table that was never registered.
	ErrUnknownTable = errors.New("buffer: unknown table")
)
