package catalog

import "errors"

var (
	// ErrNotFound is returned when a work or subscriber does not exist.
	ErrNotFound = errors.New("catalog: not found")
	// ErrInvalidInput marks writes rejected before touching the database.
	ErrInvalidInput = errors.New("catalog: invalid input")
	// ErrStale is returned when a work's episode changed since the caller read it.
	ErrStale = errors.New("catalog: stale episode state")
)
