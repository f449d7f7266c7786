package store

import "errors"

var (
	// ErrNotFound is returned when an addressed app, canvas or workflow is missing.
	ErrNotFound = errors.New("not found")
	// ErrElementNotFound is returned when an element id is not on the canvas.
	ErrElementNotFound = errors.New("element not found")
	// ErrElementExists is returned when a created element reuses an id of
	// the same canvas.
	ErrElementExists = errors.New("element already exists")
	// ErrReadOnly is returned by [ReadOnlyStore] for writes during maintenance.
	ErrReadOnly = errors.New("operation denied: application is in read-only mode")
)
