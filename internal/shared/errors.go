package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a concurrent writer holds the resource.
	ErrConflict = errors.New("conflict")
)
