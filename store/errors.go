package store

import "errors"

var (
	// ErrNotFound is returned when no item matches the given key or
	// field value.
	ErrNotFound = errors.New("store: item not found")

	// ErrAlreadyExists is returned when inserting an item whose id is
	// already present.
	ErrAlreadyExists = errors.New("store: item already exists")

	// ErrConcurrentModification is returned when a pull loses the
	// version race repeatedly and gives up.
	ErrConcurrentModification = errors.New("store: item was modified concurrently")

	// ErrNoIndex is returned by Find for a field with no configured
	// index.
	ErrNoIndex = errors.New("store: no index for field")
)
