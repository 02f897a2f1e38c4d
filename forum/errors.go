package forum

import "errors"

var (
	// ErrNotFound is returned when an entity lookup by display ID (or
	// a parent lookup during creation) misses.
	ErrNotFound = errors.New("forum: entity not found")

	// ErrForbidden is returned when the requesting identity is not the
	// entity's creator.
	ErrForbidden = errors.New("forum: not authorized")

	// ErrDuplicateName is returned when a category, forum or topic
	// name is already taken within its entity type.
	ErrDuplicateName = errors.New("forum: name already in use")

	// ErrDuplicateEmail is returned on signup with a known email.
	ErrDuplicateEmail = errors.New("forum: email already in use")

	// ErrBadCredentials is returned on login with a password that does
	// not match the stored hash.
	ErrBadCredentials = errors.New("forum: wrong password")
)
