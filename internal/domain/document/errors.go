// Package document holds the project document store: the committed state,
// the mutation vocabulary applied to it, the component rebuild and the read
// model used by the UI.
package document

import "errors"

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidReference is returned when a write would introduce a broken
	// image or parent reference.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrDuplicateID is returned when two entities of one kind share an id.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrDuplicateName is returned when two components share a name.
	ErrDuplicateName = errors.New("duplicate component name")
	// ErrCycle is returned when a parent chain would loop.
	ErrCycle = errors.New("region parent cycle")
	// ErrInvalidValue is returned for non-finite geometry, negative image
	// dimensions or an empty colour.
	ErrInvalidValue = errors.New("invalid value")
)
