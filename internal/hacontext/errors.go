package hacontext

import "errors"

var (
	// ErrDuplicateKey indicates two references resolved to the same
	// display key, which would silently drop data in the flattened form.
	ErrDuplicateKey = errors.New("hacontext: duplicate display key")

	// ErrNoReferences indicates an empty reference list was given.
	ErrNoReferences = errors.New("hacontext: no references to resolve")

	// ErrNilSource indicates the builder was constructed without a
	// state source.
	ErrNilSource = errors.New("hacontext: nil state source")
)
