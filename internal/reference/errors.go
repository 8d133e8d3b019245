package reference

import "errors"

// Domain errors for the reference package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, reference.ErrUnbalanced) {
//	    // input had an unterminated template span
//	}
var (
	// ErrUnbalanced is returned when the input ends inside a template
	// span (brace depth never returned to zero). The tokenizer degrades:
	// the remainder is emitted as a single plain token and scanning does
	// not abort, so the accompanying references are still usable.
	ErrUnbalanced = errors.New("reference: unbalanced template delimiters")

	// ErrInvalidStyle is returned when an unknown list style is requested.
	ErrInvalidStyle = errors.New("reference: invalid list style")
)
