package template

import (
	"errors"
	"fmt"
)

// Domain errors for the template package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, template.ErrUnknownFunction) {
//	    // expression called something outside the closed surface
//	}
var (
	// ErrMalformed is returned when an expression cannot be parsed.
	ErrMalformed = errors.New("template: malformed expression")

	// ErrUnknownFunction is returned when an expression calls a function
	// outside the closed surface.
	ErrUnknownFunction = errors.New("template: unknown function")

	// ErrUnknownFilter is returned when a filter is not in the closed
	// surface.
	ErrUnknownFilter = errors.New("template: unknown filter")

	// ErrBadArguments is returned when a call has the wrong number or
	// type of arguments.
	ErrBadArguments = errors.New("template: bad arguments")

	// ErrUnsupported is returned for constructs outside the surface,
	// such as {% ... %} statement blocks.
	ErrUnsupported = errors.New("template: unsupported construct")
)

// RenderError wraps an evaluation failure with the offending expression
// text so callers can log exactly which configured template failed.
type RenderError struct {
	Expr string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering %q: %v", e.Expr, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
