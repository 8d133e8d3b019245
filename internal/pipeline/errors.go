package pipeline

import "errors"

var (
	// ErrUnknownMode indicates a mode outside three_step / two_step.
	ErrUnknownMode = errors.New("pipeline: unknown mode")

	// ErrStageFailed indicates a stage (and its fallback, when one
	// exists) failed, short-circuiting the run.
	ErrStageFailed = errors.New("pipeline: stage failed")

	// ErrNoImage indicates the stages completed without producing image
	// bytes, which means a stage wiring bug.
	ErrNoImage = errors.New("pipeline: no image produced")
)
