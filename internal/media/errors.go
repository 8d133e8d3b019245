package media

import "errors"

var (
	// ErrBadResolution indicates a target resolution that is neither a
	// known name nor a WxH pair.
	ErrBadResolution = errors.New("media: unrecognized target resolution")

	// ErrFfmpeg indicates an ffmpeg invocation exited with a failure.
	ErrFfmpeg = errors.New("media: ffmpeg failed")

	// ErrEmptyImage indicates a save was attempted with no image bytes.
	ErrEmptyImage = errors.New("media: empty image data")
)
