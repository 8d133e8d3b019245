package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrRetryable marks a failure worth one fallback attempt: server
	// errors, timeouts, rate limits, and malformed response bodies.
	ErrRetryable = errors.New("openai: retryable API failure")

	// ErrFatal marks a failure no retry can fix: authentication and
	// invalid-request rejections.
	ErrFatal = errors.New("openai: fatal API failure")

	// ErrNoAPIKey indicates a call was attempted without an API key
	// configured. Always wrapped in ErrFatal: no retry can supply one.
	ErrNoAPIKey = errors.New("openai: missing API key")

	// ErrEmptyResponse indicates a well-formed response carrying no
	// usable content.
	ErrEmptyResponse = errors.New("openai: empty response content")
)

// IsRetryable reports whether err is worth a single fallback attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryable)
}

// classifyStatus wraps a non-2xx response status in the matching sentinel.
// Server errors, timeouts, and rate limits are retryable; the remaining
// client errors are fatal.
func classifyStatus(status int, detail string) error {
	switch {
	case status >= 500,
		status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d: %s", ErrRetryable, status, detail)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrFatal, status, detail)
	}
}

// classifyTransport wraps a transport-level failure. Timeouts and
// cancellations are retryable; so is everything else at this level, since
// connection failures are transient by nature.
func classifyTransport(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: request timed out: %v", ErrRetryable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: deadline exceeded: %v", ErrRetryable, err)
	}
	return fmt.Errorf("%w: %v", ErrRetryable, err)
}
