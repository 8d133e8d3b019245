package supervisor

import "errors"

var (
	// ErrNoToken indicates the client was constructed without an API token.
	ErrNoToken = errors.New("supervisor: missing API token")

	// ErrUnexpectedStatus indicates the API answered with a non-2xx status.
	ErrUnexpectedStatus = errors.New("supervisor: unexpected response status")
)
