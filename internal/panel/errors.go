package panel

import "errors"

// Domain-specific errors for coordinator operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned by commands issued while the coordinator
	// has no open panel session. The external client is never touched.
	ErrNotConnected = errors.New("panel: not connected")

	// ErrAlreadyConnected is returned by Connect when a session is already
	// open. Disconnect first to force a fresh session.
	ErrAlreadyConnected = errors.New("panel: already connected")

	// ErrConnectFailed wraps failures of the connect/initialize sequence.
	ErrConnectFailed = errors.New("panel: connect failed")

	// ErrClosed is returned when the coordinator has been shut down.
	ErrClosed = errors.New("panel: coordinator closed")
)
