package ats

import (
	"context"
	"errors"
)

// Domain-specific errors for panel sessions.
var (
	// ErrNotConnected is returned when a command is issued on a session
	// that is not open.
	ErrNotConnected = errors.New("ats: not connected")

	// ErrConnectionFailed is returned when opening a session fails.
	ErrConnectionFailed = errors.New("ats: connection failed")

	// ErrUnknownEntity is returned when a command targets an entity number
	// the panel does not have.
	ErrUnknownEntity = errors.New("ats: unknown entity")

	// ErrNotReady is returned when an arm command is refused because the
	// area has open or faulted zones and force was not set.
	ErrNotReady = errors.New("ats: area not ready to arm")
)

// Client is the asynchronous RPC surface of a single panel session.
//
// A Client is single-use: once disconnected it is discarded and a fresh one
// is created for the next session. Commands fail with a transport or
// protocol error; a successful command's effect is observed later via the
// push channel, not via the command's return value.
//
// Push delivery contract:
//   - The change callback receives events in panel order, one at a time.
//   - The connection-lost callback fires at most once per session, on
//     explicit error events and on keep-alive failure alike. It never fires
//     for a caller-initiated Disconnect.
type Client interface {
	// Connect opens the session: TCP connect, key exchange, PIN login.
	Connect(ctx context.Context) error

	// Initialize performs the full-state fetch and starts push delivery.
	// Must be called after Connect and before any command.
	Initialize(ctx context.Context) (*Snapshot, error)

	// Disconnect tears the session down. Best-effort: closing an already
	// closed session is not an error.
	Disconnect(ctx context.Context) error

	// SetOnChange registers the push-event callback. Must be set before
	// Initialize to avoid missing events.
	SetOnChange(fn func(ChangeEvent))

	// SetOnConnectionLost registers the connection-lost callback.
	SetOnConnectionLost(fn func(err error))

	ArmArea(ctx context.Context, area int, mode ArmMode, force bool) error
	DisarmArea(ctx context.Context, area int) error
	InhibitZone(ctx context.Context, zone int) error
	UninhibitZone(ctx context.Context, zone int) error
	ActivateOutput(ctx context.Context, output int) error
	DeactivateOutput(ctx context.Context, output int) error
	ActivateTrigger(ctx context.Context, trigger int) error
	DeactivateTrigger(ctx context.Context, trigger int) error
}
