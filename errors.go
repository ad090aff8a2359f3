package mcpbridge

import "github.com/wagiedev/mcp-bridge-go/internal/errors"

// Re-export error types from internal package

// NotFoundError indicates a named entity (tool, resource, prompt, or
// method) is not registered.
type NotFoundError = errors.NotFoundError

// ValidationError indicates tool arguments failed schema validation.
type ValidationError = errors.ValidationError

// UnsupportedError indicates a feature is disabled by capability
// configuration.
type UnsupportedError = errors.UnsupportedError

// MissingArgumentError indicates a required prompt argument was absent.
type MissingArgumentError = errors.MissingArgumentError

// TransportError indicates the remote endpoint could not be reached or
// produced an unusable response.
type TransportError = errors.TransportError

// BridgeError is the base interface for all bridge errors.
type BridgeError = errors.BridgeError

// Re-export sentinel errors from internal package.
var (
	// ErrClientClosed indicates the client has been stopped and cannot be reused.
	ErrClientClosed = errors.ErrClientClosed

	// ErrClientAlreadyStarted indicates Start was called twice.
	ErrClientAlreadyStarted = errors.ErrClientAlreadyStarted

	// ErrClientNotRunning indicates the client has not been started.
	ErrClientNotRunning = errors.ErrClientNotRunning

	// ErrBusClosed indicates the notification bus has been closed.
	ErrBusClosed = errors.ErrBusClosed
)
