package errors

import (
	"errors"
	"fmt"
)

// BridgeError is the base interface for all bridge errors.
type BridgeError interface {
	error
	IsBridgeError() bool
}

// Compile-time verification that all error types implement BridgeError.
var (
	_ BridgeError = (*NotFoundError)(nil)
	_ BridgeError = (*ValidationError)(nil)
	_ BridgeError = (*UnsupportedError)(nil)
	_ BridgeError = (*MissingArgumentError)(nil)
	_ BridgeError = (*TransportError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrClientClosed indicates the client has been stopped and cannot be reused.
	ErrClientClosed = errors.New("client stopped: clients are single-use, create a new one with NewClient()")

	// ErrClientAlreadyStarted indicates Start was called on a running client.
	ErrClientAlreadyStarted = errors.New("client already started")

	// ErrClientNotRunning indicates the client is not in the running state.
	ErrClientNotRunning = errors.New("client not running")

	// ErrBusClosed indicates the notification bus has been closed.
	ErrBusClosed = errors.New("notification bus closed")
)

// NotFoundError indicates a registry lookup for an unregistered key.
//
// Kind names the namespace the lookup was made in: "tool", "resource",
// "prompt", or "method" for an unknown procedure name.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// IsBridgeError implements BridgeError.
func (e *NotFoundError) IsBridgeError() bool { return true }

// ValidationError indicates tool arguments failed schema validation.
// Detail carries the field-level description produced by the validator.
type ValidationError struct {
	Tool   string
	Detail string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %q: %s", e.Tool, e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *ValidationError) IsBridgeError() bool { return true }

// UnsupportedError indicates an operation requires a capability that was not
// negotiated, or a feature the target definition does not opt into.
type UnsupportedError struct {
	Feature string
	Detail  string
}

func (e *UnsupportedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s not supported: %s", e.Feature, e.Detail)
	}

	return fmt.Sprintf("%s not supported", e.Feature)
}

// IsBridgeError implements BridgeError.
func (e *UnsupportedError) IsBridgeError() bool { return true }

// MissingArgumentError indicates a required prompt argument was absent.
type MissingArgumentError struct {
	Prompt   string
	Argument string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("prompt %q: missing required argument %q", e.Prompt, e.Argument)
}

// IsBridgeError implements BridgeError.
func (e *MissingArgumentError) IsBridgeError() bool { return true }

// TransportError indicates a network or remote failure while forwarding a
// call to the remote dispatcher. The cause is opaque to the bridge.
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error for %s: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *TransportError) IsBridgeError() bool { return true }
