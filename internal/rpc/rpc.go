package rpc

import (
	"errors"
	"fmt"

	"github.com/wagiedev/mcp-bridge-go/internal/bus"
	bridgeerrors "github.com/wagiedev/mcp-bridge-go/internal/errors"
)

// Version is the JSON-RPC protocol version marker.
const Version = "2.0"

// SessionHeader carries the caller's session identity on every request.
// The server keys resource subscriptions by this value.
const SessionHeader = "X-Session-Id"

// JSON-RPC 2.0 error codes.
const (
	CodeParse          = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
)

// Error kinds carried in the error object's data so the far side can
// rebuild the original error type.
const (
	kindNotFound        = "not_found"
	kindValidation      = "validation"
	kindUnsupported     = "unsupported"
	kindMissingArgument = "missing_argument"
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      string         `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      string         `json:"id"`
	Result  map[string]any `json:"result,omitempty"`
	Error   *Error         `json:"error,omitempty"`
}

// Notification is the JSON-RPC notification envelope streamed to
// subscribers. It carries no id and expects no reply.
type Notification struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// NewNotification wraps a bus notification in its wire envelope.
func NewNotification(n bus.Notification) Notification {
	return Notification{
		JSONRPC: Version,
		Method:  n.Method,
		Params:  n.Params,
	}
}

// errorToWire maps a dispatch error to its JSON-RPC error object. Domain
// errors carry a kind in the data payload; anything else is internal.
func errorToWire(err error) *Error {
	var (
		notFound    *bridgeerrors.NotFoundError
		validation  *bridgeerrors.ValidationError
		unsupported *bridgeerrors.UnsupportedError
		missingArg  *bridgeerrors.MissingArgumentError
	)

	switch {
	case errors.As(err, &notFound):
		code := CodeInvalidParams
		if notFound.Kind == "method" {
			code = CodeMethodNotFound
		}

		return &Error{
			Code:    code,
			Message: notFound.Error(),
			Data: map[string]any{
				"kind":     kindNotFound,
				"notFound": notFound.Kind,
				"key":      notFound.Key,
			},
		}
	case errors.As(err, &validation):
		return &Error{
			Code:    CodeInvalidParams,
			Message: validation.Error(),
			Data: map[string]any{
				"kind":   kindValidation,
				"tool":   validation.Tool,
				"detail": validation.Detail,
			},
		}
	case errors.As(err, &unsupported):
		return &Error{
			Code:    CodeInvalidRequest,
			Message: unsupported.Error(),
			Data: map[string]any{
				"kind":    kindUnsupported,
				"feature": unsupported.Feature,
				"detail":  unsupported.Detail,
			},
		}
	case errors.As(err, &missingArg):
		return &Error{
			Code:    CodeInvalidParams,
			Message: missingArg.Error(),
			Data: map[string]any{
				"kind":     kindMissingArgument,
				"prompt":   missingArg.Prompt,
				"argument": missingArg.Argument,
			},
		}
	default:
		return &Error{
			Code:    CodeInternal,
			Message: err.Error(),
		}
	}
}

// errorFromWire rebuilds the domain error a wire error object encodes.
// Unknown kinds surface as the bare wire error.
func errorFromWire(e *Error) error {
	if e == nil {
		return nil
	}

	kind, _ := e.Data["kind"].(string)

	switch kind {
	case kindNotFound:
		what, _ := e.Data["notFound"].(string)
		key, _ := e.Data["key"].(string)

		return &bridgeerrors.NotFoundError{Kind: what, Key: key}
	case kindValidation:
		tool, _ := e.Data["tool"].(string)
		detail, _ := e.Data["detail"].(string)

		return &bridgeerrors.ValidationError{Tool: tool, Detail: detail}
	case kindUnsupported:
		feature, _ := e.Data["feature"].(string)
		detail, _ := e.Data["detail"].(string)

		return &bridgeerrors.UnsupportedError{Feature: feature, Detail: detail}
	case kindMissingArgument:
		prompt, _ := e.Data["prompt"].(string)
		argument, _ := e.Data["argument"].(string)

		return &bridgeerrors.MissingArgumentError{Prompt: prompt, Argument: argument}
	default:
		return e
	}
}
