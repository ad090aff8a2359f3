package mcpbridge

import (
	"log/slog"
	"net/http"
)

// ServerOption configures a Server during construction.
type ServerOption func(*Server)

// WithLogger sets the logger used by the server and its components.
// Defaults to NopLogger().
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// WithCapabilities sets the optional-feature flags the server declares
// during capability negotiation. Flags are fixed at construction; the
// zero value declares no optional features.
func WithCapabilities(caps Capabilities) ServerOption {
	return func(s *Server) {
		s.caps = caps
	}
}

// ClientOption configures a Client during construction.
type ClientOption func(*Client)

// WithClientLogger sets the logger used by the client and its transport.
// Defaults to NopLogger().
func WithClientLogger(log *slog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// WithHeaders sets static headers sent on every remote request, for
// example environment-derived authentication headers.
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithHTTPClient sets the HTTP client used for remote calls. Defaults to
// http.DefaultClient.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithErrorCallback sets the callback invoked when a forwarded request or
// a notification push fails. The error is still returned to the local
// caller; the callback observes, it does not handle.
func WithErrorCallback(callback ErrorCallback) ClientOption {
	return func(c *Client) {
		c.onError = callback
	}
}

// WithRemoteDispatcher injects the remote dispatcher implementation,
// replacing the default HTTP transport. Useful for tests and in-process
// bridging.
func WithRemoteDispatcher(remote RemoteDispatcher) ClientOption {
	return func(c *Client) {
		c.remote = remote
	}
}
