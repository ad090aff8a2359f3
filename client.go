package mcpbridge

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/mcp-bridge-go/internal/dispatch"
	bridgeerrors "github.com/wagiedev/mcp-bridge-go/internal/errors"
	"github.com/wagiedev/mcp-bridge-go/internal/rpc"
)

// ClientState describes where a client is in its lifecycle.
type ClientState string

// Client lifecycle states. Transitions only move forward; a stopped
// client cannot be restarted.
const (
	StateUninitialized ClientState = "uninitialized"
	StateStarting      ClientState = "starting"
	StateRunning       ClientState = "running"
	StateStopped       ClientState = "stopped"
)

// HandlerFunc handles one local-protocol request.
type HandlerFunc func(ctx context.Context, params map[string]any) (map[string]any, error)

// LocalTransport is the local request/response loop a client attaches to.
// The client registers one handler per forwarded procedure and pushes
// remote notifications into the transport.
type LocalTransport interface {
	// RegisterHandler binds a handler to a procedure name.
	RegisterHandler(method string, handler HandlerFunc)

	// PushNotification delivers a server-push notification to the local
	// side. Implementations decide framing and fan-out.
	PushNotification(method string, params map[string]any) error
}

// RemoteDispatcher is the remote procedure surface a client forwards to.
// The default implementation speaks JSON-RPC over HTTP with a
// server-sent-events notification stream.
type RemoteDispatcher interface {
	// Call issues one procedure call and returns the remote result.
	Call(ctx context.Context, method string, params map[string]any) (map[string]any, error)

	// Notifications opens the remote push stream. The channel closes when
	// ctx ends or the dispatcher is closed.
	Notifications(ctx context.Context) (<-chan Notification, error)

	// Close releases the dispatcher's resources.
	Close() error
}

// ErrorCallback observes forwarding failures. The error is still returned
// to the local caller.
type ErrorCallback func(method string, err error)

// forwardedMethods is every procedure a client exposes on the local
// transport. Methods the remote side has disabled fail per request with
// NotFoundError rather than being filtered here.
var forwardedMethods = []string{
	dispatch.MethodInitialize,
	dispatch.MethodToolsList,
	dispatch.MethodToolsCall,
	dispatch.MethodResourcesList,
	dispatch.MethodResourcesRead,
	dispatch.MethodResourcesSubscribe,
	dispatch.MethodResourcesUnsubscribe,
	dispatch.MethodPromptsList,
	dispatch.MethodPromptsGet,
	dispatch.MethodLoggingSetLevel,
}

// Client forwards local-protocol requests to a remote dispatcher and
// relays its push notifications back into the local transport.
//
// Per-request failures invoke the error callback and surface to the local
// caller as that request's failure; the session stays running. Clients
// are single-use: once stopped they cannot be restarted.
type Client struct {
	log        *slog.Logger
	endpoint   string
	headers    map[string]string
	httpClient *http.Client
	remote     RemoteDispatcher
	onError    ErrorCallback

	mu     sync.Mutex
	state  ClientState
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewClient creates a client for the given remote endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		log:      NopLogger(),
		endpoint: endpoint,
		state:    StateUninitialized,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.log = c.log.With("component", "client")

	return c
}

// State returns the client's current lifecycle state.
func (c *Client) State() ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Start attaches the client to the local transport and begins the
// session. It registers one forwarding handler per procedure and starts
// the notification relay; ctx governs the whole session.
//
// A failure to open the notification stream is reported through the error
// callback and the session continues without push relay. Requests still
// forward; each failure surfaces individually.
func (c *Client) Start(ctx context.Context, local LocalTransport) error {
	c.mu.Lock()

	switch c.state {
	case StateStopped:
		c.mu.Unlock()

		return bridgeerrors.ErrClientClosed
	case StateStarting, StateRunning:
		c.mu.Unlock()

		return bridgeerrors.ErrClientAlreadyStarted
	}

	c.state = StateStarting

	if c.remote == nil {
		c.remote = rpc.NewHTTPCaller(c.log, c.endpoint, c.httpClient, c.headers)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	group, groupCtx := errgroup.WithContext(runCtx)
	c.group = group

	remote := c.remote
	c.mu.Unlock()

	for _, method := range forwardedMethods {
		local.RegisterHandler(method, c.forward(method))
	}

	ch, err := remote.Notifications(runCtx)
	if err != nil {
		c.log.Debug("Notification stream unavailable", "error", err)
		c.reportError("notifications/stream", err)
	} else {
		group.Go(func() error {
			return c.relay(groupCtx, local, ch)
		})
	}

	c.mu.Lock()
	c.state = StateRunning
	c.mu.Unlock()

	c.log.Debug("Client started", "endpoint", c.endpoint)

	return nil
}

// Stop ends the session: the relay drains, the remote dispatcher closes,
// and the client transitions to StateStopped. Stopping twice is a no-op.
func (c *Client) Stop() error {
	c.mu.Lock()

	switch c.state {
	case StateStopped:
		c.mu.Unlock()

		return nil
	case StateUninitialized:
		c.mu.Unlock()

		return bridgeerrors.ErrClientNotRunning
	}

	c.state = StateStopped
	cancel, group, remote := c.cancel, c.group, c.remote
	c.mu.Unlock()

	cancel()

	var closeErr error
	if remote != nil {
		closeErr = remote.Close()
	}

	if group != nil {
		if err := group.Wait(); err != nil && closeErr == nil {
			closeErr = err
		}
	}

	c.log.Debug("Client stopped")

	return closeErr
}

// forward builds the local handler for one procedure. Failures are
// reported through the error callback and re-raised to the caller.
func (c *Client) forward(method string) HandlerFunc {
	return func(ctx context.Context, params map[string]any) (map[string]any, error) {
		if c.State() != StateRunning {
			return nil, bridgeerrors.ErrClientNotRunning
		}

		result, err := c.remote.Call(ctx, method, params)
		if err != nil {
			c.reportError(method, err)

			return nil, err
		}

		return result, nil
	}
}

// relay pumps remote notifications into the local transport in arrival
// order. Push failures are reported and the relay keeps going.
func (c *Client) relay(ctx context.Context, local LocalTransport, ch <-chan Notification) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-ch:
			if !ok {
				return nil
			}

			if err := local.PushNotification(n.Method, n.Params); err != nil {
				c.reportError(n.Method, err)
			}
		}
	}
}

func (c *Client) reportError(method string, err error) {
	if c.onError != nil {
		c.onError(method, err)
	}
}
