package mcpbridge

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcp-bridge-go/internal/bus"
	"github.com/wagiedev/mcp-bridge-go/internal/dispatch"
	"github.com/wagiedev/mcp-bridge-go/internal/registry"
	"github.com/wagiedev/mcp-bridge-go/internal/rpc"
)

// Notification is a transient server-push event: a method name plus
// optional parameters.
type Notification = bus.Notification

// Subscription is a live attachment to the server's notification stream.
// Read from Notifications() and call Close() when done.
type Subscription = bus.Subscriber

// Procedure names exposed by a server's dispatcher.
const (
	MethodInitialize           = dispatch.MethodInitialize
	MethodToolsList            = dispatch.MethodToolsList
	MethodToolsCall            = dispatch.MethodToolsCall
	MethodResourcesList        = dispatch.MethodResourcesList
	MethodResourcesRead        = dispatch.MethodResourcesRead
	MethodResourcesSubscribe   = dispatch.MethodResourcesSubscribe
	MethodResourcesUnsubscribe = dispatch.MethodResourcesUnsubscribe
	MethodPromptsList          = dispatch.MethodPromptsList
	MethodPromptsGet           = dispatch.MethodPromptsGet
	MethodLoggingSetLevel      = dispatch.MethodLoggingSetLevel
)

// Server exposes registered tools, resources, and prompts as named
// procedures with schema validation, middleware, and capability
// negotiation. Registration is expected before concurrent traffic.
type Server struct {
	log  *slog.Logger
	caps Capabilities

	reg        *registry.Registry
	bus        *bus.Bus
	dispatcher *dispatch.Dispatcher
}

// NewServer creates a server with the given identity and options.
//
// The capability flags and server info are captured into the initialize
// snapshot at construction; later registrations change the lists, never
// the advertised capabilities.
func NewServer(name, version string, opts ...ServerOption) *Server {
	s := &Server{
		log: NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.reg = registry.New(s.caps)
	s.bus = bus.New()
	s.dispatcher = dispatch.New(s.log, s.reg, &mcp.Implementation{
		Name:    name,
		Version: version,
	})

	return s
}

// AddTool registers a tool, overwriting any previous definition with the
// same name in place, and publishes the tools list-changed notification.
func (s *Server) AddTool(tool *Tool) error {
	n, err := s.reg.UpsertTool(tool.definition())
	if err != nil {
		return err
	}

	s.log.Debug("Tool registered", "tool", tool.Name)
	s.bus.Publish(n)

	return nil
}

// AddResource registers a resource, overwriting any previous definition
// with the same uri in place, and publishes the resources list-changed
// notification.
func (s *Server) AddResource(resource *Resource) error {
	n, err := s.reg.UpsertResource(resource.definition())
	if err != nil {
		return err
	}

	s.log.Debug("Resource registered", "uri", resource.URI)
	s.bus.Publish(n)

	return nil
}

// AddPrompt registers a prompt, overwriting any previous definition with
// the same name in place, and publishes the prompts list-changed
// notification.
func (s *Server) AddPrompt(prompt *Prompt) error {
	n, err := s.reg.UpsertPrompt(prompt.definition())
	if err != nil {
		return err
	}

	s.log.Debug("Prompt registered", "prompt", prompt.Name)
	s.bus.Publish(n)

	return nil
}

// UpdateResource publishes the resource-updated notification for uri when
// it has subscribers. Without subscribers it is a no-op.
func (s *Server) UpdateResource(uri string) {
	if !s.reg.HasSubscribers(uri) {
		return
	}

	s.bus.Publish(Notification{
		Method: NotificationResourceUpdated,
		Params: map[string]any{"uri": uri},
	})
}

// Initialize returns the capability negotiation snapshot fixed at
// construction.
func (s *Server) Initialize() map[string]any {
	return s.dispatcher.Initialize()
}

// CallTool validates args against the tool's schema, runs its middleware,
// and invokes its handler.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*CallToolResult, error) {
	return s.dispatcher.CallTool(ctx, name, args)
}

// ListTools returns tool metadata in registration order.
func (s *Server) ListTools() []*mcp.Tool {
	return s.dispatcher.ListTools()
}

// ListResources returns resource metadata in registration order,
// flattening each definition's list handler output.
func (s *Server) ListResources(ctx context.Context) ([]*mcp.Resource, error) {
	return s.dispatcher.ListResources(ctx)
}

// ReadResource runs the resource's middleware and read handler for uri.
func (s *Server) ReadResource(ctx context.Context, uri string) ([]*ResourceContents, error) {
	return s.dispatcher.ReadResource(ctx, uri)
}

// SubscribeToResource registers subscriberID as a subscriber of uri.
// Fails with UnsupportedError when subscriptions are disabled, either
// globally or for this resource.
func (s *Server) SubscribeToResource(uri, subscriberID string) error {
	return s.dispatcher.SubscribeToResource(uri, subscriberID)
}

// UnsubscribeFromResource removes subscriberID's subscription to uri.
// It is a no-op for unknown uris or absent subscriptions.
func (s *Server) UnsubscribeFromResource(uri, subscriberID string) {
	s.dispatcher.UnsubscribeFromResource(uri, subscriberID)
}

// ListPrompts returns prompt metadata in registration order.
func (s *Server) ListPrompts() []*mcp.Prompt {
	return s.dispatcher.ListPrompts()
}

// GetPrompt checks required arguments, runs the prompt's middleware, and
// invokes its handler.
func (s *Server) GetPrompt(ctx context.Context, name string, args map[string]any) ([]*PromptMessage, error) {
	return s.dispatcher.GetPrompt(ctx, name, args)
}

// Dispatch routes a wire-level procedure call by method name. Unknown and
// capability-disabled methods fail with NotFoundError.
func (s *Server) Dispatch(ctx context.Context, method string, params map[string]any) (map[string]any, error) {
	return s.dispatcher.Dispatch(ctx, method, params)
}

// Methods returns the procedure names this server dispatches.
func (s *Server) Methods() []string {
	return s.dispatcher.Methods()
}

// Notifications attaches a subscriber to the server's notification
// stream. Every notification published after attach is delivered in
// publish order; close the subscription to detach.
func (s *Server) Notifications() *Subscription {
	return s.bus.Subscribe()
}

// HTTPHandler returns an http.Handler serving this server's dispatcher:
// POST for JSON-RPC calls, GET for the server-sent-events notification
// stream.
func (s *Server) HTTPHandler() http.Handler {
	return rpc.NewHandler(s.log, s.dispatcher, s.bus)
}

// Close shuts down the notification bus, ending every subscription and
// open notification stream.
func (s *Server) Close() {
	s.bus.Close()
}
