package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	bridgeerrors "github.com/wagiedev/mcp-bridge-go/internal/errors"
	"github.com/wagiedev/mcp-bridge-go/internal/registry"
)

// ProtocolVersion is the protocol revision reported by initialize.
const ProtocolVersion = "2024-11-05"

// Procedure names exposed by the dispatcher.
const (
	MethodInitialize           = "initialize"
	MethodToolsList            = "tools/list"
	MethodToolsCall            = "tools/call"
	MethodResourcesList        = "resources/list"
	MethodResourcesRead        = "resources/read"
	MethodResourcesSubscribe   = "resources/subscribe"
	MethodResourcesUnsubscribe = "resources/unsubscribe"
	MethodPromptsList          = "prompts/list"
	MethodPromptsGet           = "prompts/get"
	MethodLoggingSetLevel      = "logging/setLevel"
)

type subscriberKey struct{}

// WithSubscriber attaches a subscriber identity to the context. The wire
// layer supplies a per-session identity here so resources/subscribe can
// distinguish distinct subscribers of the same uri.
func WithSubscriber(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, subscriberKey{}, id)
}

// SubscriberFromContext returns the subscriber identity attached to ctx,
// or "local" for direct programmatic callers.
func SubscriberFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(subscriberKey{}).(string); ok && id != "" {
		return id
	}

	return "local"
}

type methodFunc func(ctx context.Context, params map[string]any) (map[string]any, error)

// Dispatcher validates and routes named procedure calls to registry entries.
type Dispatcher struct {
	log *slog.Logger
	reg *registry.Registry

	// initResult is the static initialize snapshot, fixed at construction.
	initResult map[string]any

	// methods is the fixed {method -> enabled handler} table built once at
	// construction. Capability-conditional procedures are present or absent
	// here rather than branched on at call time.
	methods map[string]methodFunc

	logMu    sync.RWMutex
	logLevel string
}

// New creates a dispatcher over the given registry. The serverInfo and the
// registry's capability flags are captured into the initialize snapshot;
// later requests never influence it.
func New(log *slog.Logger, reg *registry.Registry, serverInfo *mcp.Implementation) *Dispatcher {
	d := &Dispatcher{
		log: log.With("component", "dispatch"),
		reg: reg,
	}

	d.initResult = map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities":    capabilitiesMap(reg.Capabilities()),
		"serverInfo":      implementationMap(serverInfo),
	}

	d.methods = map[string]methodFunc{
		MethodInitialize:           d.wireInitialize,
		MethodToolsList:            d.wireToolsList,
		MethodToolsCall:            d.wireToolsCall,
		MethodResourcesList:        d.wireResourcesList,
		MethodResourcesRead:        d.wireResourcesRead,
		MethodResourcesSubscribe:   d.wireResourcesSubscribe,
		MethodResourcesUnsubscribe: d.wireResourcesUnsubscribe,
		MethodPromptsList:          d.wirePromptsList,
		MethodPromptsGet:           d.wirePromptsGet,
	}

	if reg.Capabilities().Logging {
		d.methods[MethodLoggingSetLevel] = d.wireLoggingSetLevel
	}

	return d
}

// Methods returns the procedure names enabled for this dispatcher.
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.methods))
	for name := range d.methods {
		names = append(names, name)
	}

	return names
}

// Dispatch routes a wire-level procedure call through the method table.
// Unknown methods fail with NotFound.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, params map[string]any) (map[string]any, error) {
	fn, ok := d.methods[method]
	if !ok {
		return nil, &bridgeerrors.NotFoundError{Kind: "method", Key: method}
	}

	d.log.Debug("Dispatching request", "method", method)

	result, err := fn(ctx, params)
	if err != nil {
		d.log.Debug("Request failed", "method", method, "error", err)

		return nil, err
	}

	return result, nil
}

// Initialize returns the static snapshot fixed at construction. The request's
// contents do not influence the result.
func (d *Dispatcher) Initialize() map[string]any {
	return cloneMap(d.initResult)
}

// CallTool validates args against the tool's schema, folds the middleware
// chain over them, and invokes the handler, returning its result unmodified.
// Validation failure means neither middleware nor the handler runs.
func (d *Dispatcher) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	def, err := d.reg.Tool(name)
	if err != nil {
		return nil, err
	}

	if args == nil {
		args = map[string]any{}
	}

	if def.Resolved != nil {
		if err := def.Resolved.Validate(args); err != nil {
			return nil, &bridgeerrors.ValidationError{
				Tool:   name,
				Detail: err.Error(),
				Err:    err,
			}
		}
	}

	args, err = runMiddleware(ctx, def.Middleware, args)
	if err != nil {
		return nil, err
	}

	return def.Handler(ctx, args)
}

// ListTools returns tool metadata in registration order.
func (d *Dispatcher) ListTools() []*mcp.Tool {
	defs := d.reg.Tools()
	tools := make([]*mcp.Tool, 0, len(defs))

	for _, def := range defs {
		tools = append(tools, def.Tool)
	}

	return tools
}

// ListResources flattens every definition's list handler output in
// registration order, decorating each item with the definition's
// uri/name/description/mimeType where the item leaves them unset.
func (d *Dispatcher) ListResources(ctx context.Context) ([]*mcp.Resource, error) {
	defs := d.reg.Resources()
	resources := make([]*mcp.Resource, 0, len(defs))

	for _, def := range defs {
		if def.List == nil {
			resources = append(resources, def.Resource)

			continue
		}

		items, err := def.List(ctx)
		if err != nil {
			return nil, err
		}

		for _, item := range items {
			resources = append(resources, decorateResource(item, def.Resource))
		}
	}

	return resources, nil
}

// ReadResource runs the definition's middleware over a {uri} context value,
// then invokes the read handler. Middleware transforms the uri, never the
// eventual content.
func (d *Dispatcher) ReadResource(ctx context.Context, uri string) ([]*mcp.ResourceContents, error) {
	def, err := d.reg.Resource(uri)
	if err != nil {
		return nil, err
	}

	v, err := runMiddleware(ctx, def.Middleware, map[string]any{"uri": uri})
	if err != nil {
		return nil, err
	}

	readURI := uri
	if s, ok := v["uri"].(string); ok && s != "" {
		readURI = s
	}

	if def.Read == nil {
		return []*mcp.ResourceContents{}, nil
	}

	return def.Read(ctx, readURI)
}

// SubscribeToResource registers subscriberID as a subscriber of uri.
func (d *Dispatcher) SubscribeToResource(uri, subscriberID string) error {
	return d.reg.Subscribe(uri, subscriberID)
}

// UnsubscribeFromResource removes subscriberID's subscription to uri.
// It is a no-op for unknown uris or absent subscriptions.
func (d *Dispatcher) UnsubscribeFromResource(uri, subscriberID string) {
	d.reg.Unsubscribe(uri, subscriberID)
}

// ListPrompts returns prompt metadata in registration order.
func (d *Dispatcher) ListPrompts() []*mcp.Prompt {
	defs := d.reg.Prompts()
	prompts := make([]*mcp.Prompt, 0, len(defs))

	for _, def := range defs {
		prompts = append(prompts, def.Prompt)
	}

	return prompts
}

// GetPrompt checks the required argument specs, folds the middleware chain
// over args, and invokes the handler.
func (d *Dispatcher) GetPrompt(ctx context.Context, name string, args map[string]any) ([]*mcp.PromptMessage, error) {
	def, err := d.reg.Prompt(name)
	if err != nil {
		return nil, err
	}

	if args == nil {
		args = map[string]any{}
	}

	for _, spec := range def.Prompt.Arguments {
		if spec == nil || !spec.Required {
			continue
		}

		if _, ok := args[spec.Name]; !ok {
			return nil, &bridgeerrors.MissingArgumentError{
				Prompt:   name,
				Argument: spec.Name,
			}
		}
	}

	args, err = runMiddleware(ctx, def.Middleware, args)
	if err != nil {
		return nil, err
	}

	return def.Handler(ctx, args)
}

// SetLogLevel stores the minimum level requested via logging/setLevel.
func (d *Dispatcher) SetLogLevel(level string) {
	d.logMu.Lock()
	d.logLevel = level
	d.logMu.Unlock()

	d.log.Debug("Log level updated", "level", level)
}

// LogLevel returns the most recently requested log level.
func (d *Dispatcher) LogLevel() string {
	d.logMu.RLock()
	defer d.logMu.RUnlock()

	return d.logLevel
}

// runMiddleware folds the chain over v in registration order. Each stage
// consumes the prior stage's output; the first error short-circuits.
func runMiddleware(ctx context.Context, chain []registry.Middleware, v map[string]any) (map[string]any, error) {
	for _, mw := range chain {
		out, err := mw(ctx, v)
		if err != nil {
			return nil, err
		}

		v = out
	}

	return v, nil
}

// decorateResource fills an enumerated item's unset fields from its
// definition's resource metadata.
func decorateResource(item, def *mcp.Resource) *mcp.Resource {
	if item == nil {
		return def
	}

	out := *item

	if out.URI == "" {
		out.URI = def.URI
	}

	if out.Name == "" {
		out.Name = def.Name
	}

	if out.Description == "" {
		out.Description = def.Description
	}

	if out.MIMEType == "" {
		out.MIMEType = def.MIMEType
	}

	return &out
}
