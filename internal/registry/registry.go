package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcp-bridge-go/internal/bus"
	bridgeerrors "github.com/wagiedev/mcp-bridge-go/internal/errors"
)

// Notification method names emitted by registry mutations.
const (
	NotificationToolsListChanged     = "notifications/tools/list_changed"
	NotificationResourcesListChanged = "notifications/resources/list_changed"
	NotificationPromptsListChanged   = "notifications/prompts/list_changed"
	NotificationResourceUpdated      = "notifications/resources/updated"
)

// Middleware is an ordered transform stage applied to a request value before
// the bound handler executes. Each stage consumes the prior stage's output;
// returning an error short-circuits the chain and the handler never runs.
type Middleware func(ctx context.Context, v map[string]any) (map[string]any, error)

// ToolHandler executes a tool with validated arguments.
type ToolHandler func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error)

// ResourceListHandler enumerates the concrete items a resource definition
// exposes. Items missing uri/name/description/mimeType are decorated with
// the definition's own fields when listed.
type ResourceListHandler func(ctx context.Context) ([]*mcp.Resource, error)

// ResourceReadHandler produces the contents of a resource.
type ResourceReadHandler func(ctx context.Context, uri string) ([]*mcp.ResourceContents, error)

// PromptHandler renders a prompt into an ordered message list.
type PromptHandler func(ctx context.Context, args map[string]any) ([]*mcp.PromptMessage, error)

// ToolDefinition binds a tool's metadata and schema to its handler.
type ToolDefinition struct {
	Tool       *mcp.Tool
	Middleware []Middleware
	Handler    ToolHandler

	// Resolved is the compiled input schema, populated at registration.
	Resolved *jsonschema.Resolved
}

// ResourceDefinition binds a uri-addressed data source to its handlers.
type ResourceDefinition struct {
	Resource     *mcp.Resource
	Subscribable bool
	List         ResourceListHandler
	Read         ResourceReadHandler
	Middleware   []Middleware
}

// PromptDefinition binds a named prompt template to its handler.
type PromptDefinition struct {
	Prompt     *mcp.Prompt
	Middleware []Middleware
	Handler    PromptHandler
}

// Capabilities holds the capability flags fixed at construction time.
// The zero value declares no optional features.
type Capabilities struct {
	ToolListChanged     bool
	ResourceSubscribe   bool
	ResourceListChanged bool
	PromptListChanged   bool
	Logging             bool
	Experimental        map[string]any
}

// Registry stores definitions keyed by name/uri, preserving registration
// order, together with the per-uri subscriber sets.
type Registry struct {
	mu sync.RWMutex

	tools     map[string]*ToolDefinition
	toolOrder []string

	resources     map[string]*ResourceDefinition
	resourceOrder []string

	prompts     map[string]*PromptDefinition
	promptOrder []string

	// uri -> set of subscriber IDs. Entries are deleted when the last
	// subscriber leaves; no empty sets persist.
	subscriptions map[string]map[string]struct{}

	caps Capabilities
}

// New creates an empty registry with the given capability flags.
func New(caps Capabilities) *Registry {
	return &Registry{
		tools:         make(map[string]*ToolDefinition, 8),
		resources:     make(map[string]*ResourceDefinition, 8),
		prompts:       make(map[string]*PromptDefinition, 8),
		subscriptions: make(map[string]map[string]struct{}, 4),
		caps:          caps,
	}
}

// Capabilities returns the flags fixed at construction.
func (r *Registry) Capabilities() Capabilities {
	return r.caps
}

// UpsertTool registers a tool definition, overwriting any existing entry with
// the same name in place. It compiles the input schema and returns the
// list-changed notification to publish.
func (r *Registry) UpsertTool(def *ToolDefinition) (bus.Notification, error) {
	if def == nil || def.Tool == nil || def.Tool.Name == "" {
		return bus.Notification{}, fmt.Errorf("tool definition requires a name")
	}

	if def.Tool.InputSchema != nil && def.Resolved == nil {
		resolved, err := def.Tool.InputSchema.Resolve(nil)
		if err != nil {
			return bus.Notification{}, fmt.Errorf("resolve schema for tool %q: %w", def.Tool.Name, err)
		}

		def.Resolved = resolved
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Tool.Name]; !exists {
		r.toolOrder = append(r.toolOrder, def.Tool.Name)
	}

	r.tools[def.Tool.Name] = def

	return bus.Notification{Method: NotificationToolsListChanged}, nil
}

// UpsertResource registers a resource definition, overwriting in place, and
// returns the list-changed notification to publish.
func (r *Registry) UpsertResource(def *ResourceDefinition) (bus.Notification, error) {
	if def == nil || def.Resource == nil || def.Resource.URI == "" {
		return bus.Notification{}, fmt.Errorf("resource definition requires a uri")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resources[def.Resource.URI]; !exists {
		r.resourceOrder = append(r.resourceOrder, def.Resource.URI)
	}

	r.resources[def.Resource.URI] = def

	return bus.Notification{Method: NotificationResourcesListChanged}, nil
}

// UpsertPrompt registers a prompt definition, overwriting in place, and
// returns the list-changed notification to publish.
func (r *Registry) UpsertPrompt(def *PromptDefinition) (bus.Notification, error) {
	if def == nil || def.Prompt == nil || def.Prompt.Name == "" {
		return bus.Notification{}, fmt.Errorf("prompt definition requires a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.prompts[def.Prompt.Name]; !exists {
		r.promptOrder = append(r.promptOrder, def.Prompt.Name)
	}

	r.prompts[def.Prompt.Name] = def

	return bus.Notification{Method: NotificationPromptsListChanged}, nil
}

// Tool returns the definition registered under name.
func (r *Registry) Tool(name string) (*ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.tools[name]
	if !ok {
		return nil, &bridgeerrors.NotFoundError{Kind: "tool", Key: name}
	}

	return def, nil
}

// Resource returns the definition registered under uri.
func (r *Registry) Resource(uri string) (*ResourceDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.resources[uri]
	if !ok {
		return nil, &bridgeerrors.NotFoundError{Kind: "resource", Key: uri}
	}

	return def, nil
}

// Prompt returns the definition registered under name.
func (r *Registry) Prompt(name string) (*PromptDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.prompts[name]
	if !ok {
		return nil, &bridgeerrors.NotFoundError{Kind: "prompt", Key: name}
	}

	return def, nil
}

// Tools returns all tool definitions in registration order.
func (r *Registry) Tools() []*ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*ToolDefinition, 0, len(r.toolOrder))
	for _, name := range r.toolOrder {
		defs = append(defs, r.tools[name])
	}

	return defs
}

// Resources returns all resource definitions in registration order.
func (r *Registry) Resources() []*ResourceDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*ResourceDefinition, 0, len(r.resourceOrder))
	for _, uri := range r.resourceOrder {
		defs = append(defs, r.resources[uri])
	}

	return defs
}

// Prompts returns all prompt definitions in registration order.
func (r *Registry) Prompts() []*PromptDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*PromptDefinition, 0, len(r.promptOrder))
	for _, name := range r.promptOrder {
		defs = append(defs, r.prompts[name])
	}

	return defs
}

// Subscribe records subscriberID as a subscriber of uri. It fails with
// Unsupported when the global subscribe capability is off or the resource is
// not subscribable, and with NotFound for an unregistered uri. Repeat
// subscription is a no-op.
func (r *Registry) Subscribe(uri, subscriberID string) error {
	if !r.caps.ResourceSubscribe {
		return &bridgeerrors.UnsupportedError{Feature: "resource subscription"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	def, ok := r.resources[uri]
	if !ok {
		return &bridgeerrors.NotFoundError{Kind: "resource", Key: uri}
	}

	if !def.Subscribable {
		return &bridgeerrors.UnsupportedError{
			Feature: "resource subscription",
			Detail:  fmt.Sprintf("resource %s is not subscribable", uri),
		}
	}

	set, ok := r.subscriptions[uri]
	if !ok {
		set = make(map[string]struct{}, 1)
		r.subscriptions[uri] = set
	}

	set[subscriberID] = struct{}{}

	return nil
}

// Unsubscribe removes subscriberID from uri's subscriber set, deleting the
// entry entirely when the last subscriber leaves. Unsubscribing from an
// unknown uri or without a prior subscription is a no-op, never an error.
func (r *Registry) Unsubscribe(uri, subscriberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.subscriptions[uri]
	if !ok {
		return
	}

	delete(set, subscriberID)

	if len(set) == 0 {
		delete(r.subscriptions, uri)
	}
}

// Subscribers returns the subscriber IDs attached to uri.
func (r *Registry) Subscribers(uri string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.subscriptions[uri]
	ids := make([]string, 0, len(set))

	for id := range set {
		ids = append(ids, id)
	}

	return ids
}

// HasSubscribers reports whether uri has at least one subscriber.
func (r *Registry) HasSubscribers(uri string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.subscriptions[uri]) > 0
}
