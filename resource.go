package mcpbridge

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcp-bridge-go/internal/registry"
)

// ResourceOption configures a Resource during construction.
type ResourceOption func(*Resource)

// WithResourceDescription sets the resource description.
func WithResourceDescription(description string) ResourceOption {
	return func(r *Resource) {
		r.Description = description
	}
}

// WithMIMEType sets the resource MIME type.
func WithMIMEType(mimeType string) ResourceOption {
	return func(r *Resource) {
		r.MIMEType = mimeType
	}
}

// WithSubscribable marks the resource as accepting subscriptions. The
// server must also declare the ResourceSubscribe capability for
// subscriptions to be accepted.
func WithSubscribable() ResourceOption {
	return func(r *Resource) {
		r.Subscribable = true
	}
}

// WithListHandler sets the handler that enumerates the concrete items this
// definition exposes. Listed items missing uri, name, description, or MIME
// type inherit the definition's own fields.
func WithListHandler(list ResourceListHandler) ResourceOption {
	return func(r *Resource) {
		r.List = list
	}
}

// WithResourceMiddleware appends middleware stages applied to the read
// context before the read handler runs. Middleware transforms the uri,
// never the eventual content.
func WithResourceMiddleware(stages ...Middleware) ResourceOption {
	return func(r *Resource) {
		r.Middleware = append(r.Middleware, stages...)
	}
}

// Resource is a resource definition created with NewResource.
type Resource struct {
	URI          string
	Name         string
	Description  string
	MIMEType     string
	Subscribable bool
	List         ResourceListHandler
	Read         ResourceReadHandler
	Middleware   []Middleware
}

// NewResource creates a resource definition with optional configuration.
//
// Example:
//
//	doc := mcpbridge.NewResource("file:///readme.txt", "readme",
//	    func(ctx context.Context, uri string) ([]*mcpbridge.ResourceContents, error) {
//	        return []*mcpbridge.ResourceContents{{URI: uri, Text: "hello"}}, nil
//	    },
//	    mcpbridge.WithMIMEType("text/plain"),
//	    mcpbridge.WithSubscribable(),
//	)
func NewResource(uri, name string, read ResourceReadHandler, opts ...ResourceOption) *Resource {
	r := &Resource{
		URI:  uri,
		Name: name,
		Read: read,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Resource) definition() *registry.ResourceDefinition {
	return &registry.ResourceDefinition{
		Resource: &mcp.Resource{
			URI:         r.URI,
			Name:        r.Name,
			Description: r.Description,
			MIMEType:    r.MIMEType,
		},
		Subscribable: r.Subscribable,
		List:         r.List,
		Read:         r.Read,
		Middleware:   r.Middleware,
	}
}
