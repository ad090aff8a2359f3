package mcpbridge

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcp-bridge-go/internal/registry"
)

// PromptOption configures a Prompt during construction.
type PromptOption func(*Prompt)

// WithPromptArgument declares an argument the prompt accepts. Required
// arguments are checked before any middleware or the handler runs.
func WithPromptArgument(name, description string, required bool) PromptOption {
	return func(p *Prompt) {
		p.Arguments = append(p.Arguments, &mcp.PromptArgument{
			Name:        name,
			Description: description,
			Required:    required,
		})
	}
}

// WithPromptMiddleware appends middleware stages applied to the arguments
// before the handler runs.
func WithPromptMiddleware(stages ...Middleware) PromptOption {
	return func(p *Prompt) {
		p.Middleware = append(p.Middleware, stages...)
	}
}

// Prompt is a prompt definition created with NewPrompt.
type Prompt struct {
	Name        string
	Description string
	Arguments   []*mcp.PromptArgument
	Handler     PromptHandler
	Middleware  []Middleware
}

// NewPrompt creates a prompt definition with optional configuration.
//
// Example:
//
//	greeting := mcpbridge.NewPrompt("greeting", "Greet someone by name",
//	    func(ctx context.Context, args map[string]any) ([]*mcpbridge.PromptMessage, error) {
//	        return []*mcpbridge.PromptMessage{{
//	            Role:    "user",
//	            Content: &mcpbridge.TextContent{Text: fmt.Sprintf("Greet %v", args["name"])},
//	        }}, nil
//	    },
//	    mcpbridge.WithPromptArgument("name", "Who to greet", true),
//	)
func NewPrompt(name, description string, handler PromptHandler, opts ...PromptOption) *Prompt {
	p := &Prompt{
		Name:        name,
		Description: description,
		Handler:     handler,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Prompt) definition() *registry.PromptDefinition {
	return &registry.PromptDefinition{
		Prompt: &mcp.Prompt{
			Name:        p.Name,
			Description: p.Description,
			Arguments:   p.Arguments,
		},
		Middleware: p.Middleware,
		Handler:    p.Handler,
	}
}
