package mcpbridge

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcp-bridge-go/internal/registry"
)

// Re-export MCP SDK types for the public API.
// These are the official MCP protocol types.
type (
	// CallToolResult is the server's response to a tool call.
	// Use TextResult, ErrorResult, or ImageResult helpers to create results.
	CallToolResult = mcp.CallToolResult

	// Content is the interface for content types in tool results and
	// prompt messages.
	Content = mcp.Content

	// TextContent represents text content.
	TextContent = mcp.TextContent

	// ImageContent represents image content.
	ImageContent = mcp.ImageContent

	// ResourceContents is one piece of a resource read result.
	ResourceContents = mcp.ResourceContents

	// PromptMessage is one rendered message of a prompt.
	PromptMessage = mcp.PromptMessage

	// PromptArgument describes one argument a prompt accepts.
	PromptArgument = mcp.PromptArgument

	// Schema is a JSON Schema object for tool input validation.
	Schema = jsonschema.Schema
)

// Handler and middleware signatures shared with the registry.
type (
	// Middleware is an ordered transform stage applied to a request value
	// before the bound handler executes. Returning an error short-circuits
	// the chain and the handler never runs.
	Middleware = registry.Middleware

	// ToolHandler executes a tool with validated arguments.
	ToolHandler = registry.ToolHandler

	// ResourceListHandler enumerates the concrete items a resource exposes.
	ResourceListHandler = registry.ResourceListHandler

	// ResourceReadHandler produces the contents of a resource.
	ResourceReadHandler = registry.ResourceReadHandler

	// PromptHandler renders a prompt into an ordered message list.
	PromptHandler = registry.PromptHandler
)

// Capabilities holds the optional-feature flags a server declares during
// capability negotiation. The zero value declares no optional features.
type Capabilities = registry.Capabilities

// Notification method names published by registry mutations and resource
// updates.
const (
	NotificationToolsListChanged     = registry.NotificationToolsListChanged
	NotificationResourcesListChanged = registry.NotificationResourcesListChanged
	NotificationPromptsListChanged   = registry.NotificationPromptsListChanged
	NotificationResourceUpdated      = registry.NotificationResourceUpdated
)

// ToolOption configures a Tool during construction.
type ToolOption func(*Tool)

// WithToolMiddleware appends middleware stages to the tool's chain.
// Stages run in the order given, after schema validation succeeds.
func WithToolMiddleware(stages ...Middleware) ToolOption {
	return func(t *Tool) {
		t.Middleware = append(t.Middleware, stages...)
	}
}

// Tool is a tool definition created with NewTool.
type Tool struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
	Handler     ToolHandler
	Middleware  []Middleware
}

// NewTool creates a tool definition with optional configuration.
//
// The inputSchema should be a *Schema. Use SimpleSchema for convenience or
// create a full Schema struct for more control. Arguments are validated
// against the schema before any middleware or the handler runs.
//
// Example:
//
//	add := mcpbridge.NewTool("add", "Add two numbers",
//	    mcpbridge.SimpleSchema(map[string]string{"a": "float64", "b": "float64"}),
//	    func(ctx context.Context, args map[string]any) (*mcpbridge.CallToolResult, error) {
//	        a, b := args["a"].(float64), args["b"].(float64)
//	        return mcpbridge.TextResult(fmt.Sprintf("%v", a+b)), nil
//	    },
//	)
func NewTool(name, description string, inputSchema *jsonschema.Schema, handler ToolHandler, opts ...ToolOption) *Tool {
	t := &Tool{
		Name:        name,
		Description: description,
		Schema:      inputSchema,
		Handler:     handler,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *Tool) definition() *registry.ToolDefinition {
	return &registry.ToolDefinition{
		Tool: &mcp.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Schema,
		},
		Middleware: t.Middleware,
		Handler:    t.Handler,
	}
}

// SimpleSchema creates a Schema from a simple type map. Every listed
// property is required.
//
// Input format: {"a": "float64", "b": "string"}
//
// Type mappings:
//   - "string"           → {"type": "string"}
//   - "int", "int64"     → {"type": "integer"}
//   - "float64", "float" → {"type": "number"}
//   - "bool"             → {"type": "boolean"}
//   - "[]string"         → {"type": "array", "items": {"type": "string"}}
//   - "any", "object"    → {"type": "object"}
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(props))
	required := make([]string, 0, len(props))

	for name, goType := range props {
		properties[name] = goTypeToJSONSchema(goType)
		required = append(required, name)
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// goTypeToJSONSchema converts a Go type string to a JSON Schema type.
func goTypeToJSONSchema(goType string) *jsonschema.Schema {
	switch goType {
	case "string":
		return &jsonschema.Schema{Type: "string"}
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return &jsonschema.Schema{Type: "integer"}
	case "float32", "float64", "float", "number":
		return &jsonschema.Schema{Type: "number"}
	case "bool", "boolean":
		return &jsonschema.Schema{Type: "boolean"}
	case "any", "object", "map[string]any":
		return &jsonschema.Schema{Type: "object"}
	default:
		if len(goType) > 2 && goType[:2] == "[]" {
			itemType := goType[2:]

			return &jsonschema.Schema{
				Type:  "array",
				Items: goTypeToJSONSchema(itemType),
			}
		}

		// Default to string
		return &jsonschema.Schema{Type: "string"}
	}
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}

// ImageResult creates a CallToolResult with image content.
func ImageResult(data []byte, mimeType string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.ImageContent{Data: data, MIMEType: mimeType},
		},
	}
}
