package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	bridgeerrors "github.com/wagiedev/mcp-bridge-go/internal/errors"
	"github.com/wagiedev/mcp-bridge-go/internal/registry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func calculatorSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"operation": {Type: "string", Enum: []any{"add", "subtract", "multiply", "divide"}},
			"a":         {Type: "string"},
			"b":         {Type: "string"},
		},
		Required: []string{"operation", "a", "b"},
	}
}

func calculatorHandler(_ context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	a, err := strconv.ParseFloat(args["a"].(string), 64)
	if err != nil {
		return nil, err
	}

	b, err := strconv.ParseFloat(args["b"].(string), 64)
	if err != nil {
		return nil, err
	}

	var result float64

	switch args["operation"].(string) {
	case "add":
		result = a + b
	case "subtract":
		result = a - b
	case "multiply":
		result = a * b
	case "divide":
		if b == 0 {
			return nil, fmt.Errorf("division by zero")
		}

		result = a / b
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: strconv.FormatFloat(result, 'f', -1, 64)},
		},
	}, nil
}

func newCalculatorDispatcher(t *testing.T, caps registry.Capabilities) (*Dispatcher, *registry.Registry) {
	t.Helper()

	reg := registry.New(caps)

	_, err := reg.UpsertTool(&registry.ToolDefinition{
		Tool: &mcp.Tool{
			Name:        "calculator",
			Description: "Performs basic arithmetic",
			InputSchema: calculatorSchema(),
		},
		Handler: calculatorHandler,
	})
	require.NoError(t, err)

	return New(testLogger(), reg, &mcp.Implementation{Name: "calc-server", Version: "1.0.0"}), reg
}

func TestDispatchCalculator(t *testing.T) {
	d, _ := newCalculatorDispatcher(t, registry.Capabilities{ToolListChanged: true})

	t.Run("initialize reports fixed capabilities", func(t *testing.T) {
		result, err := d.Dispatch(context.Background(), MethodInitialize, nil)
		require.NoError(t, err)
		require.Equal(t, ProtocolVersion, result["protocolVersion"])

		info, ok := result["serverInfo"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "calc-server", info["name"])
		require.Equal(t, "1.0.0", info["version"])

		caps, ok := result["capabilities"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, map[string]any{"listChanged": true}, caps["tools"])
		require.NotContains(t, caps, "logging")
	})

	t.Run("tools/list returns metadata", func(t *testing.T) {
		result, err := d.Dispatch(context.Background(), MethodToolsList, nil)
		require.NoError(t, err)

		tools, ok := result["tools"].([]map[string]any)
		require.True(t, ok)
		require.Len(t, tools, 1)
		require.Equal(t, "calculator", tools[0]["name"])
		require.Contains(t, tools[0], "inputSchema")
	})

	t.Run("tools/call adds", func(t *testing.T) {
		result, err := d.Dispatch(context.Background(), MethodToolsCall, map[string]any{
			"name": "calculator",
			"arguments": map[string]any{
				"operation": "add",
				"a":         "2",
				"b":         "3",
			},
		})
		require.NoError(t, err)

		content, ok := result["content"].([]any)
		require.True(t, ok)
		require.Len(t, content, 1)

		text, ok := content[0].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "5", text["text"])
	})

	t.Run("division by zero propagates handler error", func(t *testing.T) {
		_, err := d.CallTool(context.Background(), "calculator", map[string]any{
			"operation": "divide",
			"a":         "1",
			"b":         "0",
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "division by zero")
	})
}

func TestCallToolValidation(t *testing.T) {
	t.Run("invalid arguments fail before middleware", func(t *testing.T) {
		reg := registry.New(registry.Capabilities{})

		var middlewareRan, handlerRan bool

		_, err := reg.UpsertTool(&registry.ToolDefinition{
			Tool: &mcp.Tool{Name: "calculator", InputSchema: calculatorSchema()},
			Middleware: []registry.Middleware{
				func(_ context.Context, v map[string]any) (map[string]any, error) {
					middlewareRan = true

					return v, nil
				},
			},
			Handler: func(_ context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
				handlerRan = true

				return &mcp.CallToolResult{}, nil
			},
		})
		require.NoError(t, err)

		d := New(testLogger(), reg, nil)

		_, err = d.CallTool(context.Background(), "calculator", map[string]any{
			"operation": "add",
			"a":         "2",
		})

		var validationErr *bridgeerrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		require.Equal(t, "calculator", validationErr.Tool)
		require.False(t, middlewareRan)
		require.False(t, handlerRan)
	})

	t.Run("unknown tool is not found, not invalid", func(t *testing.T) {
		d, _ := newCalculatorDispatcher(t, registry.Capabilities{})

		_, err := d.CallTool(context.Background(), "missing", map[string]any{})

		var notFound *bridgeerrors.NotFoundError
		require.ErrorAs(t, err, &notFound)
		require.Equal(t, "tool", notFound.Kind)
	})

	t.Run("nil arguments validate as empty object", func(t *testing.T) {
		reg := registry.New(registry.Capabilities{})

		_, err := reg.UpsertTool(&registry.ToolDefinition{
			Tool: &mcp.Tool{
				Name:        "ping",
				InputSchema: &jsonschema.Schema{Type: "object"},
			},
			Handler: func(_ context.Context, args map[string]any) (*mcp.CallToolResult, error) {
				require.NotNil(t, args)

				return &mcp.CallToolResult{}, nil
			},
		})
		require.NoError(t, err)

		d := New(testLogger(), reg, nil)

		_, err = d.CallTool(context.Background(), "ping", nil)
		require.NoError(t, err)
	})
}

func TestMiddlewareChain(t *testing.T) {
	t.Run("stages run in order over prior output", func(t *testing.T) {
		reg := registry.New(registry.Capabilities{})

		appendStage := func(tag string) registry.Middleware {
			return func(_ context.Context, v map[string]any) (map[string]any, error) {
				trail, _ := v["trail"].(string)
				v["trail"] = trail + tag

				return v, nil
			}
		}

		_, err := reg.UpsertTool(&registry.ToolDefinition{
			Tool:       &mcp.Tool{Name: "echo"},
			Middleware: []registry.Middleware{appendStage("a"), appendStage("b"), appendStage("c")},
			Handler: func(_ context.Context, args map[string]any) (*mcp.CallToolResult, error) {
				return &mcp.CallToolResult{
					Content: []mcp.Content{&mcp.TextContent{Text: args["trail"].(string)}},
				}, nil
			},
		})
		require.NoError(t, err)

		d := New(testLogger(), reg, nil)

		result, err := d.CallTool(context.Background(), "echo", map[string]any{})
		require.NoError(t, err)

		text := result.Content[0].(*mcp.TextContent)
		require.Equal(t, "abc", text.Text)
	})

	t.Run("first error short-circuits", func(t *testing.T) {
		reg := registry.New(registry.Capabilities{})

		boom := errors.New("stage failed")

		var laterRan, handlerRan bool

		_, err := reg.UpsertTool(&registry.ToolDefinition{
			Tool: &mcp.Tool{Name: "echo"},
			Middleware: []registry.Middleware{
				func(_ context.Context, _ map[string]any) (map[string]any, error) {
					return nil, boom
				},
				func(_ context.Context, v map[string]any) (map[string]any, error) {
					laterRan = true

					return v, nil
				},
			},
			Handler: func(_ context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
				handlerRan = true

				return &mcp.CallToolResult{}, nil
			},
		})
		require.NoError(t, err)

		d := New(testLogger(), reg, nil)

		_, err = d.CallTool(context.Background(), "echo", nil)
		require.ErrorIs(t, err, boom)
		require.False(t, laterRan)
		require.False(t, handlerRan)
	})
}

func TestListResources(t *testing.T) {
	t.Run("flattens list handlers and decorates items", func(t *testing.T) {
		reg := registry.New(registry.Capabilities{})

		_, err := reg.UpsertResource(&registry.ResourceDefinition{
			Resource: &mcp.Resource{
				URI:      "file:///static.txt",
				Name:     "static",
				MIMEType: "text/plain",
			},
		})
		require.NoError(t, err)

		_, err = reg.UpsertResource(&registry.ResourceDefinition{
			Resource: &mcp.Resource{
				URI:      "dir:///logs",
				Name:     "logs",
				MIMEType: "text/plain",
			},
			List: func(_ context.Context) ([]*mcp.Resource, error) {
				return []*mcp.Resource{
					{URI: "dir:///logs/today"},
					{URI: "dir:///logs/yesterday", MIMEType: "application/json"},
				}, nil
			},
		})
		require.NoError(t, err)

		d := New(testLogger(), reg, nil)

		resources, err := d.ListResources(context.Background())
		require.NoError(t, err)
		require.Len(t, resources, 3)

		require.Equal(t, "file:///static.txt", resources[0].URI)

		require.Equal(t, "dir:///logs/today", resources[1].URI)
		require.Equal(t, "logs", resources[1].Name)
		require.Equal(t, "text/plain", resources[1].MIMEType)

		require.Equal(t, "application/json", resources[2].MIMEType)
	})

	t.Run("list handler error aborts the listing", func(t *testing.T) {
		reg := registry.New(registry.Capabilities{})

		boom := errors.New("listing failed")

		_, err := reg.UpsertResource(&registry.ResourceDefinition{
			Resource: &mcp.Resource{URI: "dir:///bad"},
			List: func(_ context.Context) ([]*mcp.Resource, error) {
				return nil, boom
			},
		})
		require.NoError(t, err)

		d := New(testLogger(), reg, nil)

		_, err = d.ListResources(context.Background())
		require.ErrorIs(t, err, boom)
	})
}

func TestReadResource(t *testing.T) {
	t.Run("middleware rewrites the uri before reading", func(t *testing.T) {
		reg := registry.New(registry.Capabilities{})

		var readURI string

		_, err := reg.UpsertResource(&registry.ResourceDefinition{
			Resource: &mcp.Resource{URI: "file:///doc.txt"},
			Middleware: []registry.Middleware{
				func(_ context.Context, v map[string]any) (map[string]any, error) {
					v["uri"] = "file:///doc.txt?rev=2"

					return v, nil
				},
			},
			Read: func(_ context.Context, uri string) ([]*mcp.ResourceContents, error) {
				readURI = uri

				return []*mcp.ResourceContents{{URI: uri, Text: "contents"}}, nil
			},
		})
		require.NoError(t, err)

		d := New(testLogger(), reg, nil)

		contents, err := d.ReadResource(context.Background(), "file:///doc.txt")
		require.NoError(t, err)
		require.Len(t, contents, 1)
		require.Equal(t, "file:///doc.txt?rev=2", readURI)
	})

	t.Run("unknown uri is not found", func(t *testing.T) {
		d := New(testLogger(), registry.New(registry.Capabilities{}), nil)

		_, err := d.ReadResource(context.Background(), "file:///missing")

		var notFound *bridgeerrors.NotFoundError
		require.ErrorAs(t, err, &notFound)
		require.Equal(t, "resource", notFound.Kind)
	})
}

func TestGetPrompt(t *testing.T) {
	newPromptRegistry := func(t *testing.T) *registry.Registry {
		t.Helper()

		reg := registry.New(registry.Capabilities{})

		_, err := reg.UpsertPrompt(&registry.PromptDefinition{
			Prompt: &mcp.Prompt{
				Name: "greeting",
				Arguments: []*mcp.PromptArgument{
					{Name: "name", Required: true},
					{Name: "tone"},
				},
			},
			Handler: func(_ context.Context, args map[string]any) ([]*mcp.PromptMessage, error) {
				return []*mcp.PromptMessage{
					{
						Role:    "user",
						Content: &mcp.TextContent{Text: fmt.Sprintf("Greet %v", args["name"])},
					},
				}, nil
			},
		})
		require.NoError(t, err)

		return reg
	}

	t.Run("missing required argument", func(t *testing.T) {
		d := New(testLogger(), newPromptRegistry(t), nil)

		_, err := d.GetPrompt(context.Background(), "greeting", map[string]any{"tone": "warm"})

		var missing *bridgeerrors.MissingArgumentError
		require.ErrorAs(t, err, &missing)
		require.Equal(t, "greeting", missing.Prompt)
		require.Equal(t, "name", missing.Argument)
	})

	t.Run("optional argument may be absent", func(t *testing.T) {
		d := New(testLogger(), newPromptRegistry(t), nil)

		messages, err := d.GetPrompt(context.Background(), "greeting", map[string]any{"name": "Ada"})
		require.NoError(t, err)
		require.Len(t, messages, 1)

		text := messages[0].Content.(*mcp.TextContent)
		require.Equal(t, "Greet Ada", text.Text)
	})
}

func TestMethodTable(t *testing.T) {
	t.Run("unknown method is not found", func(t *testing.T) {
		d := New(testLogger(), registry.New(registry.Capabilities{}), nil)

		_, err := d.Dispatch(context.Background(), "tools/destroy", nil)

		var notFound *bridgeerrors.NotFoundError
		require.ErrorAs(t, err, &notFound)
		require.Equal(t, "method", notFound.Kind)
	})

	t.Run("logging method present only with the capability", func(t *testing.T) {
		plain := New(testLogger(), registry.New(registry.Capabilities{}), nil)
		require.NotContains(t, plain.Methods(), MethodLoggingSetLevel)

		_, err := plain.Dispatch(context.Background(), MethodLoggingSetLevel, map[string]any{"level": "debug"})

		var notFound *bridgeerrors.NotFoundError
		require.ErrorAs(t, err, &notFound)

		logging := New(testLogger(), registry.New(registry.Capabilities{Logging: true}), nil)

		_, err = logging.Dispatch(context.Background(), MethodLoggingSetLevel, map[string]any{"level": "debug"})
		require.NoError(t, err)
		require.Equal(t, "debug", logging.LogLevel())
	})
}

func TestSubscribeViaDispatch(t *testing.T) {
	reg := registry.New(registry.Capabilities{ResourceSubscribe: true})

	_, err := reg.UpsertResource(&registry.ResourceDefinition{
		Resource:     &mcp.Resource{URI: "file:///watched.txt"},
		Subscribable: true,
	})
	require.NoError(t, err)

	d := New(testLogger(), reg, nil)

	ctx := WithSubscriber(context.Background(), "session-1")

	_, err = d.Dispatch(ctx, MethodResourcesSubscribe, map[string]any{"uri": "file:///watched.txt"})
	require.NoError(t, err)
	require.Equal(t, []string{"session-1"}, reg.Subscribers("file:///watched.txt"))

	// A caller without an attached identity subscribes as "local".
	_, err = d.Dispatch(context.Background(), MethodResourcesSubscribe, map[string]any{"uri": "file:///watched.txt"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"session-1", "local"}, reg.Subscribers("file:///watched.txt"))

	_, err = d.Dispatch(ctx, MethodResourcesUnsubscribe, map[string]any{"uri": "file:///watched.txt"})
	require.NoError(t, err)
	require.Equal(t, []string{"local"}, reg.Subscribers("file:///watched.txt"))
}
