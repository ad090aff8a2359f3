package mcpbridge

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newCalculatorTool(t *testing.T) *Tool {
	t.Helper()

	schema := &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"operation": {Type: "string", Enum: []any{"add", "subtract", "multiply", "divide"}},
			"a":         {Type: "string"},
			"b":         {Type: "string"},
		},
		Required: []string{"operation", "a", "b"},
	}

	return NewTool("calculator", "Performs basic arithmetic", schema,
		func(_ context.Context, args map[string]any) (*CallToolResult, error) {
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

			return TextResult(strconv.FormatFloat(result, 'f', -1, 64)), nil
		})
}

func receiveNotification(t *testing.T, sub *Subscription) Notification {
	t.Helper()

	select {
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")

		return Notification{}
	case n, ok := <-sub.Notifications():
		require.True(t, ok)

		return n
	}
}

func TestServerCalculator(t *testing.T) {
	server := NewServer("calc-server", "1.0.0")
	defer server.Close()

	require.NoError(t, server.AddTool(newCalculatorTool(t)))

	t.Run("add returns 5", func(t *testing.T) {
		result, err := server.CallTool(context.Background(), "calculator", map[string]any{
			"operation": "add",
			"a":         "2",
			"b":         "3",
		})
		require.NoError(t, err)

		text, ok := result.Content[0].(*TextContent)
		require.True(t, ok)
		require.Equal(t, "5", text.Text)
	})

	t.Run("divide by zero fails", func(t *testing.T) {
		_, err := server.CallTool(context.Background(), "calculator", map[string]any{
			"operation": "divide",
			"a":         "1",
			"b":         "0",
		})
		require.Error(t, err)
	})

	t.Run("missing argument is a validation error", func(t *testing.T) {
		_, err := server.CallTool(context.Background(), "calculator", map[string]any{
			"operation": "add",
			"a":         "2",
		})

		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("unknown tool is not found", func(t *testing.T) {
		_, err := server.CallTool(context.Background(), "missing", nil)

		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
	})
}

func TestServerRegistrationNotifications(t *testing.T) {
	server := NewServer("test-server", "0.1.0")
	defer server.Close()

	sub := server.Notifications()
	defer sub.Close()

	require.NoError(t, server.AddTool(NewTool("echo", "", nil,
		func(_ context.Context, args map[string]any) (*CallToolResult, error) {
			return TextResult(fmt.Sprintf("%v", args["text"])), nil
		})))
	require.Equal(t, NotificationToolsListChanged, receiveNotification(t, sub).Method)

	require.NoError(t, server.AddResource(NewResource("file:///a.txt", "a", nil)))
	require.Equal(t, NotificationResourcesListChanged, receiveNotification(t, sub).Method)

	require.NoError(t, server.AddPrompt(NewPrompt("greeting", "", func(_ context.Context, _ map[string]any) ([]*PromptMessage, error) {
		return nil, nil
	})))
	require.Equal(t, NotificationPromptsListChanged, receiveNotification(t, sub).Method)

	// Re-registering overwrites in place and still announces the change.
	require.NoError(t, server.AddTool(NewTool("echo", "updated", nil,
		func(_ context.Context, _ map[string]any) (*CallToolResult, error) {
			return TextResult("updated"), nil
		})))
	require.Equal(t, NotificationToolsListChanged, receiveNotification(t, sub).Method)

	tools := server.ListTools()
	require.Len(t, tools, 1)
	require.Equal(t, "updated", tools[0].Description)
}

func TestServerBroadcastsToAllSubscribers(t *testing.T) {
	server := NewServer("test-server", "0.1.0")
	defer server.Close()

	first := server.Notifications()
	defer first.Close()

	second := server.Notifications()
	defer second.Close()

	require.NoError(t, server.AddResource(NewResource("file:///a.txt", "a", nil)))

	// Both subscribers see exactly one list-changed event.
	require.Equal(t, NotificationResourcesListChanged, receiveNotification(t, first).Method)
	require.Equal(t, NotificationResourcesListChanged, receiveNotification(t, second).Method)

	for _, sub := range []*Subscription{first, second} {
		select {
		case n := <-sub.Notifications():
			t.Fatalf("unexpected notification %q", n.Method)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestServerUpdateResource(t *testing.T) {
	server := NewServer("test-server", "0.1.0",
		WithCapabilities(Capabilities{ResourceSubscribe: true}),
	)
	defer server.Close()

	require.NoError(t, server.AddResource(NewResource("file:///watched.txt", "watched",
		func(_ context.Context, uri string) ([]*ResourceContents, error) {
			return []*ResourceContents{{URI: uri, Text: "v1"}}, nil
		},
		WithSubscribable(),
	)))

	sub := server.Notifications()
	defer sub.Close()

	t.Run("no subscribers means no notification", func(t *testing.T) {
		server.UpdateResource("file:///watched.txt")

		select {
		case n := <-sub.Notifications():
			t.Fatalf("unexpected notification %q", n.Method)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("subscribed uri publishes updated", func(t *testing.T) {
		require.NoError(t, server.SubscribeToResource("file:///watched.txt", "session-1"))

		server.UpdateResource("file:///watched.txt")

		n := receiveNotification(t, sub)
		require.Equal(t, NotificationResourceUpdated, n.Method)
		require.Equal(t, "file:///watched.txt", n.Params["uri"])
	})

	t.Run("unsubscribing the last subscriber silences updates", func(t *testing.T) {
		server.UnsubscribeFromResource("file:///watched.txt", "session-1")
		server.UpdateResource("file:///watched.txt")

		select {
		case n := <-sub.Notifications():
			t.Fatalf("unexpected notification %q", n.Method)
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func TestServerCapabilityNegotiation(t *testing.T) {
	t.Run("initialize reflects configured capabilities", func(t *testing.T) {
		server := NewServer("caps-server", "2.0.0", WithCapabilities(Capabilities{
			ToolListChanged:   true,
			ResourceSubscribe: true,
			Logging:           true,
		}))
		defer server.Close()

		init := server.Initialize()

		info, ok := init["serverInfo"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "caps-server", info["name"])

		caps, ok := init["capabilities"].(map[string]any)
		require.True(t, ok)
		require.Contains(t, caps, "logging")
		require.Contains(t, server.Methods(), MethodLoggingSetLevel)
	})

	t.Run("subscribe without the capability is unsupported", func(t *testing.T) {
		server := NewServer("plain-server", "0.1.0")
		defer server.Close()

		require.NoError(t, server.AddResource(NewResource("file:///a.txt", "a", nil, WithSubscribable())))

		err := server.SubscribeToResource("file:///a.txt", "session-1")

		var unsupported *UnsupportedError
		require.ErrorAs(t, err, &unsupported)
		require.NotContains(t, server.Methods(), MethodLoggingSetLevel)
	})

	t.Run("non-subscribable resource is unsupported", func(t *testing.T) {
		server := NewServer("sub-server", "0.1.0",
			WithCapabilities(Capabilities{ResourceSubscribe: true}),
		)
		defer server.Close()

		require.NoError(t, server.AddResource(NewResource("file:///plain.txt", "plain", nil)))

		err := server.SubscribeToResource("file:///plain.txt", "session-1")

		var unsupported *UnsupportedError
		require.ErrorAs(t, err, &unsupported)
	})
}

func TestServerPrompts(t *testing.T) {
	server := NewServer("prompt-server", "0.1.0")
	defer server.Close()

	require.NoError(t, server.AddPrompt(NewPrompt("greeting", "Greet someone",
		func(_ context.Context, args map[string]any) ([]*PromptMessage, error) {
			return []*PromptMessage{{
				Role:    "user",
				Content: &TextContent{Text: fmt.Sprintf("Greet %v", args["name"])},
			}}, nil
		},
		WithPromptArgument("name", "Who to greet", true),
		WithPromptArgument("tone", "Optional tone", false),
	)))

	t.Run("renders with required argument", func(t *testing.T) {
		messages, err := server.GetPrompt(context.Background(), "greeting", map[string]any{"name": "Ada"})
		require.NoError(t, err)
		require.Len(t, messages, 1)
	})

	t.Run("missing required argument", func(t *testing.T) {
		_, err := server.GetPrompt(context.Background(), "greeting", nil)

		var missing *MissingArgumentError
		require.ErrorAs(t, err, &missing)
		require.Equal(t, "name", missing.Argument)
	})
}
