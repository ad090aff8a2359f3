package dispatch

import (
	"context"
	"encoding/json"
	"maps"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	bridgeerrors "github.com/wagiedev/mcp-bridge-go/internal/errors"
	"github.com/wagiedev/mcp-bridge-go/internal/registry"
)

// Wire handlers convert between protocol maps and the typed operations.
// The conversion style follows the JSON round-trip idiom used for tool
// metadata: typed values marshal to their canonical protocol shape.

func (d *Dispatcher) wireInitialize(_ context.Context, _ map[string]any) (map[string]any, error) {
	return d.Initialize(), nil
}

func (d *Dispatcher) wireToolsList(_ context.Context, _ map[string]any) (map[string]any, error) {
	tools := d.ListTools()
	items := make([]map[string]any, 0, len(tools))

	for _, tool := range tools {
		if m, err := toWireMap(tool); err == nil {
			items = append(items, m)
		}
	}

	return map[string]any{"tools": items}, nil
}

func (d *Dispatcher) wireToolsCall(ctx context.Context, params map[string]any) (map[string]any, error) {
	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	result, err := d.CallTool(ctx, name, args)
	if err != nil {
		return nil, err
	}

	return toWireMap(result)
}

func (d *Dispatcher) wireResourcesList(ctx context.Context, _ map[string]any) (map[string]any, error) {
	resources, err := d.ListResources(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(resources))

	for _, res := range resources {
		if m, err := toWireMap(res); err == nil {
			items = append(items, m)
		}
	}

	return map[string]any{"resources": items}, nil
}

func (d *Dispatcher) wireResourcesRead(ctx context.Context, params map[string]any) (map[string]any, error) {
	uri, _ := params["uri"].(string)

	contents, err := d.ReadResource(ctx, uri)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(contents))

	for _, c := range contents {
		if m, err := toWireMap(c); err == nil {
			items = append(items, m)
		}
	}

	return map[string]any{"contents": items}, nil
}

func (d *Dispatcher) wireResourcesSubscribe(ctx context.Context, params map[string]any) (map[string]any, error) {
	uri, _ := params["uri"].(string)

	if err := d.SubscribeToResource(uri, SubscriberFromContext(ctx)); err != nil {
		return nil, err
	}

	return map[string]any{}, nil
}

func (d *Dispatcher) wireResourcesUnsubscribe(ctx context.Context, params map[string]any) (map[string]any, error) {
	uri, _ := params["uri"].(string)

	d.UnsubscribeFromResource(uri, SubscriberFromContext(ctx))

	return map[string]any{}, nil
}

func (d *Dispatcher) wirePromptsList(_ context.Context, _ map[string]any) (map[string]any, error) {
	prompts := d.ListPrompts()
	items := make([]map[string]any, 0, len(prompts))

	for _, prompt := range prompts {
		if m, err := toWireMap(prompt); err == nil {
			items = append(items, m)
		}
	}

	return map[string]any{"prompts": items}, nil
}

func (d *Dispatcher) wirePromptsGet(ctx context.Context, params map[string]any) (map[string]any, error) {
	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	messages, err := d.GetPrompt(ctx, name, args)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(messages))

	for _, msg := range messages {
		if m, err := toWireMap(msg); err == nil {
			items = append(items, m)
		}
	}

	return map[string]any{"messages": items}, nil
}

func (d *Dispatcher) wireLoggingSetLevel(_ context.Context, params map[string]any) (map[string]any, error) {
	level, ok := params["level"].(string)
	if !ok || level == "" {
		return nil, &bridgeerrors.ValidationError{
			Tool:   MethodLoggingSetLevel,
			Detail: "missing level",
		}
	}

	d.SetLogLevel(level)

	return map[string]any{}, nil
}

// toWireMap converts a typed protocol value to its map form via a JSON
// round trip.
func toWireMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	return m, nil
}

func cloneMap(m map[string]any) map[string]any {
	return maps.Clone(m)
}

func capabilitiesMap(c registry.Capabilities) map[string]any {
	caps := map[string]any{
		"tools": map[string]any{
			"listChanged": c.ToolListChanged,
		},
		"resources": map[string]any{
			"subscribe":   c.ResourceSubscribe,
			"listChanged": c.ResourceListChanged,
		},
		"prompts": map[string]any{
			"listChanged": c.PromptListChanged,
		},
	}

	if c.Logging {
		caps["logging"] = map[string]any{}
	}

	if len(c.Experimental) > 0 {
		caps["experimental"] = c.Experimental
	}

	return caps
}

func implementationMap(info *mcp.Implementation) map[string]any {
	if info == nil {
		return map[string]any{
			"name":    "mcp-bridge",
			"version": "0.0.0",
		}
	}

	m := map[string]any{
		"name":    info.Name,
		"version": info.Version,
	}

	if info.Title != "" {
		m["title"] = info.Title
	}

	return m
}
