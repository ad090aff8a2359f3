// Package mcpbridge adapts a local request/response transport to a remote
// MCP-style procedure surface, in both directions.
//
// The server side registers tools, resources, and prompts and exposes them
// as named procedures with schema validation, middleware, and capability
// negotiation. The client side attaches to a local transport and forwards
// its requests to a remote dispatcher, relaying push notifications back.
//
// # Serving tools
//
// Build a server, register definitions, and expose it over HTTP:
//
//	server := mcpbridge.NewServer("calculator", "1.0.0",
//	    mcpbridge.WithCapabilities(mcpbridge.Capabilities{ToolListChanged: true}),
//	)
//
//	tool := mcpbridge.NewTool("add", "Add two numbers",
//	    mcpbridge.SimpleSchema(map[string]string{"a": "float64", "b": "float64"}),
//	    func(ctx context.Context, args map[string]any) (*mcpbridge.CallToolResult, error) {
//	        a, b := args["a"].(float64), args["b"].(float64)
//	        return mcpbridge.TextResult(fmt.Sprintf("%v", a+b)), nil
//	    },
//	)
//
//	if err := server.AddTool(tool); err != nil {
//	    log.Fatal(err)
//	}
//
//	http.ListenAndServe(":8080", server.HTTPHandler())
//
// Registration publishes the matching list-changed notification; call
// Subscribe to receive the server's notification stream in process.
//
// # Bridging a local transport
//
// A Client forwards every local request to the remote endpoint and pushes
// remote notifications into the local transport:
//
//	client := mcpbridge.NewClient("http://localhost:8080",
//	    mcpbridge.WithErrorCallback(func(method string, err error) {
//	        log.Printf("%s failed: %v", method, err)
//	    }),
//	)
//
//	if err := client.Start(ctx, local); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Stop()
//
// Per-request failures invoke the error callback and surface to the local
// caller; they never stop the session. Clients are single-use.
package mcpbridge
