// Package errors defines error types for the MCP bridge.
//
// This package provides structured error types covering the failure taxonomy
// of the registry, dispatcher, and remote procedure client. All error types
// support error unwrapping and can be checked using errors.Is and errors.As.
package errors
