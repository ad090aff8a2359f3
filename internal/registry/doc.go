// Package registry implements the capability registry.
//
// The registry holds tool, resource, and prompt definitions together with
// the capability flags negotiated at construction time. It is pure data plus
// mutation operations: mutators return the notification to publish instead
// of publishing it themselves, keeping event publication decoupled from
// command execution.
//
// Registration is expected to happen during startup, before concurrent
// traffic begins. The internal mutex makes interleaved access safe but does
// not provide any ordering guarantee between registration and requests.
package registry
