// Package dispatch implements the request dispatcher.
//
// The dispatcher routes named procedure calls to capability registry entries,
// validates tool arguments against their schemas, folds middleware chains
// over the request value, and invokes the bound handler. The wire-facing
// Dispatch entry point routes through a method table fixed at construction
// and converts typed results into protocol maps.
package dispatch
