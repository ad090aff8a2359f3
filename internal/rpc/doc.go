// Package rpc carries dispatcher traffic over HTTP. Requests travel as
// JSON-RPC 2.0 POST bodies; push notifications stream back over a
// server-sent-events GET on the same endpoint.
//
// The Handler serves both sides for a dispatcher, and HTTPCaller is the
// matching client. Domain errors cross the wire as coded error objects
// and are rebuilt into the same error types on the far side.
package rpc
