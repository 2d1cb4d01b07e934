// Package adapters provides transport adapter implementations for the HTTP
// client engine.
//
// This package implements the adapter pattern to support multiple ways of
// carrying a request to the service: a net/http client and a plain send
// function. All adapters provide equivalent functionality through a common
// HTTPAdapter interface, allowing the engine to work seamlessly with any
// supported transport.
//
// The adapters handle the specifics of each transport while presenting a
// unified interface for sending a request body and collecting the status
// code and response body.
package adapters
