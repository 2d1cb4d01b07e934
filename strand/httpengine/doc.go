// Package httpengine provides the HTTP implementation of the Strand client.
//
// This package carries serialized query expressions to a Strand service over
// HTTP, supporting multiple transports (net/http, plain send functions) with
// deterministic request framing and envelope decoding.
//
// Key features:
//   - Multiple transport support (net/http client, custom send functions)
//   - Construction-time query validation, malformed trees never hit the wire
//   - Per-exchange correlation ids, pinnable through the context
//   - Configurable endpoint, API version and dual-logger support
//   - Optional metrics and tracing through dependency-free interfaces
//
// Usage examples:
//
//	// Basic usage
//	client, _ := httpengine.New(secret)
//
//	// With a self-hosted endpoint and operational logging
//	client, _ := httpengine.New(
//		secret,
//		httpengine.WithEndpoint("https://strand.internal:8443"),
//		httpengine.WithLogger(logger),
//	)
//
//	// From environment configuration
//	cfg, _ := httpengine.LoadConfig("STRAND_")
//	client, _ := httpengine.NewFromConfig(cfg)
//
//	envelope, err := client.Query(ctx, strand.Get(strand.Ref(strand.Collection("users"), id)))
package httpengine
