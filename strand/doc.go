// Package strand provides the core types for talking to a Strand document
// database: composable query expressions, the canonical JSON codec for the
// wire protocol, and the response envelope model.
//
// This package defines the fundamental types used across the client engines,
// including typed values, expression constructors, the deterministic
// serializer, and common error definitions.
//
// Queries are built by composing expression constructors:
//   - Data access: Get, Exists, Create, Update, Replace, Delete
//   - Sets and pagination: Match, Paginate, Union
//   - Control flow: If, Let/Bind/In, Lambda, Map, Filter, Do
//   - References: Ref, Collection, Index, Database
//
// Key types:
//   - Expr: One node of a query expression tree
//   - Value: The typed form of every wire datum
//   - Envelope: A decoded response, either a resource or error details
//
// Common usage pattern:
//
//	query := strand.Map(
//		strand.Paginate(strand.Match(strand.Index("users_by_city"), "Berlin")),
//		strand.Lambda([]string{"ref"}, strand.Get(strand.Var("ref"))),
//	)
//
//	envelope, err := client.Query(ctx, query)
//	if err != nil {
//		// handle error
//	}
//
//	if envelope.HasErrors() {
//		// inspect envelope.Errors()
//	}
//
//	resource, err := envelope.Resource()
package strand
