// Package depgraph builds dependency graphs of ABAP repository
// objects.
//
// # Overview
//
// abapdoc documents ABAP code bottom-up: leaves of the dependency
// graph are summarized first so that every object's summary can draw
// on the summaries of the objects it uses. This package produces the
// graphs that ordering works on, in two shapes:
//
//   - [Builder.Build] discovers the transitive dependency graph of a
//     single object, breadth-first from the root, bounded by a node
//     budget.
//   - [Builder.BuildPackage] takes a fixed, already-enumerated object
//     set (typically a package's contents), classifies every edge as
//     internal or external, and partitions the internal graph into
//     functional clusters.
//
// [DiscoverTree] enumerates a package hierarchy up to a depth limit,
// producing the object set that BuildPackage consumes.
//
// # Collaborators
//
// The builders depend on three narrow interfaces - [SourceFetcher],
// [TypeResolver] and [PackageLister] - implemented by the ADT client,
// and on an [Extractor] that turns source text into dependency
// records (by default the scanner in [pkg/abap]). Every external call
// may fail per object; failures are recorded as soft errors on the
// resulting graph and never abort a build. A root whose fetch fails
// still yields a valid, empty graph. Only two conditions are fatal:
// authentication failures, which doom every call that would follow,
// and context cancellation.
//
// # Determinism
//
// Discovery is deliberately sequential. The node budget keeps the
// closest N objects to the root, which is only well-defined if the
// frontier drains in a stable breadth-first order; parallel fetches
// would trade that guarantee for speed. Responses are cached by the
// ADT client, so repeat builds are cheap regardless.
//
// [pkg/abap]: github.com/abapdoc/abapdoc/pkg/abap
package depgraph
