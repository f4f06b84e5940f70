// Package pkg provides the core libraries for abapdoc documentation generation.
//
// # Overview
//
// abapdoc reads ABAP repository objects from an SAP system's ADT REST
// services, discovers their dependency structure, and generates
// documentation in which every object is explained in terms of the
// objects it depends on. The pkg directory is organized into five main
// areas:
//
//  1. [abap], [adt] - Source access (object naming, dependency extraction, ADT client)
//  2. [graph], [depgraph] - Graph structures and discovery
//  3. [docgen], [render] - Documentation text and dependency diagrams
//  4. [pipeline], [server] - Orchestration and serving
//  5. [cache], [observability], [buildinfo] - Infrastructure
//
// # Architecture
//
// The typical data flow through abapdoc:
//
//	SAP system (ADT REST services)
//	         ↓
//	    [adt] package (fetch sources, search objects, list packages)
//	         ↓
//	    [depgraph] package (frontier-driven graph discovery)
//	         ↓
//	    [docgen] package (leaves-first summaries)
//	         ↓
//	    [render] package (DOT diagrams via Graphviz)
//	         ↓
//	    Markdown/HTML/JSON/SVG/PNG artifacts
//
// # Quick Start
//
// Document an object and its dependency graph:
//
//	import (
//	    "context"
//	    "github.com/abapdoc/abapdoc/pkg/adt"
//	    "github.com/abapdoc/abapdoc/pkg/pipeline"
//	)
//
//	// 1. Connect to the SAP system
//	client, _ := adt.NewClient(adt.Config{
//	    BaseURL:  "https://sap.example.com:44300",
//	    Client:   "100",
//	    Username: "DEVELOPER",
//	    Password: password,
//	})
//
//	// 2. Run the pipeline
//	runner := pipeline.NewRunner(client, nil, nil, nil)
//	result, _ := runner.Execute(context.Background(), pipeline.Options{
//	    Object:  "ZCL_ORDER_SERVICE",
//	    Formats: []string{pipeline.FormatMarkdown, pipeline.FormatSVG},
//	})
//
//	// 3. Write the artifacts
//	for name, data := range result.Artifacts {
//	    os.WriteFile(name, data, 0o644)
//	}
//
// # Main Packages
//
// ## Source Access
//
// [abap] - Object names, categories, and the regex-based dependency
// extractor that finds the types, calls, and includes an ABAP source
// refers to.
//
// [adt] - Read-only client for the ADT REST services: object source
// retrieval, the repository quick search, and package node structures.
// Responses are cached and transient failures retried.
//
// ## Graph Structures and Discovery
//
// [graph] - The dependency graph document: nodes, edges, union-find
// clustering, leaves-first topological ordering, and the versioned JSON
// format that caches and the server share.
//
// [depgraph] - Discovery on top of the ADT client. Builds object graphs
// breadth-first under a node budget, discovers package trees, and
// builds package graphs from each contained object's dependencies.
//
// ## Documentation
//
// [docgen] - Bottom-up summarization: each object's summary is
// generated after its dependencies' summaries and can draw on them.
// Summaries come from an OpenAI-compatible API, or degrade to
// deterministic skeletons when no generator is configured. Renders
// Markdown and HTML.
//
// [render] - Dependency diagrams: canonical DOT text plus SVG/PNG
// rasterization through Graphviz.
//
// ## Orchestration
//
// [pipeline] - The discover → summarize → render pipeline used by every
// entry point. Caches each stage, records soft problems, and writes the
// run manifest.
//
// [server] - Read-only HTTP server over a documentation directory: a
// run index, graph documents, and the rendered pages.
//
// ## Infrastructure
//
// [cache] - Cache backends (file, Redis, MongoDB, null) behind one
// interface, key construction, and retry with exponential backoff.
//
// [observability] - Optional hooks for pipeline, cache, and ADT request
// events; no-op by default.
//
// [buildinfo] - Version, commit, and date stamps injected at build time.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/graph/...    # Specific package
//
// [abap]: https://pkg.go.dev/github.com/abapdoc/abapdoc/pkg/abap
// [adt]: https://pkg.go.dev/github.com/abapdoc/abapdoc/pkg/adt
// [graph]: https://pkg.go.dev/github.com/abapdoc/abapdoc/pkg/graph
// [depgraph]: https://pkg.go.dev/github.com/abapdoc/abapdoc/pkg/depgraph
// [docgen]: https://pkg.go.dev/github.com/abapdoc/abapdoc/pkg/docgen
// [render]: https://pkg.go.dev/github.com/abapdoc/abapdoc/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/abapdoc/abapdoc/pkg/pipeline
// [server]: https://pkg.go.dev/github.com/abapdoc/abapdoc/pkg/server
// [cache]: https://pkg.go.dev/github.com/abapdoc/abapdoc/pkg/cache
// [observability]: https://pkg.go.dev/github.com/abapdoc/abapdoc/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/abapdoc/abapdoc/pkg/buildinfo
package pkg
