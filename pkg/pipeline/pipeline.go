// Package pipeline provides the end-to-end documentation pipeline for
// abapdoc.
//
// This package implements the complete discover → summarize → render
// sequence shared by the CLI and the HTTP server. By centralizing this
// logic, we ensure consistent caching and option handling across all
// entry points.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Discover: build the dependency graph of one repository object, or
//     of a whole development package, against the ADT backend
//  2. Summarize: produce documentation text for every object, using a
//     language model when a generator is configured and deterministic
//     skeletons otherwise
//  3. Render: generate output artifacts in various formats (Markdown,
//     HTML, JSON, DOT, SVG, PNG)
//
// Each stage can be run independently or as part of the complete
// pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(client, cache, nil, logger)
//	opts := pipeline.Options{
//	    Object:  "ZCL_ORDER_SERVICE",
//	    Formats: []string{"markdown", "svg"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	readme := result.Artifacts["README.md"]
//
// Run individual stages:
//
//	// Discover only
//	g, err := runner.Discover(ctx, opts)
//
//	// Render an existing graph with existing docs
//	artifacts, err := runner.Render(ctx, g, nil, docs, opts)
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/abapdoc/abapdoc/pkg/abap"
	"github.com/abapdoc/abapdoc/pkg/cache"
	"github.com/abapdoc/abapdoc/pkg/depgraph"
	"github.com/abapdoc/abapdoc/pkg/docgen"
	"github.com/abapdoc/abapdoc/pkg/graph"
	"github.com/abapdoc/abapdoc/pkg/render"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultMaxNodes is the node budget for object graph discovery.
	// This matches depgraph.DefaultMaxNodes to maintain consistency.
	DefaultMaxNodes = depgraph.DefaultMaxNodes

	// DefaultMaxDepth is the sub-package recursion depth for package
	// discovery.
	DefaultMaxDepth = depgraph.DefaultMaxDepth
)

// Format constants for output formats.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatJSON     = "json"
	FormatDOT      = "dot"
	FormatSVG      = "svg"
	FormatPNG      = "png"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatMarkdown: true,
	FormatHTML:     true,
	FormatJSON:     true,
	FormatDOT:      true,
	FormatSVG:      true,
	FormatPNG:      true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the documentation pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Discover options. Exactly one of Object and Package must be set.
	Object   string `json:"object,omitempty"`
	Package  string `json:"package,omitempty"`
	Type     string `json:"type,omitempty"` // Category of the root object (class, program, ...); empty resolves it
	MaxNodes int    `json:"max_nodes,omitempty"`
	MaxDepth int    `json:"max_depth,omitempty"`
	Refresh  bool   `json:"refresh,omitempty"`

	// Summarize options
	MaxSourceChars int `json:"max_source_chars,omitempty"`

	// Render options
	Formats   []string `json:"formats,omitempty"`
	Detailed  bool     `json:"detailed,omitempty"`  // Node categories and member names on diagram edges
	Externals bool     `json:"externals,omitempty"` // External dependency targets in package diagrams

	// Runtime options (not serialized)
	Logger    *log.Logger      `json:"-"`
	Generator docgen.Generator `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies this run in logs, the manifest artifact, and
	// the server's run index.
	RunID string

	// Graph is the discovered dependency graph (object runs).
	Graph *graph.Graph

	// PackageGraph is the discovered package graph (package runs).
	PackageGraph *graph.PackageGraph

	// GraphHash is the content hash of the serialized graph.
	GraphHash string

	// Docs is the generated documentation text.
	Docs *docgen.Docs

	// Artifacts contains rendered outputs keyed by output-relative
	// file path ("README.md", "objects/ZCL_APP.md", "graph.svg").
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Problems returns the soft errors of a run: discovery problems
// recorded on the graph, then summary generation failures. An empty
// result means the run was clean.
func (r *Result) Problems() []string {
	var out []string
	switch {
	case r.PackageGraph != nil:
		out = append(out, r.PackageGraph.Errors()...)
	case r.Graph != nil:
		out = append(out, r.Graph.Errors()...)
	}
	if r.Docs != nil {
		out = append(out, r.Docs.Errors...)
	}
	return out
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount     int
	EdgeCount     int
	DiscoverTime  time.Duration
	SummarizeTime time.Duration
	RenderTime    time.Duration
}

// CacheInfo tracks cache hits per pipeline stage. Summaries are cached
// per object rather than per stage; their hit counts are in Docs.Stats.
type CacheInfo struct {
	GraphHit  bool // Whether the discovered graph came from cache
	RenderHit bool // Whether all diagram artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: markdown, html, json, dot, svg, png)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForDiscover(); err != nil {
		return err
	}
	o.SetSummarizeDefaults()
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForDiscover checks required fields for graph discovery.
// Object and package names are normalized to their canonical uppercase
// form so cache keys are case-insensitive.
func (o *Options) ValidateForDiscover() error {
	o.Object = abap.NormalizeName(o.Object)
	o.Package = abap.NormalizeName(o.Package)
	if o.Object == "" && o.Package == "" {
		return fmt.Errorf("object or package is required")
	}
	if o.Object != "" && o.Package != "" {
		return fmt.Errorf("object and package are mutually exclusive")
	}
	if o.Type != "" && abap.ParseType(o.Type) == abap.TypeUnknown {
		return fmt.Errorf("unknown object type: %q", o.Type)
	}

	// Discover defaults
	if o.MaxNodes == 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = DefaultMaxDepth
	}

	// Logger default
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	return nil
}

// SetSummarizeDefaults sets default values for summary generation.
func (o *Options) SetSummarizeDefaults() {
	if o.MaxSourceChars == 0 {
		o.MaxSourceChars = docgen.DefaultMaxSourceChars
	}
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatMarkdown}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	return ValidateFormats(o.Formats)
}

// IsPackage reports whether the options select a package run.
func (o *Options) IsPackage() bool {
	return o.Package != ""
}

// GraphKeyOpts returns cache key options for object graph discovery.
func (o *Options) GraphKeyOpts() cache.GraphKeyOpts {
	return cache.GraphKeyOpts{
		Type:     o.Type,
		MaxNodes: o.MaxNodes,
	}
}

// PackageKeyOpts returns cache key options for package graph discovery.
func (o *Options) PackageKeyOpts() cache.PackageKeyOpts {
	return cache.PackageKeyOpts{
		MaxDepth: o.MaxDepth,
	}
}

// depgraphOptions converts pipeline options to discovery options.
// Discovery callbacks land on the debug level; the stage summaries in
// Execute carry the info-level story.
func (o *Options) depgraphOptions() depgraph.Options {
	return depgraph.Options{
		MaxNodes: o.MaxNodes,
		MaxDepth: o.MaxDepth,
		Refresh:  o.Refresh,
		Logger:   o.Logger.Debugf,
	}
}

// docgenOptions converts pipeline options to summarizer options.
func (o *Options) docgenOptions() docgen.Options {
	return docgen.Options{
		MaxSourceChars: o.MaxSourceChars,
		Refresh:        o.Refresh,
		Logger:         o.Logger.Debugf,
	}
}

// renderOptions converts pipeline options to diagram options.
func (o *Options) renderOptions() render.Options {
	return render.Options{
		Detailed:  o.Detailed,
		Externals: o.Externals,
	}
}
