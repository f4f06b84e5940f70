package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/abapdoc/abapdoc/pkg/abap"
	"github.com/abapdoc/abapdoc/pkg/adt"
	"github.com/abapdoc/abapdoc/pkg/cache"
	"github.com/abapdoc/abapdoc/pkg/depgraph"
	"github.com/abapdoc/abapdoc/pkg/docgen"
	"github.com/abapdoc/abapdoc/pkg/graph"
	"github.com/abapdoc/abapdoc/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for its collaborators - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Fetcher  depgraph.SourceFetcher
	Resolver depgraph.TypeResolver
	Lister   depgraph.PackageLister
	Cache    cache.Cache
	Keyer    cache.Keyer
	Logger   *log.Logger
}

// NewRunner creates a runner backed by an ADT client.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
// A nil client leaves the backend collaborators unset; they can be
// assigned directly, which is how tests substitute fakes.
func NewRunner(client *adt.Client, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	r := &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
	if client != nil {
		r.Fetcher = client
		r.Resolver = client
		r.Lister = adtLister{client: client}
	}
	return r
}

// adtLister adapts the ADT node structure listing to the discovery
// interface.
type adtLister struct {
	client *adt.Client
}

func (l adtLister) ListPackage(ctx context.Context, pkg string, refresh bool) ([]depgraph.PackageEntry, error) {
	nodes, err := l.client.ListPackage(ctx, pkg, refresh)
	if err != nil {
		return nil, err
	}
	entries := make([]depgraph.PackageEntry, 0, len(nodes))
	for _, n := range nodes {
		entries = append(entries, depgraph.PackageEntry{
			Name:        n.Name,
			Type:        n.Type,
			IsPackage:   n.IsPackage(),
			Description: n.Description,
		})
	}
	return entries, nil
}

// Execute runs the complete discover → summarize → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{
		RunID:     uuid.NewString(),
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Discover
	target := opts.Object
	if opts.IsPackage() {
		target = opts.Package
	}
	observability.Pipeline().OnDiscoverStart(ctx, target)
	discoverStart := time.Now()
	var docGraph *graph.Graph // view the later stages operate on
	if opts.IsPackage() {
		pg, hit, err := r.DiscoverPackageWithCacheInfo(ctx, opts)
		if err != nil {
			observability.Pipeline().OnDiscoverComplete(ctx, target, 0, time.Since(discoverStart), err)
			return nil, fmt.Errorf("discover: %w", err)
		}
		result.PackageGraph = pg
		result.CacheInfo.GraphHit = hit
		if data, err := graph.MarshalPackage(pg); err == nil {
			result.GraphHash = cache.Hash(data)
		}
		docGraph = pg.Graph
	} else {
		g, hit, err := r.DiscoverWithCacheInfo(ctx, opts)
		if err != nil {
			observability.Pipeline().OnDiscoverComplete(ctx, target, 0, time.Since(discoverStart), err)
			return nil, fmt.Errorf("discover: %w", err)
		}
		result.Graph = g
		result.CacheInfo.GraphHit = hit
		if data, err := graph.Marshal(g); err == nil {
			result.GraphHash = cache.Hash(data)
		}
		docGraph = g
	}
	result.Stats.DiscoverTime = time.Since(discoverStart)
	result.Stats.NodeCount = docGraph.NodeCount()
	result.Stats.EdgeCount = docGraph.EdgeCount()
	observability.Pipeline().OnDiscoverComplete(ctx, target, result.Stats.NodeCount, result.Stats.DiscoverTime, nil)

	r.Logger.Info("discovered dependencies",
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"duration", result.Stats.DiscoverTime)

	// Stage 2: Summarize
	observability.Pipeline().OnSummarizeStart(ctx, docGraph.NodeCount())
	summarizeStart := time.Now()
	sources := r.fetchSources(ctx, docGraph, opts)
	s := docgen.NewSummarizer(opts.Generator, r.Cache, r.Keyer, opts.docgenOptions())
	if opts.IsPackage() {
		result.Docs = s.SummarizePackage(ctx, result.PackageGraph, sources)
	} else {
		result.Docs = s.SummarizeGraph(ctx, result.Graph, sources)
	}
	result.Stats.SummarizeTime = time.Since(summarizeStart)
	observability.Pipeline().OnSummarizeComplete(ctx, docGraph.NodeCount(), result.Stats.SummarizeTime)

	r.Logger.Info("summarized objects",
		"generated", result.Docs.Stats.Generated,
		"cached", result.Docs.Stats.Cached,
		"skeletons", result.Docs.Stats.Skeletons,
		"duration", result.Stats.SummarizeTime)

	// Stage 3: Render
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, result.Graph, result.PackageGraph, result.Docs, opts)
	if err != nil {
		observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(renderStart), err)
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, result.Stats.RenderTime, nil)

	r.Logger.Info("rendered documentation",
		"formats", opts.Formats,
		"files", len(artifacts),
		"duration", result.Stats.RenderTime)

	if data, err := runManifest(result, opts); err == nil {
		result.Artifacts[ManifestFile] = data
	}

	return result, nil
}

// DiscoverWithCacheInfo builds an object dependency graph with caching
// and returns cache hit info.
func (r *Runner) DiscoverWithCacheInfo(ctx context.Context, opts Options) (*graph.Graph, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForDiscover(); err != nil {
		return nil, false, err
	}
	if opts.IsPackage() {
		return nil, false, errors.New("pipeline: options select a package run")
	}
	if r.Fetcher == nil || r.Resolver == nil {
		return nil, false, errors.New("pipeline: no source backend configured")
	}

	cacheKey := r.Keyer.GraphKey(opts.Object, opts.GraphKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if g, err := graph.Read(bytes.NewReader(data)); err == nil {
				observability.Cache().OnCacheHit(ctx, "graph")
				return g, true, nil // Cache hit
			}
			// Undecodable documents (schema drift) fall through to rebuild.
		}
		observability.Cache().OnCacheMiss(ctx, "graph")
	}

	builder := depgraph.NewBuilder(r.Fetcher, r.Resolver)
	g, err := builder.Build(ctx, opts.Object, abap.ParseType(opts.Type), opts.depgraphOptions())
	if err != nil {
		return nil, false, err
	}

	// An empty graph means the root fetch failed; don't cache it, the
	// next run should retry instead of replaying the failure.
	if g.NodeCount() > 0 {
		if data, err := graph.Marshal(g); err == nil {
			_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLGraph)
			observability.Cache().OnCacheSet(ctx, "graph", len(data))
		}
	}

	return g, false, nil // Cache miss
}

// Discover is a convenience wrapper that calls DiscoverWithCacheInfo and discards the cache hit info.
func (r *Runner) Discover(ctx context.Context, opts Options) (*graph.Graph, error) {
	g, _, err := r.DiscoverWithCacheInfo(ctx, opts)
	return g, err
}

// DiscoverPackageWithCacheInfo builds a package graph with caching and
// returns cache hit info. Soft discovery problems (unlistable
// sub-packages, unfetchable sources) are recorded on the graph, not
// returned as errors.
func (r *Runner) DiscoverPackageWithCacheInfo(ctx context.Context, opts Options) (*graph.PackageGraph, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForDiscover(); err != nil {
		return nil, false, err
	}
	if !opts.IsPackage() {
		return nil, false, errors.New("pipeline: options select an object run")
	}
	if r.Lister == nil {
		return nil, false, errors.New("pipeline: no package lister configured")
	}
	if r.Fetcher == nil || r.Resolver == nil {
		return nil, false, errors.New("pipeline: no source backend configured")
	}

	cacheKey := r.Keyer.PackageKey(opts.Package, opts.PackageKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if pg, err := graph.ReadPackage(bytes.NewReader(data)); err == nil {
				observability.Cache().OnCacheHit(ctx, "package")
				return pg, true, nil // Cache hit
			}
		}
		observability.Cache().OnCacheMiss(ctx, "package")
	}

	dopts := opts.depgraphOptions()
	tree, treeProblems, err := depgraph.DiscoverTree(ctx, r.Lister, opts.Package, dopts)
	if err != nil {
		return nil, false, fmt.Errorf("discover package tree %s: %w", opts.Package, err)
	}

	builder := depgraph.NewBuilder(r.Fetcher, r.Resolver)
	objects := tree.Flatten()
	sources, fetchProblems := builder.FetchSources(ctx, objects, dopts)

	pg, err := builder.BuildPackage(ctx, opts.Package, objects, sources, dopts)
	if err != nil {
		return nil, false, err
	}
	for _, p := range treeProblems {
		pg.AddError("%s", p)
	}
	for _, p := range fetchProblems {
		pg.AddError("%s", p)
	}

	if data, err := graph.MarshalPackage(pg); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLGraph)
		observability.Cache().OnCacheSet(ctx, "package", len(data))
	}

	return pg, false, nil // Cache miss
}

// DiscoverPackage is a convenience wrapper that calls DiscoverPackageWithCacheInfo and discards the cache hit info.
func (r *Runner) DiscoverPackage(ctx context.Context, opts Options) (*graph.PackageGraph, error) {
	pg, _, err := r.DiscoverPackageWithCacheInfo(ctx, opts)
	return pg, err
}

// fetchSources retrieves the source text of every node that had source
// during discovery. Discovery populated the transport cache moments
// ago, so these are cheap lookups; a failed fetch just degrades that
// object to a skeleton summary.
func (r *Runner) fetchSources(ctx context.Context, g *graph.Graph, opts Options) map[string]string {
	sources := make(map[string]string)
	if r.Fetcher == nil {
		return sources
	}
	for _, n := range g.Nodes() {
		if !n.SourceAvailable {
			continue
		}
		src, err := r.Fetcher.FetchSource(ctx, n.Name, n.Type, false)
		if err != nil {
			opts.Logger.Debug("source refetch failed", "object", n.Name, "err", err)
			continue
		}
		sources[n.Name] = src
	}
	return sources
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
