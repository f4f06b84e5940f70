package docgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abapdoc/abapdoc/pkg/cache"
	"github.com/abapdoc/abapdoc/pkg/graph"
	"github.com/abapdoc/abapdoc/pkg/observability"
)

// Docs holds the generated documentation text for one graph.
type Docs struct {
	// Objects maps object names to their summaries. Every node of the
	// summarized graph has an entry.
	Objects map[string]string

	// Clusters maps cluster IDs to joint summaries (package mode).
	Clusters map[int]string

	// Overview is the package introduction (package mode).
	Overview string

	// Errors lists per-object generation failures. A failed object
	// still gets a skeleton summary.
	Errors []string

	// Stats counts where summaries came from.
	Stats Stats
}

// Stats counts summary origins for one run.
type Stats struct {
	Generated int // fresh generator calls
	Cached    int // served from the summary cache
	Skeletons int // deterministic fallbacks
}

func newDocs() *Docs {
	return &Docs{
		Objects:  make(map[string]string),
		Clusters: make(map[int]string),
	}
}

// Summarizer produces documentation text for graphs. A nil Generator
// is valid and yields skeleton summaries only.
//
// The zero value is not usable - use NewSummarizer.
type Summarizer struct {
	gen   Generator
	cache cache.Cache
	keyer cache.Keyer
	model string
	opts  Options
}

// NewSummarizer creates a Summarizer. A nil cache disables summary
// caching; a nil keyer uses the default key layout.
func NewSummarizer(gen Generator, c cache.Cache, keyer cache.Keyer, opts Options) *Summarizer {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	model := "none"
	if m, ok := gen.(modeler); ok {
		model = m.Model()
	} else if gen != nil {
		model = "custom"
	}
	return &Summarizer{gen: gen, cache: c, keyer: keyer, model: model, opts: opts.WithDefaults()}
}

// SummarizeGraph summarizes every node of a single-object dependency
// graph, bottom-up along its topological order so each prompt can
// carry the summaries of the object's dependencies.
func (s *Summarizer) SummarizeGraph(ctx context.Context, g *graph.Graph, sources map[string]string) *Docs {
	docs := newDocs()
	for _, name := range orderOf(g) {
		n, ok := g.Node(name)
		if !ok {
			continue
		}
		s.summarizeObject(ctx, docs, g, n, sources[name])
	}
	return docs
}

// SummarizePackage summarizes a package graph: every object cluster by
// cluster, then a joint summary per cluster, then the package
// overview. Cluster names produced along the way are assigned to the
// clusters themselves.
func (s *Summarizer) SummarizePackage(ctx context.Context, pg *graph.PackageGraph, sources map[string]string) *Docs {
	docs := newDocs()
	for _, c := range pg.Clusters {
		for _, name := range c.Order {
			n, ok := pg.Node(name)
			if !ok {
				continue
			}
			s.summarizeObject(ctx, docs, pg.Graph, n, sources[name])
		}
		s.summarizeCluster(ctx, docs, pg, c)
	}
	// A graph that never went through cluster detection still gets
	// object summaries.
	if len(pg.Clusters) == 0 {
		for _, name := range orderOf(pg.Graph) {
			n, ok := pg.Node(name)
			if !ok {
				continue
			}
			s.summarizeObject(ctx, docs, pg.Graph, n, sources[name])
		}
	}
	s.summarizeOverview(ctx, docs, pg)
	return docs
}

// orderOf returns the stored topological order, computing it when the
// graph was built without one.
func orderOf(g *graph.Graph) []string {
	if order := g.Order(); len(order) > 0 {
		return order
	}
	return g.OrderedNames()
}

func (s *Summarizer) summarizeObject(ctx context.Context, docs *Docs, g *graph.Graph, n *graph.Node, source string) {
	deps := s.dependencyContext(g, n.Name, docs)

	// Without source there is nothing for the model to read; graph
	// facts make a better summary than a guess from the name.
	if s.gen == nil || source == "" {
		docs.Objects[n.Name] = skeletonSummary(n, deps)
		docs.Stats.Skeletons++
		return
	}

	prompt := objectPrompt(n, source, deps, s.opts.MaxSourceChars)
	text, cached, err := s.generate(ctx, n.Name, prompt)
	if err != nil {
		s.opts.Logger("summarize failed: %s: %v", n.Name, err)
		docs.Errors = append(docs.Errors, fmt.Sprintf("summarize %s: %v", n.Name, err))
		docs.Objects[n.Name] = skeletonSummary(n, deps)
		docs.Stats.Skeletons++
		return
	}
	docs.Objects[n.Name] = text
	if cached {
		docs.Stats.Cached++
	} else {
		docs.Stats.Generated++
	}
}

func (s *Summarizer) summarizeCluster(ctx context.Context, docs *Docs, pg *graph.PackageGraph, c *graph.Cluster) {
	// The standalone cluster is a catch-all, not a functional group; a
	// joint summary would invent cohesion that is not there.
	if c.Name == graph.StandaloneClusterName {
		docs.Clusters[c.ID] = fmt.Sprintf("%d objects without dependencies inside the package.", len(c.Objects))
		return
	}
	if s.gen == nil {
		docs.Clusters[c.ID] = skeletonClusterSummary(c)
		docs.Stats.Skeletons++
		return
	}

	prompt := clusterPrompt(pg.Package, c, docs.Objects)
	text, cached, err := s.generate(ctx, fmt.Sprintf("%s:cluster:%d", pg.Package, c.ID), prompt)
	if err != nil {
		s.opts.Logger("summarize failed: cluster %d: %v", c.ID, err)
		docs.Errors = append(docs.Errors, fmt.Sprintf("summarize cluster %d of %s: %v", c.ID, pg.Package, err))
		docs.Clusters[c.ID] = skeletonClusterSummary(c)
		docs.Stats.Skeletons++
		return
	}
	name, summary := splitNamedSummary(text)
	if name != "" {
		c.Name = name
	}
	docs.Clusters[c.ID] = summary
	if cached {
		docs.Stats.Cached++
	} else {
		docs.Stats.Generated++
	}
}

func (s *Summarizer) summarizeOverview(ctx context.Context, docs *Docs, pg *graph.PackageGraph) {
	if s.gen == nil || len(pg.Clusters) == 0 {
		docs.Overview = skeletonOverview(pg)
		docs.Stats.Skeletons++
		return
	}

	prompt := overviewPrompt(pg, docs.Clusters)
	text, cached, err := s.generate(ctx, pg.Package+":overview", prompt)
	if err != nil {
		s.opts.Logger("summarize failed: overview: %v", err)
		docs.Errors = append(docs.Errors, fmt.Sprintf("summarize overview of %s: %v", pg.Package, err))
		docs.Overview = skeletonOverview(pg)
		docs.Stats.Skeletons++
		return
	}
	docs.Overview = text
	if cached {
		docs.Stats.Cached++
	} else {
		docs.Stats.Generated++
	}
}

// generate runs one cached generator call. The key hashes the full
// prompt, so any change to source or dependency context invalidates
// the entry by construction.
func (s *Summarizer) generate(ctx context.Context, object, prompt string) (string, bool, error) {
	key := s.keyer.SummaryKey(object, cache.Hash([]byte(prompt)), s.model)
	if !s.opts.Refresh {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			observability.Cache().OnCacheHit(ctx, "summary")
			return string(data), true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "summary")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	text, err := s.gen.Generate(callCtx, prompt)
	if err != nil {
		return "", false, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false, errors.New("generator returned empty text")
	}
	_ = s.cache.Set(ctx, key, []byte(text), cache.TTLSummary)
	observability.Cache().OnCacheSet(ctx, "summary", len(text))
	return text, false, nil
}

// dependencyContext collects the finished summaries of an object's
// direct dependencies, in edge insertion order. Dependencies not yet
// summarized (back-edges of cycles) are skipped.
func (s *Summarizer) dependencyContext(g *graph.Graph, from string, docs *Docs) []depContext {
	var deps []depContext
	for _, e := range g.Edges() {
		if e.From != from {
			continue
		}
		summary, ok := docs.Objects[e.To]
		if !ok {
			continue
		}
		d := depContext{Name: e.To, Summary: summary, Members: e.Members}
		if n, ok := g.Node(e.To); ok {
			d.Type = n.Type
		}
		deps = append(deps, d)
	}
	return deps
}

func skeletonSummary(n *graph.Node, deps []depContext) string {
	var b strings.Builder
	origin := "a custom"
	if !n.Custom {
		origin = "an SAP-delivered"
	}
	fmt.Fprintf(&b, "%s is %s ABAP %s.", n.Name, origin, typeLabel(n.Type))
	if len(deps) > 0 {
		names := make([]string, len(deps))
		for i, d := range deps {
			names[i] = d.Name
		}
		fmt.Fprintf(&b, " It references %s.", joinNames(names, 8))
	}
	if len(n.UsedBy) > 0 {
		fmt.Fprintf(&b, " It is used by %s.", joinNames(n.UsedBy, 8))
	}
	if !n.SourceAvailable {
		b.WriteString(" Its source was not analyzed.")
	}
	return b.String()
}

func skeletonClusterSummary(c *graph.Cluster) string {
	return fmt.Sprintf("A group of %d objects connected by %d internal references: %s.",
		len(c.Objects), len(c.Edges), joinNames(c.Objects, 8))
}

func skeletonOverview(pg *graph.PackageGraph) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Package %s contains %d objects", pg.Package, pg.NodeCount())
	if len(pg.Clusters) > 0 {
		fmt.Fprintf(&b, " in %d groups", len(pg.Clusters))
	}
	b.WriteByte('.')
	if len(pg.External) > 0 {
		fmt.Fprintf(&b, " It references %d objects outside the package.", len(pg.External))
	}
	return b.String()
}
