package depgraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/abapdoc/abapdoc/pkg/abap"
	"github.com/abapdoc/abapdoc/pkg/cache"
	"github.com/abapdoc/abapdoc/pkg/graph"
)

// Builder builds dependency graphs using the configured collaborators.
//
// The zero value is not usable - use NewBuilder.
type Builder struct {
	fetcher   SourceFetcher
	resolver  TypeResolver
	extractor Extractor
}

// NewBuilder creates a Builder on the given fetcher and resolver. The
// dependency extractor defaults to the pkg/abap statement scanner.
func NewBuilder(fetcher SourceFetcher, resolver TypeResolver) *Builder {
	return &Builder{
		fetcher:   fetcher,
		resolver:  resolver,
		extractor: sourceExtractor{},
	}
}

// Build discovers the transitive dependency graph of one object,
// breadth-first from the root, up to the node budget in opts.
//
// Per-object failures (unfetchable source, extraction errors, resolver
// errors) are recorded on the graph via [graph.Graph.Errors] and do not
// abort the build; even a root whose fetch fails yields a valid, empty
// graph carrying the failure. Build returns an error only for
// authentication failures, which doom every subsequent call, and for
// context cancellation.
//
// If objType is [abap.TypeUnknown] the root's type is resolved first.
func (b *Builder) Build(ctx context.Context, name string, objType abap.ObjectType, opts Options) (*graph.Graph, error) {
	name = abap.NormalizeName(name)
	if name == "" {
		return nil, errors.New("depgraph: empty object name")
	}

	d := &discovery{
		opts:      opts.WithDefaults(),
		fetcher:   b.fetcher,
		resolver:  b.resolver,
		extractor: b.extractor,
		g:         graph.New(name),
		visited:   make(map[string]bool),
		queued:    make(map[string]bool),
	}
	return d.run(ctx, name, objType)
}

// discovery holds the state of one Build invocation. Each invocation
// owns its maps exclusively; the frontier drains sequentially, so no
// locking is needed.
type discovery struct {
	opts      Options
	fetcher   SourceFetcher
	resolver  TypeResolver
	extractor Extractor

	g        *graph.Graph
	queue    []queueItem
	visited  map[string]bool
	queued   map[string]bool
	deferred []deferredEdge
}

type queueItem struct {
	name    string
	objType abap.ObjectType
}

// deferredEdge is an edge whose target was not yet a node when the
// reference was discovered. Deferred edges are resolved against the
// final node set after the frontier drains; edges to targets that
// never materialized (budget cutoff, fetch failure) are dropped.
type deferredEdge struct {
	from, to string
	members  []abap.MemberRef
}

func (d *discovery) run(ctx context.Context, root string, rootType abap.ObjectType) (*graph.Graph, error) {
	if rootType == abap.TypeUnknown {
		rootType = d.resolveType(ctx, abap.Dependency{Name: root})
	}
	d.enqueue(root, rootType)

	for len(d.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item := d.queue[0]
		d.queue = d.queue[1:]
		if d.visited[item.name] {
			continue
		}
		d.visited[item.name] = true
		delete(d.queued, item.name)

		// Hard cutoff: the budget keeps the closest objects to the
		// root, so traversal stops globally instead of per branch.
		if d.g.NodeCount() >= d.opts.MaxNodes {
			d.g.AddError("node budget of %d reached: %d queued objects left unexplored",
				d.opts.MaxNodes, len(d.queue)+1)
			break
		}

		src, err := d.fetcher.FetchSource(ctx, item.name, item.objType, d.opts.Refresh)
		if err != nil {
			if errors.Is(err, cache.ErrAuth) {
				return nil, fmt.Errorf("fetch source of %s: %w", item.name, err)
			}
			d.opts.Logger("fetch failed: %s: %v", item.name, err)
			d.g.AddError("fetch source of %s: %v", item.name, err)
			continue
		}

		_ = d.g.AddNode(&graph.Node{
			Name:            item.name,
			Type:            item.objType,
			Custom:          abap.IsCustom(item.name),
			SourceAvailable: true,
		})

		deps, err := d.extractor.Extract(src, abap.Object{Name: item.name, Type: item.objType})
		if err != nil {
			d.opts.Logger("extract failed: %s: %v", item.name, err)
			d.g.AddError("extract dependencies of %s: %v", item.name, err)
			continue
		}
		d.recordDeps(ctx, item.name, deps)
	}

	d.finish()
	return d.g, nil
}

// recordDeps classifies each extracted dependency and records nodes,
// edges and deferred edges accordingly.
func (d *discovery) recordDeps(ctx context.Context, from string, deps []abap.Dependency) {
	for _, dep := range deps {
		if abap.IsComponentRef(dep.Name) || dep.Name == from {
			continue
		}

		switch {
		case d.g.HasNode(dep.Name):
			_ = d.g.AddEdge(from, dep.Name, dep.Members)

		case d.queued[dep.Name]:
			// Enqueued earlier but not yet fetched; the node does not
			// exist, so the edge must wait.
			d.deferEdge(from, dep)

		case d.visited[dep.Name]:
			// Visited but never materialized: its fetch failed. The
			// edge would dangle, drop the reference.

		case abap.IsCustom(dep.Name):
			t := d.resolveType(ctx, dep)
			if !t.Relevant() {
				continue
			}
			d.enqueue(dep.Name, t)
			d.deferEdge(from, dep)

		default:
			// Standard objects are acknowledged as leaves, never
			// fetched.
			t := d.resolveType(ctx, dep)
			if !t.Relevant() {
				continue
			}
			_ = d.g.AddNode(&graph.Node{
				Name:            dep.Name,
				Type:            t,
				Custom:          false,
				SourceAvailable: false,
			})
			_ = d.g.AddEdge(from, dep.Name, dep.Members)
		}
	}
}

func (d *discovery) enqueue(name string, objType abap.ObjectType) {
	if d.visited[name] || d.queued[name] {
		return
	}
	d.queued[name] = true
	d.queue = append(d.queue, queueItem{name: name, objType: objType})
}

func (d *discovery) deferEdge(from string, dep abap.Dependency) {
	d.deferred = append(d.deferred, deferredEdge{from: from, to: dep.Name, members: dep.Members})
}

func (d *discovery) resolveType(ctx context.Context, dep abap.Dependency) abap.ObjectType {
	return resolveDependencyType(ctx, d.resolver, dep, d.opts.Refresh, d.g.AddError)
}

// finish resolves deferred edges against the final node set, rebuilds
// the reverse-edge lists from scratch, and computes the topological
// order.
func (d *discovery) finish() {
	for _, e := range d.deferred {
		if !d.g.HasNode(e.to) {
			continue
		}
		_ = d.g.AddEdge(e.from, e.to, e.members)
	}
	d.g.RebuildUsedBy()
	d.g.OrderedNames()
}
