package depgraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/abapdoc/abapdoc/pkg/abap"
	"github.com/abapdoc/abapdoc/pkg/graph"
)

// FetchSources retrieves the source of every object in the set,
// skipping categories without a source representation. Fetch failures
// are returned as soft-error strings alongside the sources; the caller
// decides whether to carry them into a graph.
func (b *Builder) FetchSources(ctx context.Context, objects []abap.Object, opts Options) (map[string]string, []string) {
	opts = opts.WithDefaults()
	sources := make(map[string]string, len(objects))
	var errs []string

	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Sprintf("fetch source of %s: %v", obj.Name, err))
			break
		}
		if !obj.Type.HasSource() {
			continue
		}
		src, err := b.fetcher.FetchSource(ctx, obj.Name, obj.Type, opts.Refresh)
		if err != nil {
			opts.Logger("fetch failed: %s: %v", obj.Name, err)
			errs = append(errs, fmt.Sprintf("fetch source of %s: %v", obj.Name, err))
			continue
		}
		sources[abap.NormalizeName(obj.Name)] = src
	}
	return sources, errs
}

// BuildPackage builds the dependency graph of a fixed object set: every
// object becomes a node, every extracted dependency becomes either an
// internal edge (the target is in the set) or a typed external
// dependency (it is not), and the internal graph is partitioned into
// weakly-connected clusters, each with its own topological order.
//
// There is no discovery: objects outside the set never become nodes.
// sources maps canonical object names to pre-fetched source text (see
// [Builder.FetchSources]); objects without an entry stay in the graph
// as nodes with no outgoing edges.
func (b *Builder) BuildPackage(ctx context.Context, pkg string, objects []abap.Object, sources map[string]string, opts Options) (*graph.PackageGraph, error) {
	pkg = abap.NormalizeName(pkg)
	if pkg == "" {
		return nil, errors.New("depgraph: empty package name")
	}
	opts = opts.WithDefaults()

	pg := graph.NewPackageGraph(pkg)
	for _, obj := range objects {
		name := abap.NormalizeName(obj.Name)
		_, hasSource := sources[name]
		_ = pg.AddNode(&graph.Node{
			Name:            name,
			Type:            obj.Type,
			Custom:          abap.IsCustom(name),
			SourceAvailable: hasSource,
		})
	}

	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := abap.NormalizeName(obj.Name)
		src, ok := sources[name]
		if !ok {
			continue
		}

		deps, err := b.extractor.Extract(src, abap.Object{Name: name, Type: obj.Type})
		if err != nil {
			opts.Logger("extract failed: %s: %v", name, err)
			pg.AddError("extract dependencies of %s: %v", name, err)
			continue
		}

		for _, dep := range deps {
			if abap.IsComponentRef(dep.Name) || dep.Name == name {
				continue
			}
			if pg.HasNode(dep.Name) {
				_ = pg.AddEdge(name, dep.Name, dep.Members)
				continue
			}
			t := resolveDependencyType(ctx, b.resolver, dep, opts.Refresh, pg.AddError)
			_ = pg.AddExternal(name, dep.Name, t, dep.Members)
		}
	}

	pg.RebuildUsedBy()
	pg.OrderedNames()
	if err := pg.DetectClusters(); err != nil {
		return nil, fmt.Errorf("cluster package %s: %w", pkg, err)
	}
	return pg, nil
}
