package graph

import (
	"fmt"
	"sort"

	"github.com/abapdoc/abapdoc/pkg/abap"
)

// StandaloneClusterName is the display name of the synthetic cluster
// that collects objects with no internal dependencies.
const StandaloneClusterName = "Standalone Objects"

// ExternalDependency is an edge leaving the package: From is an object
// inside the package, To one outside it. Type carries the resolved
// category of the external target, since there is no node to hold it.
type ExternalDependency struct {
	From    string           `json:"from" bson:"from"`
	To      string           `json:"to" bson:"to"`
	Type    abap.ObjectType  `json:"type" bson:"type"`
	Members []abap.MemberRef `json:"members,omitempty" bson:"members,omitempty"`
}

// Cluster is one weakly connected component of a package's internal
// dependency graph: a group of objects that belong together.
type Cluster struct {
	// ID numbers real clusters from 1 by descending size. The synthetic
	// standalone cluster comes last.
	ID int `json:"id" bson:"id"`

	// Name is empty until an external namer (usually the documentation
	// generator) assigns one; DisplayName falls back to "Cluster <ID>".
	Name string `json:"name,omitempty" bson:"name,omitempty"`

	// Objects holds the member names, sorted.
	Objects []string `json:"objects" bson:"objects"`

	// Edges holds the internal edges with both endpoints in the
	// cluster.
	Edges []*Edge `json:"edges,omitempty" bson:"edges,omitempty"`

	// Order is the cluster-local leaves-first topological order.
	Order []string `json:"order,omitempty" bson:"order,omitempty"`
}

// DisplayName returns the assigned name, or "Cluster <ID>" while none
// is assigned.
func (c *Cluster) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("Cluster %d", c.ID)
}

// PackageGraph is the dependency graph of a fixed object set, usually
// all objects of one ABAP package. The embedded Graph holds the objects
// and the edges between them; dependencies leaving the set are kept
// separately as external dependencies.
type PackageGraph struct {
	*Graph
	Package  string
	External []*ExternalDependency
	Clusters []*Cluster
}

// NewPackageGraph creates an empty package graph for the named package.
func NewPackageGraph(pkg string) *PackageGraph {
	return &PackageGraph{
		Graph:   New(""),
		Package: abap.NormalizeName(pkg),
	}
}

// AddExternal records a dependency of an internal object on a target
// outside the package. From must be a known object; To must not be.
// Repeated additions of the same pair merge member references.
func (pg *PackageGraph) AddExternal(from, to string, typ abap.ObjectType, members []abap.MemberRef) error {
	from = abap.NormalizeName(from)
	to = abap.NormalizeName(to)
	if !pg.HasNode(from) {
		return fmt.Errorf("%w: %s", ErrUnknownSourceNode, from)
	}
	if pg.HasNode(to) {
		return fmt.Errorf("external target %s is an object of package %s", to, pg.Package)
	}
	for _, ext := range pg.External {
		if ext.From == from && ext.To == to {
			ext.Members = mergeMembers(ext.Members, members)
			return nil
		}
	}
	pg.External = append(pg.External, &ExternalDependency{
		From:    from,
		To:      to,
		Type:    typ,
		Members: mergeMembers(nil, members),
	})
	return nil
}

// DetectClusters groups the package's objects into weakly connected
// components using a disjoint set over the object names, unioning the
// endpoints of every internal edge.
//
// Components with two or more members become numbered clusters, ordered
// by descending size with ties broken by first member name. Objects
// that participate in no internal edge at all are collected into one
// synthetic standalone cluster appended at the end. Every cluster
// carries its induced edges and a cluster-local topological order.
//
// The component walk cannot encounter unknown names, so the disjoint
// set errors are genuinely unreachable; they are still checked and
// returned rather than swallowed.
func (pg *PackageGraph) DetectClusters() error {
	names := pg.NodeNames()
	dsu := NewDisjointSet(names)
	for _, e := range pg.Graph.Edges() {
		if err := dsu.Union(e.From, e.To); err != nil {
			return fmt.Errorf("cluster %s: %w", pg.Package, err)
		}
	}

	components := make([][]string, 0, len(names))
	for _, members := range dsu.Components() {
		components = append(components, members)
	}
	// Descending size, ties by first (alphabetically smallest) member.
	sort.Slice(components, func(i, j int) bool {
		if len(components[i]) != len(components[j]) {
			return len(components[i]) > len(components[j])
		}
		return components[i][0] < components[j][0]
	})

	hasEdge := make(map[string]bool, len(names))
	for _, e := range pg.Graph.Edges() {
		hasEdge[e.From] = true
		hasEdge[e.To] = true
	}

	var clusters []*Cluster
	var standalone []string
	for _, members := range components {
		if len(members) == 1 && !hasEdge[members[0]] {
			standalone = append(standalone, members[0])
			continue
		}
		c := &Cluster{
			ID:      len(clusters) + 1,
			Objects: members,
			Edges:   pg.inducedEdges(members),
		}
		c.Order = TopologicalOrder(c.Objects, c.Edges)
		clusters = append(clusters, c)
	}
	if len(standalone) > 0 {
		sort.Strings(standalone)
		clusters = append(clusters, &Cluster{
			ID:      len(clusters) + 1,
			Name:    StandaloneClusterName,
			Objects: standalone,
			Order:   standalone,
		})
	}
	pg.Clusters = clusters
	return nil
}

// inducedEdges returns the internal edges whose endpoints are both in
// members, preserving edge insertion order.
func (pg *PackageGraph) inducedEdges(members []string) []*Edge {
	inSet := make(map[string]bool, len(members))
	for _, m := range members {
		inSet[m] = true
	}
	var out []*Edge
	for _, e := range pg.Graph.Edges() {
		if inSet[e.From] && inSet[e.To] {
			out = append(out, e)
		}
	}
	return out
}
