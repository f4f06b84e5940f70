// Package graph holds the dependency graph model for ABAP repository
// objects: nodes, member-annotated edges, disjoint-set clustering and
// leaves-first topological ordering, plus the JSON document format used
// for storage and API responses.
package graph

import (
	"errors"
	"fmt"

	"github.com/abapdoc/abapdoc/pkg/abap"
)

var (
	// ErrEmptyNodeName is returned by [Graph.AddNode] when the node name
	// is empty. All nodes must have non-empty identifiers.
	ErrEmptyNodeName = errors.New("node name must not be empty")

	// ErrDuplicateNode is returned by [Graph.AddNode] when a node with
	// the same canonical name already exists. Node names are unique.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the From
	// node does not exist in the graph.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the To
	// node does not exist in the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrSelfEdge is returned by [Graph.AddEdge] when From and To name
	// the same node. Dependency graphs never contain self-edges.
	ErrSelfEdge = errors.New("self-referential edge")

	// ErrDanglingEdge is returned by [Graph.Validate] when an edge
	// references a node that doesn't exist. This indicates corruption.
	ErrDanglingEdge = errors.New("edge references unknown node")

	// ErrUsedByMismatch is returned by [Graph.Validate] when a node's
	// used-by list disagrees with the edge set. Call RebuildUsedBy after
	// the last edge mutation.
	ErrUsedByMismatch = errors.New("used-by list out of sync with edges")
)

// Node is one repository object in a dependency graph.
type Node struct {
	Name            string          `json:"name" bson:"name"`
	Type            abap.ObjectType `json:"type" bson:"type"`
	Custom          bool            `json:"custom" bson:"custom"`
	SourceAvailable bool            `json:"source_available" bson:"source_available"`

	// UsedBy lists the names of nodes with an edge pointing at this
	// node. Maintained by [Graph.RebuildUsedBy].
	UsedBy []string `json:"used_by,omitempty" bson:"used_by,omitempty"`
}

// Edge is a directed dependency: From uses To. Members records which
// members of To the source code of From references.
type Edge struct {
	From    string           `json:"from" bson:"from"`
	To      string           `json:"to" bson:"to"`
	Members []abap.MemberRef `json:"members,omitempty" bson:"members,omitempty"`
}

type edgeKey struct{ from, to string }

// Graph is a dependency graph rooted at one repository object. Nodes
// and edges keep insertion order, which makes traversals and
// serialization deterministic without sorting.
//
// The zero value is not usable - use New. Graph is not safe for
// concurrent use without external synchronization.
type Graph struct {
	root  string
	nodes map[string]*Node
	names []string
	edges []*Edge
	index map[edgeKey]*Edge
	order []string
	errs  []string
}

// New creates an empty graph. The root is recorded as the canonical
// form of name; the root node itself must still be added with AddNode.
func New(root string) *Graph {
	return &Graph{
		root:  abap.NormalizeName(root),
		nodes: make(map[string]*Node),
		index: make(map[edgeKey]*Edge),
	}
}

// Root returns the canonical name of the root object.
func (g *Graph) Root() string { return g.root }

// AddNode adds a node to the graph, normalizing its name first.
// Returns ErrEmptyNodeName for empty names and ErrDuplicateNode when
// the canonical name is already present.
func (g *Graph) AddNode(n *Node) error {
	n.Name = abap.NormalizeName(n.Name)
	if n.Name == "" {
		return ErrEmptyNodeName
	}
	if _, exists := g.nodes[n.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.Name)
	}
	g.nodes[n.Name] = n
	g.names = append(g.names, n.Name)
	return nil
}

// Node returns the node with the given name and true, or nil and false.
// The pointer refers to the actual node, so modifications affect the
// graph.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[abap.NormalizeName(name)]
	return n, ok
}

// HasNode reports whether a node with the given name exists.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes[abap.NormalizeName(name)]
	return ok
}

// Nodes returns all nodes in insertion order. The slice is freshly
// allocated but shares node pointers with the graph.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, len(g.names))
	for i, name := range g.names {
		nodes[i] = g.nodes[name]
	}
	return nodes
}

// NodeNames returns all node names in insertion order.
func (g *Graph) NodeNames() []string {
	return append([]string(nil), g.names...)
}

// AddEdge records that from depends on to. Both endpoints must exist
// and must differ. Adding an edge that already exists merges the new
// member references into the existing edge instead of duplicating it.
func (g *Graph) AddEdge(from, to string, members []abap.MemberRef) error {
	from = abap.NormalizeName(from)
	to = abap.NormalizeName(to)
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSourceNode, from)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTargetNode, to)
	}
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfEdge, from)
	}
	key := edgeKey{from, to}
	if e, ok := g.index[key]; ok {
		e.Members = mergeMembers(e.Members, members)
		return nil
	}
	e := &Edge{From: from, To: to, Members: mergeMembers(nil, members)}
	g.edges = append(g.edges, e)
	g.index[key] = e
	return nil
}

// Edge returns the edge from→to and true, or nil and false.
func (g *Graph) Edge(from, to string) (*Edge, bool) {
	e, ok := g.index[edgeKey{abap.NormalizeName(from), abap.NormalizeName(to)}]
	return e, ok
}

// Edges returns all edges in insertion order. The slice is freshly
// allocated but shares edge pointers with the graph.
func (g *Graph) Edges() []*Edge {
	return append([]*Edge(nil), g.edges...)
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// SetOrder stores the topological order computed for this graph.
func (g *Graph) SetOrder(order []string) { g.order = order }

// Order returns the stored topological order, usually computed with
// [TopologicalOrder] after construction finishes.
func (g *Graph) Order() []string { return g.order }

// AddError records a non-fatal problem encountered while building the
// graph, such as an unreadable dependency source.
func (g *Graph) AddError(format string, args ...any) {
	g.errs = append(g.errs, fmt.Sprintf(format, args...))
}

// Errors returns the accumulated non-fatal problems in occurrence order.
func (g *Graph) Errors() []string { return g.errs }

// RebuildUsedBy clears every node's used-by list and replays all edges,
// so that each list is exactly the set of edge sources pointing at the
// node. Call once after the last edge mutation.
func (g *Graph) RebuildUsedBy() {
	for _, n := range g.nodes {
		n.UsedBy = nil
	}
	for _, e := range g.edges {
		target, ok := g.nodes[e.To]
		if !ok {
			continue
		}
		if !containsString(target.UsedBy, e.From) {
			target.UsedBy = append(target.UsedBy, e.From)
		}
	}
}

// Validate checks graph integrity: every edge connects existing,
// distinct nodes, and every used-by list matches the edge set. Cycles
// are legal in ABAP dependency graphs and are not a validation error.
func (g *Graph) Validate() error {
	incoming := make(map[string][]string, len(g.nodes))
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return fmt.Errorf("%w: %s -> %s", ErrDanglingEdge, e.From, e.To)
		}
		if _, ok := g.nodes[e.To]; !ok {
			return fmt.Errorf("%w: %s -> %s", ErrDanglingEdge, e.From, e.To)
		}
		if e.From == e.To {
			return fmt.Errorf("%w: %s", ErrSelfEdge, e.From)
		}
		incoming[e.To] = append(incoming[e.To], e.From)
	}
	for name, n := range g.nodes {
		if !sameStringSet(n.UsedBy, incoming[name]) {
			return fmt.Errorf("%w: %s", ErrUsedByMismatch, name)
		}
	}
	return nil
}

// mergeMembers appends members from src that are not yet present in
// dst, comparing by name and kind.
func mergeMembers(dst, src []abap.MemberRef) []abap.MemberRef {
	for _, m := range src {
		found := false
		for _, d := range dst {
			if d.Name == m.Name && d.Kind == m.Kind {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, m)
		}
	}
	return dst
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// sameStringSet compares two slices as sets, ignoring order and
// duplicates.
func sameStringSet(a, b []string) bool {
	aset := make(map[string]bool, len(a))
	for _, s := range a {
		aset[s] = true
	}
	bset := make(map[string]bool, len(b))
	for _, s := range b {
		bset[s] = true
	}
	if len(aset) != len(bset) {
		return false
	}
	for s := range aset {
		if !bset[s] {
			return false
		}
	}
	return true
}
