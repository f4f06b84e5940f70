package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// SchemaVersion identifies the document layout. Bump when a field
// changes meaning so cached documents from older builds are rejected.
const SchemaVersion = 1

// Document is the canonical serialization of a dependency graph, used
// for run artifacts, caching, and API responses. Nodes and edges are
// sorted so equal graphs serialize to identical bytes.
type Document struct {
	SchemaVersion int      `json:"schema_version" bson:"schema_version"`
	Root          string   `json:"root" bson:"root"`
	Nodes         []Node   `json:"nodes" bson:"nodes"`
	Edges         []Edge   `json:"edges" bson:"edges"`
	Order         []string `json:"order,omitempty" bson:"order,omitempty"`
	Errors        []string `json:"errors,omitempty" bson:"errors,omitempty"`
}

// PackageDocument is the canonical serialization of a package graph.
type PackageDocument struct {
	SchemaVersion int                  `json:"schema_version" bson:"schema_version"`
	Package       string               `json:"package" bson:"package"`
	Objects       []Node               `json:"objects" bson:"objects"`
	InternalEdges []Edge               `json:"internal_edges" bson:"internal_edges"`
	External      []ExternalDependency `json:"external_dependencies,omitempty" bson:"external_dependencies,omitempty"`
	Clusters      []*Cluster           `json:"clusters,omitempty" bson:"clusters,omitempty"`
	Errors        []string             `json:"errors,omitempty" bson:"errors,omitempty"`
}

// FromGraph converts a graph to its serialization format. Nodes are
// sorted by name, edges by (from, to), and used-by lists are sorted,
// for deterministic output.
func FromGraph(g *Graph) Document {
	doc := Document{
		SchemaVersion: SchemaVersion,
		Root:          g.Root(),
		Nodes:         sortedNodes(g.Nodes()),
		Edges:         sortedEdges(g.Edges()),
		Order:         append([]string(nil), g.Order()...),
		Errors:        append([]string(nil), g.Errors()...),
	}
	return doc
}

// ToGraph rebuilds a graph from its serialization format. Used-by lists
// are recomputed from the edge set rather than trusted.
func ToGraph(doc Document) (*Graph, error) {
	g := New(doc.Root)
	for _, n := range doc.Nodes {
		node := n
		node.UsedBy = nil
		if err := g.AddNode(&node); err != nil {
			return nil, fmt.Errorf("add node %s: %w", n.Name, err)
		}
	}
	for _, e := range doc.Edges {
		if err := g.AddEdge(e.From, e.To, e.Members); err != nil {
			return nil, fmt.Errorf("add edge %s -> %s: %w", e.From, e.To, err)
		}
	}
	g.RebuildUsedBy()
	g.SetOrder(append([]string(nil), doc.Order...))
	g.errs = append([]string(nil), doc.Errors...)
	return g, nil
}

// FromPackageGraph converts a package graph to its serialization
// format.
func FromPackageGraph(pg *PackageGraph) PackageDocument {
	doc := PackageDocument{
		SchemaVersion: SchemaVersion,
		Package:       pg.Package,
		Objects:       sortedNodes(pg.Nodes()),
		InternalEdges: sortedEdges(pg.Graph.Edges()),
		Clusters:      pg.Clusters,
		Errors:        append([]string(nil), pg.Errors()...),
	}
	for _, ext := range pg.External {
		doc.External = append(doc.External, *ext)
	}
	sort.Slice(doc.External, func(i, j int) bool {
		if doc.External[i].From != doc.External[j].From {
			return doc.External[i].From < doc.External[j].From
		}
		return doc.External[i].To < doc.External[j].To
	})
	return doc
}

// ToPackageGraph rebuilds a package graph from its serialization
// format.
func ToPackageGraph(doc PackageDocument) (*PackageGraph, error) {
	pg := NewPackageGraph(doc.Package)
	for _, n := range doc.Objects {
		node := n
		node.UsedBy = nil
		if err := pg.AddNode(&node); err != nil {
			return nil, fmt.Errorf("add object %s: %w", n.Name, err)
		}
	}
	for _, e := range doc.InternalEdges {
		if err := pg.AddEdge(e.From, e.To, e.Members); err != nil {
			return nil, fmt.Errorf("add edge %s -> %s: %w", e.From, e.To, err)
		}
	}
	for _, ext := range doc.External {
		if err := pg.AddExternal(ext.From, ext.To, ext.Type, ext.Members); err != nil {
			return nil, fmt.Errorf("add external %s -> %s: %w", ext.From, ext.To, err)
		}
	}
	pg.RebuildUsedBy()
	pg.Clusters = doc.Clusters
	pg.Graph.errs = append([]string(nil), doc.Errors...)
	return pg, nil
}

// Marshal serializes a graph to indented JSON bytes.
func Marshal(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write writes a graph as indented JSON to w.
func Write(g *Graph, w io.Writer) error {
	return encodeJSON(FromGraph(g), w)
}

// WriteFile writes a graph to a JSON file created with 0644 permissions.
func WriteFile(g *Graph, path string) error {
	return writeJSONFile(FromGraph(g), path)
}

// Read decodes a JSON graph document from r.
func Read(r io.Reader) (*Graph, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return ToGraph(doc)
}

// ReadFile reads a JSON file and returns the decoded graph.
func ReadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// MarshalPackage serializes a package graph to indented JSON bytes.
func MarshalPackage(pg *PackageGraph) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePackage(pg, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WritePackage writes a package graph as indented JSON to w.
func WritePackage(pg *PackageGraph, w io.Writer) error {
	return encodeJSON(FromPackageGraph(pg), w)
}

// WritePackageFile writes a package graph to a JSON file.
func WritePackageFile(pg *PackageGraph, path string) error {
	return writeJSONFile(FromPackageGraph(pg), path)
}

// ReadPackage decodes a JSON package graph document from r.
func ReadPackage(r io.Reader) (*PackageGraph, error) {
	var doc PackageDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return ToPackageGraph(doc)
}

// ReadPackageFile reads a JSON file and returns the decoded package
// graph.
func ReadPackageFile(path string) (*PackageGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadPackage(f)
}

func sortedNodes(nodes []*Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = *n
		out[i].UsedBy = append([]string(nil), n.UsedBy...)
		sort.Strings(out[i].UsedBy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedEdges(edges []*Edge) []Edge {
	out := make([]Edge, len(edges))
	for i, e := range edges {
		out[i] = *e
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

func encodeJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func writeJSONFile(v any, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return encodeJSON(v, f)
}
