// Package render turns dependency graphs into Graphviz DOT text and
// rendered diagrams.
//
// [ToDOT] and [PackageToDOT] produce deterministic DOT; [RenderSVG]
// and [RenderPNG] run Graphviz in-process via goccy/go-graphviz, so
// rendering needs no external binary.
//
//	dot := render.ToDOT(g, render.Options{})
//	svg, err := render.RenderSVG(ctx, dot)
package render

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/abapdoc/abapdoc/pkg/abap"
	"github.com/abapdoc/abapdoc/pkg/graph"
)

// Options configures diagram rendering.
type Options struct {
	// Detailed adds object categories to node labels and member names
	// to edge labels. When false, nodes carry only the object name.
	Detailed bool

	// Externals includes the targets of external dependencies in
	// package diagrams, drawn as dashed ellipses outside the cluster
	// boxes.
	Externals bool
}

// ToDOT converts a dependency graph to Graphviz DOT. The root object
// gets a thicker outline, SAP-delivered objects a grey fill, and
// objects whose source was not analyzed a dashed outline.
//
// Nodes and edges are written in sorted order, so equal graphs produce
// identical text regardless of how they were assembled. Rendered
// diagrams are cached under the hash of this text.
func ToDOT(g *graph.Graph, opts Options) string {
	var buf bytes.Buffer
	writeHeader(&buf)

	for _, n := range sortedNodes(g.Nodes()) {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Name, strings.Join(nodeAttrs(n, n.Name == g.Root(), opts), ", "))
	}

	buf.WriteString("\n")
	for _, e := range sortedEdges(g.Edges()) {
		writeEdge(&buf, e, opts)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// PackageToDOT converts a package graph to DOT with one subgraph box
// per cluster. The synthetic standalone cluster is not boxed: a frame
// around unrelated objects would suggest cohesion that is not there.
func PackageToDOT(pg *graph.PackageGraph, opts Options) string {
	var buf bytes.Buffer
	writeHeader(&buf)
	fmt.Fprintf(&buf, "  label=%q;\n", "Package "+pg.Package)
	buf.WriteString("  labelloc=t;\n\n")

	boxed := make(map[string]bool)
	for _, c := range pg.Clusters {
		if c.Name == graph.StandaloneClusterName {
			continue
		}
		fmt.Fprintf(&buf, "  subgraph cluster_%d {\n", c.ID)
		fmt.Fprintf(&buf, "    label=%q;\n", c.DisplayName())
		buf.WriteString("    style=rounded;\n")
		buf.WriteString("    color=grey60;\n")
		for _, name := range c.Objects {
			n, ok := pg.Node(name)
			if !ok {
				continue
			}
			boxed[name] = true
			fmt.Fprintf(&buf, "    %q [%s];\n", n.Name, strings.Join(nodeAttrs(n, false, opts), ", "))
		}
		buf.WriteString("  }\n")
	}

	buf.WriteString("\n")
	for _, n := range sortedNodes(pg.Nodes()) {
		if boxed[n.Name] {
			continue
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Name, strings.Join(nodeAttrs(n, false, opts), ", "))
	}

	buf.WriteString("\n")
	for _, e := range sortedEdges(pg.Edges()) {
		writeEdge(&buf, e, opts)
	}

	if opts.Externals && len(pg.External) > 0 {
		buf.WriteString("\n")
		seen := make(map[string]bool)
		for _, ext := range sortedExternals(pg.External) {
			if !seen[ext.To] {
				seen[ext.To] = true
				label := ext.To
				if opts.Detailed {
					label = ext.To + "\n" + ext.Type.String()
				}
				fmt.Fprintf(&buf, "  %q [label=%q, shape=ellipse, style=\"dashed,filled\", fillcolor=white];\n", ext.To, label)
			}
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed];\n", ext.From, ext.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func sortedNodes(nodes []*graph.Node) []*graph.Node {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes
}

func sortedEdges(edges []*graph.Edge) []*graph.Edge {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

func sortedExternals(externals []*graph.ExternalDependency) []*graph.ExternalDependency {
	out := append([]*graph.ExternalDependency(nil), externals...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

func writeHeader(buf *bytes.Buffer) {
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10, color=grey40];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")
}

func nodeAttrs(n *graph.Node, isRoot bool, opts Options) []string {
	attrs := []string{fmt.Sprintf("label=%q", nodeLabel(n, opts))}
	if !n.SourceAvailable {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"")
	}
	if !n.Custom {
		attrs = append(attrs, "fillcolor=lightgrey")
	}
	if isRoot {
		attrs = append(attrs, "penwidth=2")
	}
	return attrs
}

func nodeLabel(n *graph.Node, opts Options) string {
	if !opts.Detailed {
		return n.Name
	}
	return n.Name + "\n" + n.Type.String()
}

func writeEdge(buf *bytes.Buffer, e *graph.Edge, opts Options) {
	if opts.Detailed && len(e.Members) > 0 {
		fmt.Fprintf(buf, "  %q -> %q [label=%q];\n", e.From, e.To, edgeLabel(e.Members))
		return
	}
	fmt.Fprintf(buf, "  %q -> %q;\n", e.From, e.To)
}

// edgeLabel lists up to three member names, one per line.
func edgeLabel(members []abap.MemberRef) string {
	names := make([]string, 0, len(members))
	for i, m := range members {
		if i == 3 {
			names = append(names, fmt.Sprintf("+%d", len(members)-3))
			break
		}
		names = append(names, m.Name)
	}
	return strings.Join(names, "\n")
}
