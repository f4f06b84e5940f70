package docgen

import (
	"fmt"
	"strings"

	"github.com/abapdoc/abapdoc/pkg/graph"
)

// RenderOptions adjusts the generated pages.
type RenderOptions struct {
	// DiagramFile, when set, is referenced as an image from the index
	// page. The path is relative to the output directory.
	DiagramFile string
}

// Markdown renders the documentation of a single-object graph as a set
// of files: an index under README.md and one page per object under
// objects/.
func Markdown(g *graph.Graph, docs *Docs, opts RenderOptions) map[string][]byte {
	out := make(map[string][]byte, g.NodeCount()+1)
	for _, n := range g.Nodes() {
		out["objects/"+objectFileName(n.Name, "md")] = objectPageMarkdown(g, n, docs, nil)
	}
	out["README.md"] = indexMarkdown(g, docs, opts)
	return out
}

// PackageMarkdown renders the documentation of a package graph,
// including cluster sections and external dependencies.
func PackageMarkdown(pg *graph.PackageGraph, docs *Docs, opts RenderOptions) map[string][]byte {
	externals := externalsByFrom(pg)
	out := make(map[string][]byte, pg.NodeCount()+1)
	for _, n := range pg.Nodes() {
		out["objects/"+objectFileName(n.Name, "md")] = objectPageMarkdown(pg.Graph, n, docs, externals[n.Name])
	}
	out["README.md"] = packageIndexMarkdown(pg, docs, opts)
	return out
}

func indexMarkdown(g *graph.Graph, docs *Docs, opts RenderOptions) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", g.Root())
	if g.NodeCount() == 0 {
		b.WriteString("Documentation could not be built: no objects were discovered.\n\n")
		writeProblems(&b, g.Errors(), docs.Errors)
		return []byte(b.String())
	}
	fmt.Fprintf(&b, "Dependency documentation for %s and the %d objects it relies on.\n\n",
		g.Root(), g.NodeCount()-1)
	if summary := docs.Objects[g.Root()]; summary != "" {
		b.WriteString(summary)
		b.WriteString("\n\n")
	}
	writeDiagram(&b, opts)

	b.WriteString("## Objects\n\n")
	b.WriteString("| Object | Type | Depends on | Used by |\n|---|---|---:|---:|\n")
	outgoing := outgoingCounts(g)
	for _, name := range rootFirst(g) {
		n, ok := g.Node(name)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "| [%s](objects/%s) | %s | %d | %d |\n",
			n.Name, objectFileName(n.Name, "md"), typeLabel(n.Type), outgoing[n.Name], len(n.UsedBy))
	}
	b.WriteByte('\n')

	writeProblems(&b, g.Errors(), docs.Errors)
	return []byte(b.String())
}

func packageIndexMarkdown(pg *graph.PackageGraph, docs *Docs, opts RenderOptions) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# Package %s\n\n", pg.Package)
	if pg.NodeCount() == 0 {
		b.WriteString("Documentation could not be built: no documentable objects were discovered.\n\n")
		writeProblems(&b, pg.Errors(), docs.Errors)
		return []byte(b.String())
	}
	if docs.Overview != "" {
		b.WriteString(docs.Overview)
		b.WriteString("\n\n")
	}
	writeDiagram(&b, opts)

	for _, c := range pg.Clusters {
		fmt.Fprintf(&b, "## %s\n\n", c.DisplayName())
		if summary := docs.Clusters[c.ID]; summary != "" {
			b.WriteString(summary)
			b.WriteString("\n\n")
		}
		for _, name := range c.Order {
			n, ok := pg.Node(name)
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "- [%s](objects/%s) (%s)\n", n.Name, objectFileName(n.Name, "md"), typeLabel(n.Type))
		}
		b.WriteByte('\n')
	}

	if len(pg.External) > 0 {
		b.WriteString("## External dependencies\n\n")
		b.WriteString("| From | To | Type | Members used |\n|---|---|---|---|\n")
		for _, ext := range pg.External {
			fmt.Fprintf(&b, "| [%s](objects/%s) | %s | %s | %s |\n",
				ext.From, objectFileName(ext.From, "md"), ext.To, typeLabel(ext.Type), memberList(ext.Members, 4))
		}
		b.WriteByte('\n')
	}

	writeProblems(&b, pg.Errors(), docs.Errors)
	return []byte(b.String())
}

func objectPageMarkdown(g *graph.Graph, n *graph.Node, docs *Docs, externals []*graph.ExternalDependency) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", n.Name)

	badges := []string{"`" + typeLabel(n.Type) + "`"}
	if n.Custom {
		badges = append(badges, "custom")
	} else {
		badges = append(badges, "SAP-delivered")
	}
	if !n.SourceAvailable {
		badges = append(badges, "source not analyzed")
	}
	b.WriteString(strings.Join(badges, " · "))
	b.WriteString("\n\n")

	if summary := docs.Objects[n.Name]; summary != "" {
		b.WriteString(summary)
		b.WriteString("\n\n")
	}

	var deps []*graph.Edge
	for _, e := range g.Edges() {
		if e.From == n.Name {
			deps = append(deps, e)
		}
	}
	if len(deps) > 0 {
		b.WriteString("## Dependencies\n\n")
		b.WriteString("| Object | Type | Members used |\n|---|---|---|\n")
		for _, e := range deps {
			label := e.To
			typ := "unknown"
			if target, ok := g.Node(e.To); ok {
				label = fmt.Sprintf("[%s](%s)", e.To, objectFileName(e.To, "md"))
				typ = typeLabel(target.Type)
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", label, typ, memberList(e.Members, 4))
		}
		b.WriteByte('\n')
	}

	if len(externals) > 0 {
		b.WriteString("## Outside the package\n\n")
		b.WriteString("| Object | Type | Members used |\n|---|---|---|\n")
		for _, ext := range externals {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", ext.To, typeLabel(ext.Type), memberList(ext.Members, 4))
		}
		b.WriteByte('\n')
	}

	if len(n.UsedBy) > 0 {
		b.WriteString("## Used by\n\n")
		for _, user := range n.UsedBy {
			fmt.Fprintf(&b, "- [%s](%s)\n", user, objectFileName(user, "md"))
		}
		b.WriteByte('\n')
	}

	b.WriteString("[Index](../README.md)\n")
	return []byte(b.String())
}

func writeDiagram(b *strings.Builder, opts RenderOptions) {
	if opts.DiagramFile == "" {
		return
	}
	fmt.Fprintf(b, "![Dependency graph](%s)\n\n", opts.DiagramFile)
}

func writeProblems(b *strings.Builder, graphErrs, docErrs []string) {
	if len(graphErrs) == 0 && len(docErrs) == 0 {
		return
	}
	b.WriteString("## Problems\n\n")
	b.WriteString("The documentation is incomplete:\n\n")
	for _, e := range graphErrs {
		fmt.Fprintf(b, "- %s\n", e)
	}
	for _, e := range docErrs {
		fmt.Fprintf(b, "- %s\n", e)
	}
	b.WriteByte('\n')
}

// rootFirst returns node names with the root on top, users before
// their dependencies - the reading order of an index.
func rootFirst(g *graph.Graph) []string {
	order := orderOf(g)
	out := make([]string, len(order))
	for i, name := range order {
		out[len(order)-1-i] = name
	}
	return out
}

func outgoingCounts(g *graph.Graph) map[string]int {
	counts := make(map[string]int, g.NodeCount())
	for _, e := range g.Edges() {
		counts[e.From]++
	}
	return counts
}

func externalsByFrom(pg *graph.PackageGraph) map[string][]*graph.ExternalDependency {
	out := make(map[string][]*graph.ExternalDependency)
	for _, ext := range pg.External {
		out[ext.From] = append(out[ext.From], ext)
	}
	return out
}

// objectFileName maps an object name to a filesystem-safe file name.
// Namespaced objects like /ACME/CL_UTIL become ACME_CL_UTIL.<ext>.
func objectFileName(name, ext string) string {
	name = strings.ReplaceAll(strings.Trim(name, "/"), "/", "_")
	return name + "." + ext
}
