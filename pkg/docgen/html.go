package docgen

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/abapdoc/abapdoc/pkg/graph"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplates = template.Must(template.New("docgen").ParseFS(templateFS, "templates/*.tmpl"))

type indexPage struct {
	Title     string
	Intro     string
	Summary   []string
	Diagram   string
	Objects   []objectRow
	Clusters  []clusterSection
	Externals []externalRow
	Problems  []string
}

type objectRow struct {
	Name      string
	File      string
	Type      string
	DependsOn int
	UsedBy    int
}

type clusterSection struct {
	Title   string
	Summary []string
	Objects []objectRow
}

type externalRow struct {
	From     string
	FromFile string
	To       string
	Type     string
	Members  string
}

type objectPage struct {
	Name      string
	Badges    []string
	Summary   []string
	Deps      []depRow
	Externals []depRow
	UsedBy    []objectRow
}

type depRow struct {
	Name    string
	File    string
	Type    string
	Members string
}

// HTML renders the documentation of a single-object graph as a static
// site: index.html plus one page per object under objects/.
func HTML(g *graph.Graph, docs *Docs, opts RenderOptions) (map[string][]byte, error) {
	out := make(map[string][]byte, g.NodeCount()+1)
	for _, n := range g.Nodes() {
		page, err := renderPage("object.html.tmpl", objectPageData(g, n, docs, nil))
		if err != nil {
			return nil, fmt.Errorf("render page of %s: %w", n.Name, err)
		}
		out["objects/"+objectFileName(n.Name, "html")] = page
	}

	intro := fmt.Sprintf("Dependency documentation for %s and the %d objects it relies on.",
		g.Root(), g.NodeCount()-1)
	if g.NodeCount() == 0 {
		intro = "Documentation could not be built: no objects were discovered."
	}
	data := indexPage{
		Title:    g.Root(),
		Intro:    intro,
		Summary:  paragraphs(docs.Objects[g.Root()]),
		Diagram:  opts.DiagramFile,
		Problems: problemList(g.Errors(), docs.Errors),
	}
	outgoing := outgoingCounts(g)
	for _, name := range rootFirst(g) {
		n, ok := g.Node(name)
		if !ok {
			continue
		}
		data.Objects = append(data.Objects, objectRow{
			Name:      n.Name,
			File:      objectFileName(n.Name, "html"),
			Type:      typeLabel(n.Type),
			DependsOn: outgoing[n.Name],
			UsedBy:    len(n.UsedBy),
		})
	}

	idx, err := renderPage("index.html.tmpl", data)
	if err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}
	out["index.html"] = idx
	return out, nil
}

// PackageHTML renders the documentation of a package graph as a static
// site, grouping the index by cluster.
func PackageHTML(pg *graph.PackageGraph, docs *Docs, opts RenderOptions) (map[string][]byte, error) {
	externals := externalsByFrom(pg)
	out := make(map[string][]byte, pg.NodeCount()+1)
	for _, n := range pg.Nodes() {
		page, err := renderPage("object.html.tmpl", objectPageData(pg.Graph, n, docs, externals[n.Name]))
		if err != nil {
			return nil, fmt.Errorf("render page of %s: %w", n.Name, err)
		}
		out["objects/"+objectFileName(n.Name, "html")] = page
	}

	data := indexPage{
		Title:    "Package " + pg.Package,
		Summary:  paragraphs(docs.Overview),
		Diagram:  opts.DiagramFile,
		Problems: problemList(pg.Errors(), docs.Errors),
	}
	if pg.NodeCount() == 0 {
		data.Intro = "Documentation could not be built: no documentable objects were discovered."
	}
	for _, c := range pg.Clusters {
		section := clusterSection{
			Title:   c.DisplayName(),
			Summary: paragraphs(docs.Clusters[c.ID]),
		}
		for _, name := range c.Order {
			n, ok := pg.Node(name)
			if !ok {
				continue
			}
			section.Objects = append(section.Objects, objectRow{
				Name: n.Name,
				File: objectFileName(n.Name, "html"),
				Type: typeLabel(n.Type),
			})
		}
		data.Clusters = append(data.Clusters, section)
	}
	for _, ext := range pg.External {
		data.Externals = append(data.Externals, externalRow{
			From:     ext.From,
			FromFile: objectFileName(ext.From, "html"),
			To:       ext.To,
			Type:     typeLabel(ext.Type),
			Members:  memberList(ext.Members, 4),
		})
	}

	idx, err := renderPage("index.html.tmpl", data)
	if err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}
	out["index.html"] = idx
	return out, nil
}

func objectPageData(g *graph.Graph, n *graph.Node, docs *Docs, externals []*graph.ExternalDependency) objectPage {
	page := objectPage{
		Name:    n.Name,
		Badges:  []string{typeLabel(n.Type)},
		Summary: paragraphs(docs.Objects[n.Name]),
	}
	if n.Custom {
		page.Badges = append(page.Badges, "custom")
	} else {
		page.Badges = append(page.Badges, "SAP-delivered")
	}
	if !n.SourceAvailable {
		page.Badges = append(page.Badges, "source not analyzed")
	}
	for _, e := range g.Edges() {
		if e.From != n.Name {
			continue
		}
		row := depRow{Name: e.To, Type: "unknown", Members: memberList(e.Members, 4)}
		if target, ok := g.Node(e.To); ok {
			row.File = objectFileName(e.To, "html")
			row.Type = typeLabel(target.Type)
		}
		page.Deps = append(page.Deps, row)
	}
	for _, ext := range externals {
		page.Externals = append(page.Externals, depRow{
			Name:    ext.To,
			Type:    typeLabel(ext.Type),
			Members: memberList(ext.Members, 4),
		})
	}
	for _, user := range n.UsedBy {
		page.UsedBy = append(page.UsedBy, objectRow{Name: user, File: objectFileName(user, "html")})
	}
	return page
}

func renderPage(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func problemList(graphErrs, docErrs []string) []string {
	out := make([]string, 0, len(graphErrs)+len(docErrs))
	out = append(out, graphErrs...)
	return append(out, docErrs...)
}

// paragraphs splits summary text on blank lines; templates escape each
// block into its own <p>.
func paragraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			out = append(out, strings.ReplaceAll(block, "\n", " "))
		}
	}
	return out
}
