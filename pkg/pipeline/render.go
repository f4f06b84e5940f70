package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abapdoc/abapdoc/pkg/cache"
	"github.com/abapdoc/abapdoc/pkg/docgen"
	"github.com/abapdoc/abapdoc/pkg/graph"
	"github.com/abapdoc/abapdoc/pkg/observability"
	"github.com/abapdoc/abapdoc/pkg/render"
)

// Artifact paths for the run-level outputs. Per-object pages live
// under objects/ and are named by the docgen renderers. ManifestFile
// and GraphFile are exported because pkg/server locates runs by them.
const (
	ManifestFile = "run.json"
	GraphFile    = "graph.json"

	dotFile = "graph.dot"
	svgFile = "graph.svg"
	pngFile = "graph.png"
)

// RenderWithCacheInfo produces the artifacts for the requested formats
// and returns cache hit info. Exactly one of g and pg must be non-nil;
// docs may be nil when only graph formats are requested.
//
// Text formats (markdown, html, json, dot) are assembled fresh on every
// call. Diagram formats go through Graphviz and are cached under the
// content hash of their DOT input, which already encodes every option
// that changes the drawing.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *graph.Graph, pg *graph.PackageGraph, docs *docgen.Docs, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	if (g == nil) == (pg == nil) {
		return nil, false, errors.New("pipeline: render needs exactly one graph")
	}
	r.applyLogger(&opts)
	if docs == nil {
		docs = &docgen.Docs{}
	}

	var dot string
	if pg != nil {
		dot = render.PackageToDOT(pg, opts.renderOptions())
	} else {
		dot = render.ToDOT(g, opts.renderOptions())
	}
	dotHash := cache.Hash([]byte(dot))

	artifacts := make(map[string][]byte)
	docOpts := docgen.RenderOptions{DiagramFile: diagramFile(opts.Formats)}
	diagrams, diagramHits := 0, 0

	for _, format := range opts.Formats {
		switch format {
		case FormatMarkdown:
			if pg != nil {
				mergeArtifacts(artifacts, docgen.PackageMarkdown(pg, docs, docOpts))
			} else {
				mergeArtifacts(artifacts, docgen.Markdown(g, docs, docOpts))
			}

		case FormatHTML:
			var files map[string][]byte
			var err error
			if pg != nil {
				files, err = docgen.PackageHTML(pg, docs, docOpts)
			} else {
				files, err = docgen.HTML(g, docs, docOpts)
			}
			if err != nil {
				return nil, false, fmt.Errorf("render html: %w", err)
			}
			mergeArtifacts(artifacts, files)

		case FormatJSON:
			var data []byte
			var err error
			if pg != nil {
				data, err = graph.MarshalPackage(pg)
			} else {
				data, err = graph.Marshal(g)
			}
			if err != nil {
				return nil, false, fmt.Errorf("render json: %w", err)
			}
			artifacts[GraphFile] = data

		case FormatDOT:
			artifacts[dotFile] = []byte(dot)

		case FormatSVG, FormatPNG:
			data, hit, err := r.renderDiagram(ctx, dot, dotHash, format)
			if err != nil {
				return nil, false, fmt.Errorf("render %s: %w", format, err)
			}
			diagrams++
			if hit {
				diagramHits++
			}
			if format == FormatSVG {
				artifacts[svgFile] = data
			} else {
				artifacts[pngFile] = data
			}
		}
	}

	renderHit := diagrams > 0 && diagramHits == diagrams
	return artifacts, renderHit, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, g *graph.Graph, pg *graph.PackageGraph, docs *docgen.Docs, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, g, pg, docs, opts)
	return artifacts, err
}

// renderDiagram renders one Graphviz format, cached by the hash of the
// DOT text.
func (r *Runner) renderDiagram(ctx context.Context, dot, dotHash, format string) ([]byte, bool, error) {
	key := r.Keyer.ArtifactKey(dotHash, cache.ArtifactKeyOpts{Format: format})
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "diagram")
		return data, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, "diagram")

	var data []byte
	var err error
	switch format {
	case FormatSVG:
		data, err = render.RenderSVG(ctx, dot)
	case FormatPNG:
		data, err = render.RenderPNG(ctx, dot)
	default:
		return nil, false, fmt.Errorf("not a diagram format: %q", format)
	}
	if err != nil {
		return nil, false, err
	}
	_ = r.Cache.Set(ctx, key, data, cache.TTLArtifact)
	observability.Cache().OnCacheSet(ctx, "diagram", len(data))
	return data, false, nil
}

// diagramFile returns the diagram path the index pages should embed:
// the SVG when rendered, else the PNG, else nothing.
func diagramFile(formats []string) string {
	var png bool
	for _, f := range formats {
		switch f {
		case FormatSVG:
			return svgFile
		case FormatPNG:
			png = true
		}
	}
	if png {
		return pngFile
	}
	return ""
}

func mergeArtifacts(dst, src map[string][]byte) {
	for name, data := range src {
		dst[name] = data
	}
}

// Manifest is the run.json document written alongside the artifacts.
// It records what ran, when, and where the numbers landed, making a
// generated documentation directory self-describing.
type Manifest struct {
	RunID       string            `json:"run_id"`
	GeneratedAt string            `json:"generated_at"`
	Object      string            `json:"object,omitempty"`
	Package     string            `json:"package,omitempty"`
	GraphHash   string            `json:"graph_hash,omitempty"`
	Formats     []string          `json:"formats"`
	Nodes       int               `json:"nodes"`
	Edges       int               `json:"edges"`
	Summaries   ManifestSummaries `json:"summaries"`
	Durations   ManifestDurations `json:"durations"`
	Problems    []string          `json:"problems,omitempty"`
}

// ManifestSummaries counts how each object summary was produced.
type ManifestSummaries struct {
	Generated int `json:"generated"`
	Cached    int `json:"cached"`
	Skeletons int `json:"skeletons"`
}

// ManifestDurations holds per-stage wall times, rounded for reading.
type ManifestDurations struct {
	Discover  string `json:"discover"`
	Summarize string `json:"summarize"`
	Render    string `json:"render"`
}

func runManifest(result *Result, opts Options) ([]byte, error) {
	m := Manifest{
		RunID:       result.RunID,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Object:      opts.Object,
		Package:     opts.Package,
		GraphHash:   result.GraphHash,
		Formats:     opts.Formats,
		Nodes:       result.Stats.NodeCount,
		Edges:       result.Stats.EdgeCount,
		Problems:    result.Problems(),
		Durations: ManifestDurations{
			Discover:  result.Stats.DiscoverTime.Round(time.Millisecond).String(),
			Summarize: result.Stats.SummarizeTime.Round(time.Millisecond).String(),
			Render:    result.Stats.RenderTime.Round(time.Millisecond).String(),
		},
	}
	if result.Docs != nil {
		m.Summaries = ManifestSummaries{
			Generated: result.Docs.Stats.Generated,
			Cached:    result.Docs.Stats.Cached,
			Skeletons: result.Docs.Stats.Skeletons,
		}
	}
	return json.MarshalIndent(m, "", "  ")
}
