package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/abapdoc/abapdoc/pkg/abap"
	"github.com/abapdoc/abapdoc/pkg/cache"
	"github.com/abapdoc/abapdoc/pkg/depgraph"
	"github.com/abapdoc/abapdoc/pkg/docgen"
)

// mockFetcher serves source text from a fixed map and records every
// call. Per-name errors take precedence over the map.
type mockFetcher struct {
	sources  map[string]string
	fetchErr map[string]error
	calls    []string
}

func (m *mockFetcher) FetchSource(ctx context.Context, name string, objType abap.ObjectType, refresh bool) (string, error) {
	m.calls = append(m.calls, name)
	if err, ok := m.fetchErr[name]; ok {
		return "", err
	}
	src, ok := m.sources[name]
	if !ok {
		return "", fmt.Errorf("%s: %w", name, cache.ErrNotFound)
	}
	return src, nil
}

// mockResolver resolves types from a fixed map. Names without an entry
// report cache.ErrNotFound, like the repository search.
type mockResolver struct {
	types map[string]abap.ObjectType
}

func (m *mockResolver) ResolveType(ctx context.Context, name string, refresh bool) (abap.ObjectType, error) {
	t, ok := m.types[name]
	if !ok {
		return abap.TypeUnknown, fmt.Errorf("%s: %w", name, cache.ErrNotFound)
	}
	return t, nil
}

// mockLister serves package listings from a fixed map.
type mockLister struct {
	entries map[string][]depgraph.PackageEntry
}

func (m *mockLister) ListPackage(ctx context.Context, pkg string, refresh bool) ([]depgraph.PackageEntry, error) {
	entries, ok := m.entries[pkg]
	if !ok {
		return nil, fmt.Errorf("%s: %w", pkg, cache.ErrNotFound)
	}
	return entries, nil
}

func TestExecuteObjectRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, _ := newTestRunner(t, t.TempDir())
	defer r.Close()

	result, err := r.Execute(ctx, Options{
		Object:  "zcl_app",
		Formats: []string{FormatMarkdown, FormatJSON, FormatDOT},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if result.Graph == nil || result.PackageGraph != nil {
		t.Fatal("Execute() should populate Graph and leave PackageGraph nil")
	}
	if result.Stats.NodeCount != 2 || result.Stats.EdgeCount != 1 {
		t.Errorf("Stats = %d nodes, %d edges, want 2 nodes, 1 edge",
			result.Stats.NodeCount, result.Stats.EdgeCount)
	}
	if result.RunID == "" {
		t.Error("RunID is empty")
	}
	if len(result.GraphHash) != 64 {
		t.Errorf("GraphHash = %q, want 64 hex chars", result.GraphHash)
	}
	if result.CacheInfo.GraphHit {
		t.Error("CacheInfo.GraphHit = true on first run, want false")
	}
	if result.Docs.Stats.Skeletons != 2 {
		t.Errorf("Docs.Stats.Skeletons = %d, want 2 without generator", result.Docs.Stats.Skeletons)
	}

	for _, path := range []string{
		"README.md", "objects/ZCL_APP.md", "objects/ZCL_UTIL.md",
		"graph.json", "graph.dot", "run.json",
	} {
		if _, ok := result.Artifacts[path]; !ok {
			t.Errorf("Artifacts missing %q (have %v)", path, artifactPaths(result))
		}
	}
	if len(result.Artifacts) != 6 {
		t.Errorf("Artifacts has %d entries, want 6: %v", len(result.Artifacts), artifactPaths(result))
	}

	readme := string(result.Artifacts["README.md"])
	if !strings.Contains(readme, "# ZCL_APP") {
		t.Errorf("README.md missing title, got:\n%s", readme)
	}
	if !strings.Contains(readme, "ZCL_APP is a custom ABAP class.") {
		t.Errorf("README.md missing skeleton summary, got:\n%s", readme)
	}
	if dot := string(result.Artifacts["graph.dot"]); !strings.Contains(dot, `"ZCL_APP" -> "ZCL_UTIL"`) {
		t.Errorf("graph.dot missing edge, got:\n%s", dot)
	}
	if doc := string(result.Artifacts["graph.json"]); !strings.Contains(doc, `"root": "ZCL_APP"`) {
		t.Errorf("graph.json missing root, got:\n%s", doc)
	}

	var m struct {
		RunID   string   `json:"run_id"`
		Object  string   `json:"object"`
		Nodes   int      `json:"nodes"`
		Formats []string `json:"formats"`
	}
	if err := json.Unmarshal(result.Artifacts["run.json"], &m); err != nil {
		t.Fatalf("run.json does not decode: %v", err)
	}
	if m.RunID != result.RunID {
		t.Errorf("run.json run_id = %q, want %q", m.RunID, result.RunID)
	}
	if m.Object != "ZCL_APP" || m.Nodes != 2 || len(m.Formats) != 3 {
		t.Errorf("run.json = %+v, want object ZCL_APP, 2 nodes, 3 formats", m)
	}
}

func TestExecuteObjectRunUsesGraphCache(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dir := t.TempDir()
	opts := Options{Object: "ZCL_APP"}

	r1, _ := newTestRunner(t, dir)
	first, err := r1.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}
	r1.Close()

	r2, fetcher2 := newTestRunner(t, dir)
	defer r2.Close()
	second, err := r2.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}

	if !second.CacheInfo.GraphHit {
		t.Error("second run GraphHit = false, want true")
	}
	if second.GraphHash != first.GraphHash {
		t.Errorf("GraphHash changed across cache round trip: %q vs %q",
			first.GraphHash, second.GraphHash)
	}
	// Discovery was served from cache; only the summarize stage
	// refetches the two sources.
	if len(fetcher2.calls) != 2 {
		t.Errorf("second run fetched %d times (%v), want 2", len(fetcher2.calls), fetcher2.calls)
	}
}

func TestExecuteRefreshRebuildsGraph(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dir := t.TempDir()
	r1, _ := newTestRunner(t, dir)
	if _, err := r1.Execute(ctx, Options{Object: "ZCL_APP"}); err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}
	r1.Close()

	r2, fetcher2 := newTestRunner(t, dir)
	defer r2.Close()
	result, err := r2.Execute(ctx, Options{Object: "ZCL_APP", Refresh: true})
	if err != nil {
		t.Fatalf("refresh Execute() error = %v", err)
	}
	if result.CacheInfo.GraphHit {
		t.Error("refresh run GraphHit = true, want false")
	}
	// Build fetches both sources again, then summarize refetches them.
	if len(fetcher2.calls) != 4 {
		t.Errorf("refresh run fetched %d times (%v), want 4", len(fetcher2.calls), fetcher2.calls)
	}
}

func TestExecuteWithGenerator(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, _ := newTestRunner(t, t.TempDir())
	defer r.Close()

	result, err := r.Execute(ctx, Options{
		Object:    "ZCL_APP",
		Generator: docgen.Static{Response: "Coordinates the order flow."},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if result.Docs.Stats.Generated != 2 {
		t.Errorf("Docs.Stats.Generated = %d, want 2", result.Docs.Stats.Generated)
	}
	if got := result.Docs.Objects["ZCL_APP"]; got != "Coordinates the order flow." {
		t.Errorf("Objects[ZCL_APP] = %q, want the generated text", got)
	}
	if readme := string(result.Artifacts["README.md"]); !strings.Contains(readme, "Coordinates the order flow.") {
		t.Errorf("README.md missing generated summary, got:\n%s", readme)
	}
}

func TestExecutePackageRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, _ := newTestRunner(t, t.TempDir())
	defer r.Close()

	result, err := r.Execute(ctx, Options{Package: "zpkg"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if result.PackageGraph == nil || result.Graph != nil {
		t.Fatal("Execute() should populate PackageGraph and leave Graph nil")
	}
	if result.Stats.NodeCount != 2 || result.Stats.EdgeCount != 1 {
		t.Errorf("Stats = %d nodes, %d edges, want 2 nodes, 1 edge",
			result.Stats.NodeCount, result.Stats.EdgeCount)
	}
	if len(result.PackageGraph.External) != 1 {
		t.Fatalf("External has %d entries, want 1", len(result.PackageGraph.External))
	}
	if ext := result.PackageGraph.External[0]; ext.To != "CL_ABAP_TYPEDESCR" {
		t.Errorf("External[0].To = %q, want CL_ABAP_TYPEDESCR", ext.To)
	}

	readme := string(result.Artifacts["README.md"])
	if !strings.Contains(readme, "# Package ZPKG") {
		t.Errorf("README.md missing package title, got:\n%s", readme)
	}
	if !strings.Contains(readme, "CL_ABAP_TYPEDESCR") {
		t.Errorf("README.md missing external dependency, got:\n%s", readme)
	}

	var m struct {
		Package string `json:"package"`
	}
	if err := json.Unmarshal(result.Artifacts["run.json"], &m); err != nil {
		t.Fatalf("run.json does not decode: %v", err)
	}
	if m.Package != "ZPKG" {
		t.Errorf("run.json package = %q, want ZPKG", m.Package)
	}
}

func TestExecutePackageRunRecordsProblems(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, fetcher := newTestRunner(t, t.TempDir())
	defer r.Close()
	fetcher.fetchErr = map[string]error{"ZCL_STORE": errors.New("backend busy")}

	result, err := r.Execute(ctx, Options{Package: "ZPKG"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	problems := result.Problems()
	var found bool
	for _, p := range problems {
		if strings.Contains(p, "ZCL_STORE") && strings.Contains(p, "backend busy") {
			found = true
		}
	}
	if !found {
		t.Errorf("Problems() = %v, want the ZCL_STORE fetch failure", problems)
	}

	// The object stays in the graph, edges to it included.
	node, ok := result.PackageGraph.Node("ZCL_STORE")
	if !ok {
		t.Fatal("ZCL_STORE missing from package graph")
	}
	if node.SourceAvailable {
		t.Error("ZCL_STORE SourceAvailable = true, want false after fetch failure")
	}
	if result.Stats.EdgeCount != 1 {
		t.Errorf("EdgeCount = %d, want 1", result.Stats.EdgeCount)
	}

	if readme := string(result.Artifacts["README.md"]); !strings.Contains(readme, "backend busy") {
		t.Errorf("README.md missing problems section, got:\n%s", readme)
	}
}

func TestExecutePackageListError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, _ := newTestRunner(t, t.TempDir())
	defer r.Close()

	_, err := r.Execute(ctx, Options{Package: "ZMISSING"})
	if err == nil {
		t.Fatal("Execute() error = nil, want root listing failure")
	}
	if !strings.Contains(err.Error(), "ZMISSING") {
		t.Errorf("Execute() error = %v, want mention of the package", err)
	}
}

func TestExecuteRootFetchError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, _ := newTestRunner(t, t.TempDir())
	defer r.Close()

	// A root whose fetch fails still produces a run: an empty graph,
	// the failure on Problems(), and a fallback index page.
	result, err := r.Execute(ctx, Options{Object: "ZCL_MISSING"})
	if err != nil {
		t.Fatalf("Execute() error = %v, want empty run", err)
	}
	if result.Stats.NodeCount != 0 || result.Stats.EdgeCount != 0 {
		t.Errorf("Stats = %d nodes, %d edges, want empty graph",
			result.Stats.NodeCount, result.Stats.EdgeCount)
	}

	problems := result.Problems()
	if len(problems) != 1 || !strings.Contains(problems[0], "ZCL_MISSING") {
		t.Errorf("Problems() = %v, want one entry naming ZCL_MISSING", problems)
	}

	readme := string(result.Artifacts["README.md"])
	if !strings.Contains(readme, "could not be built") {
		t.Errorf("README.md missing fallback text, got:\n%s", readme)
	}
	if !strings.Contains(readme, "ZCL_MISSING") {
		t.Errorf("README.md missing problem entry, got:\n%s", readme)
	}

	var m struct {
		Nodes    int      `json:"nodes"`
		Problems []string `json:"problems"`
	}
	if err := json.Unmarshal(result.Artifacts["run.json"], &m); err != nil {
		t.Fatalf("run.json does not decode: %v", err)
	}
	if m.Nodes != 0 || len(m.Problems) != 1 {
		t.Errorf("run.json = %+v, want 0 nodes and the fetch problem", m)
	}
}

func TestExecuteAuthFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, fetcher := newTestRunner(t, t.TempDir())
	defer r.Close()
	fetcher.fetchErr = map[string]error{
		"ZCL_APP": fmt.Errorf("%w: status 401", cache.ErrAuth),
	}

	_, err := r.Execute(ctx, Options{Object: "ZCL_APP"})
	if err == nil {
		t.Fatal("Execute() error = nil, want auth failure")
	}
	if !errors.Is(err, cache.ErrAuth) {
		t.Errorf("Execute() error = %v, want cache.ErrAuth", err)
	}
	if !strings.Contains(err.Error(), "discover:") {
		t.Errorf("Execute() error = %v, want discover stage prefix", err)
	}
}

func TestExecuteInvalidOptions(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, _ := newTestRunner(t, t.TempDir())
	defer r.Close()

	_, err := r.Execute(ctx, Options{})
	if err == nil || !strings.Contains(err.Error(), "invalid options") {
		t.Errorf("Execute() error = %v, want invalid options", err)
	}
}

func TestDiscoverModeMismatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, _ := newTestRunner(t, t.TempDir())
	defer r.Close()

	if _, err := r.Discover(ctx, Options{Package: "ZPKG"}); err == nil || !strings.Contains(err.Error(), "package run") {
		t.Errorf("Discover() with package options error = %v, want package run error", err)
	}
	if _, err := r.DiscoverPackage(ctx, Options{Object: "ZCL_APP"}); err == nil || !strings.Contains(err.Error(), "object run") {
		t.Errorf("DiscoverPackage() with object options error = %v, want object run error", err)
	}
}

func TestExecuteDiagramCaching(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dir := t.TempDir()
	opts := Options{Object: "ZCL_APP", Formats: []string{FormatSVG}}

	r1, _ := newTestRunner(t, dir)
	first, err := r1.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}
	r1.Close()
	if first.CacheInfo.RenderHit {
		t.Error("first run RenderHit = true, want false")
	}
	svg := first.Artifacts["graph.svg"]
	if !strings.Contains(string(svg), "<svg") {
		t.Fatalf("graph.svg does not look like SVG: %.80s", svg)
	}

	r2, _ := newTestRunner(t, dir)
	defer r2.Close()
	second, err := r2.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}
	if !second.CacheInfo.RenderHit {
		t.Error("second run RenderHit = false, want true")
	}
	if string(second.Artifacts["graph.svg"]) != string(svg) {
		t.Error("cached SVG differs from the rendered one")
	}
}

func TestRenderRequiresOneGraph(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, _ := newTestRunner(t, t.TempDir())
	defer r.Close()

	_, _, err := r.RenderWithCacheInfo(ctx, nil, nil, nil, Options{Formats: []string{FormatMarkdown}})
	if err == nil || !strings.Contains(err.Error(), "exactly one graph") {
		t.Errorf("RenderWithCacheInfo(nil, nil) error = %v, want exactly-one-graph error", err)
	}
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil)
	defer r.Close()

	if r.Cache == nil {
		t.Error("Cache = nil, want NullCache")
	}
	if r.Keyer == nil {
		t.Error("Keyer = nil, want DefaultKeyer")
	}
	if r.Logger == nil {
		t.Error("Logger = nil, want default logger")
	}
	if r.Fetcher != nil || r.Resolver != nil || r.Lister != nil {
		t.Error("backend collaborators should stay nil without a client")
	}
}

// Object world: ZCL_APP depends on ZCL_UTIL. Package world: ZPKG holds
// ZCL_ORDER and ZCL_STORE, with one external reference.

const appSource = `CLASS zcl_app DEFINITION PUBLIC FINAL CREATE PUBLIC.
  PUBLIC SECTION.
    METHODS run.
ENDCLASS.

CLASS zcl_app IMPLEMENTATION.
  METHOD run.
    DATA(lv_value) = zcl_util=>get( ).
  ENDMETHOD.
ENDCLASS.
`

const utilSource = `CLASS zcl_util DEFINITION PUBLIC FINAL CREATE PUBLIC.
  PUBLIC SECTION.
    CLASS-METHODS get RETURNING VALUE(rv_value) TYPE string.
ENDCLASS.

CLASS zcl_util IMPLEMENTATION.
  METHOD get.
    rv_value = 'configured'.
  ENDMETHOD.
ENDCLASS.
`

const orderSource = `CLASS zcl_order DEFINITION PUBLIC.
  PUBLIC SECTION.
    METHODS save.
ENDCLASS.

CLASS zcl_order IMPLEMENTATION.
  METHOD save.
    zcl_store=>put( me ).
    DATA(lo_descr) = cl_abap_typedescr=>describe_by_name( 'ZCL_ORDER' ).
  ENDMETHOD.
ENDCLASS.
`

const storeSource = `CLASS zcl_store DEFINITION PUBLIC.
  PUBLIC SECTION.
    CLASS-METHODS put IMPORTING io_order TYPE REF TO object.
ENDCLASS.

CLASS zcl_store IMPLEMENTATION.
  METHOD put.
  ENDMETHOD.
ENDCLASS.
`

// newTestRunner builds a Runner on a file cache in dir with fake ADT
// collaborators covering both test worlds.
func newTestRunner(t *testing.T, dir string) (*Runner, *mockFetcher) {
	t.Helper()

	c, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	fetcher := &mockFetcher{sources: map[string]string{
		"ZCL_APP":   appSource,
		"ZCL_UTIL":  utilSource,
		"ZCL_ORDER": orderSource,
		"ZCL_STORE": storeSource,
	}}
	resolver := &mockResolver{types: map[string]abap.ObjectType{
		"ZCL_APP":           abap.TypeClass,
		"ZCL_UTIL":          abap.TypeClass,
		"ZCL_ORDER":         abap.TypeClass,
		"ZCL_STORE":         abap.TypeClass,
		"CL_ABAP_TYPEDESCR": abap.TypeClass,
	}}
	lister := &mockLister{entries: map[string][]depgraph.PackageEntry{
		"ZPKG": {
			{Name: "ZCL_ORDER", Type: abap.TypeClass},
			{Name: "ZCL_STORE", Type: abap.TypeClass},
		},
	}}

	r := NewRunner(nil, c, nil, log.NewWithOptions(io.Discard, log.Options{}))
	r.Fetcher = fetcher
	r.Resolver = resolver
	r.Lister = lister
	return r, fetcher
}

func artifactPaths(result *Result) []string {
	paths := make([]string, 0, len(result.Artifacts))
	for p := range result.Artifacts {
		paths = append(paths, p)
	}
	return paths
}
