package docgen

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/abapdoc/abapdoc/pkg/abap"
	"github.com/abapdoc/abapdoc/pkg/cache"
	"github.com/abapdoc/abapdoc/pkg/graph"
)

// recordingGenerator replies based on the first prompt line and keeps
// every prompt it saw. Object prompts start with the object name,
// cluster prompts with the group size, overview prompts with
// "Write the introduction".
type recordingGenerator struct {
	responses map[string]string // first-line fragment -> reply
	errFor    map[string]error  // first-line fragment -> failure
	fallback  string
	prompts   []string
}

func (g *recordingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	first, _, _ := strings.Cut(strings.TrimSpace(prompt), "\n")
	for frag, err := range g.errFor {
		if strings.Contains(first, frag) {
			return "", err
		}
	}
	for frag, resp := range g.responses {
		if strings.Contains(first, frag) {
			return resp, nil
		}
	}
	return g.fallback, nil
}

// promptFor returns the recorded prompt whose first line mentions the
// given fragment.
func (g *recordingGenerator) promptFor(fragment string) string {
	for _, p := range g.prompts {
		first, _, _ := strings.Cut(strings.TrimSpace(p), "\n")
		if strings.Contains(first, fragment) {
			return p
		}
	}
	return ""
}

// slowGenerator waits before answering, honoring cancellation.
type slowGenerator struct {
	delay time.Duration
}

func (g slowGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	select {
	case <-time.After(g.delay):
		return "too late", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestSummarizeGraphBottomUp(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g := testDocGraph(t)
	gen := &recordingGenerator{responses: map[string]string{
		"ZCL_UTIL": "Utility helpers for string handling.",
		"ZCL_APP":  "Application entry point.",
	}}
	s := NewSummarizer(gen, nil, nil, Options{})

	docs := s.SummarizeGraph(ctx, g, map[string]string{
		"ZCL_APP":  "class zcl_app definition.",
		"ZCL_UTIL": "class zcl_util definition.",
	})

	if got := docs.Objects["ZCL_UTIL"]; got != "Utility helpers for string handling." {
		t.Errorf("Objects[ZCL_UTIL] = %q, want the generated summary", got)
	}
	if got := docs.Objects["ZCL_APP"]; got != "Application entry point." {
		t.Errorf("Objects[ZCL_APP] = %q, want the generated summary", got)
	}
	if len(gen.prompts) != 2 {
		t.Fatalf("generator saw %d prompts, want 2", len(gen.prompts))
	}

	// Leaves first: the dependency is summarized before its user, and
	// its finished summary is embedded in the user's prompt.
	if first, _, _ := strings.Cut(gen.prompts[0], "\n"); !strings.Contains(first, "ZCL_UTIL") {
		t.Errorf("first prompt documents %q, want ZCL_UTIL", first)
	}
	appPrompt := gen.promptFor("ZCL_APP")
	if !strings.Contains(appPrompt, "Utility helpers for string handling.") {
		t.Error("dependent prompt does not embed the dependency summary")
	}
	if !strings.Contains(appPrompt, "GET (method)") {
		t.Error("dependent prompt does not mention the used members")
	}
	utilPrompt := gen.promptFor("ZCL_UTIL")
	if !strings.Contains(utilPrompt, "used by ZCL_APP") {
		t.Error("dependency prompt does not mention its users")
	}

	if docs.Stats.Generated != 2 || docs.Stats.Cached != 0 || docs.Stats.Skeletons != 0 {
		t.Errorf("Stats = %+v, want 2 generated", docs.Stats)
	}
	if len(docs.Errors) != 0 {
		t.Errorf("Errors = %v, want none", docs.Errors)
	}
}

func TestSummarizeGraphWithoutGenerator(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g := testDocGraph(t)
	s := NewSummarizer(nil, nil, nil, Options{})

	docs := s.SummarizeGraph(ctx, g, map[string]string{"ZCL_APP": "class zcl_app definition."})

	if docs.Stats.Skeletons != 2 || docs.Stats.Generated != 0 {
		t.Errorf("Stats = %+v, want 2 skeletons", docs.Stats)
	}
	util := docs.Objects["ZCL_UTIL"]
	if !strings.Contains(util, "ZCL_UTIL is a custom ABAP class.") {
		t.Errorf("skeleton = %q, want name and category", util)
	}
	if !strings.Contains(util, "used by ZCL_APP") {
		t.Errorf("skeleton = %q, want the users listed", util)
	}
	app := docs.Objects["ZCL_APP"]
	if !strings.Contains(app, "It references ZCL_UTIL.") {
		t.Errorf("skeleton = %q, want the dependencies listed", app)
	}
}

func TestSummarizeGraphSkipsSourcelessObjects(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g := graph.New("ZCL_APP")
	addDocNode(t, g, &graph.Node{Name: "ZCL_APP", Type: abap.TypeClass, Custom: true, SourceAvailable: true})
	addDocNode(t, g, &graph.Node{Name: "CL_SALV_TABLE", Type: abap.TypeClass})
	addDocEdge(t, g, "ZCL_APP", "CL_SALV_TABLE", nil)
	g.RebuildUsedBy()
	g.OrderedNames()

	gen := &recordingGenerator{fallback: "Generated summary."}
	s := NewSummarizer(gen, nil, nil, Options{})

	docs := s.SummarizeGraph(ctx, g, map[string]string{"ZCL_APP": "class zcl_app definition."})

	if len(gen.prompts) != 1 {
		t.Fatalf("generator saw %d prompts, want 1 (no source, no call)", len(gen.prompts))
	}
	salv := docs.Objects["CL_SALV_TABLE"]
	if !strings.Contains(salv, "an SAP-delivered ABAP class") {
		t.Errorf("skeleton = %q, want SAP-delivered category", salv)
	}
	if !strings.Contains(salv, "source was not analyzed") {
		t.Errorf("skeleton = %q, want the missing source mentioned", salv)
	}
	if docs.Stats.Generated != 1 || docs.Stats.Skeletons != 1 {
		t.Errorf("Stats = %+v, want 1 generated and 1 skeleton", docs.Stats)
	}
}

func TestSummarizeGraphFailureFallsBack(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g := testDocGraph(t)
	gen := &recordingGenerator{
		fallback: "Generated summary.",
		errFor:   map[string]error{"ZCL_UTIL": errors.New("model overloaded")},
	}
	s := NewSummarizer(gen, nil, nil, Options{})

	docs := s.SummarizeGraph(ctx, g, map[string]string{
		"ZCL_APP":  "class zcl_app definition.",
		"ZCL_UTIL": "class zcl_util definition.",
	})

	if len(docs.Errors) != 1 {
		t.Fatalf("Errors = %v, want exactly one", docs.Errors)
	}
	if !strings.Contains(docs.Errors[0], "summarize ZCL_UTIL") || !strings.Contains(docs.Errors[0], "model overloaded") {
		t.Errorf("Errors[0] = %q, want object name and cause", docs.Errors[0])
	}
	if !strings.Contains(docs.Objects["ZCL_UTIL"], "ZCL_UTIL is a custom ABAP class.") {
		t.Errorf("Objects[ZCL_UTIL] = %q, want a skeleton fallback", docs.Objects["ZCL_UTIL"])
	}
	if docs.Objects["ZCL_APP"] != "Generated summary." {
		t.Errorf("Objects[ZCL_APP] = %q, the failure must not spread", docs.Objects["ZCL_APP"])
	}
	if docs.Stats.Generated != 1 || docs.Stats.Skeletons != 1 {
		t.Errorf("Stats = %+v, want 1 generated and 1 skeleton", docs.Stats)
	}
}

func TestSummarizeGraphEmptyReplyIsError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g := graph.New("ZCL_APP")
	addDocNode(t, g, &graph.Node{Name: "ZCL_APP", Type: abap.TypeClass, Custom: true, SourceAvailable: true})
	g.OrderedNames()

	gen := &recordingGenerator{fallback: "   "}
	s := NewSummarizer(gen, nil, nil, Options{})

	docs := s.SummarizeGraph(ctx, g, map[string]string{"ZCL_APP": "class zcl_app definition."})
	if len(docs.Errors) != 1 || !strings.Contains(docs.Errors[0], "empty text") {
		t.Errorf("Errors = %v, want one empty-text failure", docs.Errors)
	}
	if docs.Stats.Skeletons != 1 {
		t.Errorf("Stats = %+v, want the skeleton fallback", docs.Stats)
	}
}

func TestSummarizeGraphTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g := testDocGraph(t)
	s := NewSummarizer(slowGenerator{delay: 200 * time.Millisecond}, nil, nil, Options{
		Timeout: 20 * time.Millisecond,
	})

	docs := s.SummarizeGraph(ctx, g, map[string]string{
		"ZCL_APP":  "class zcl_app definition.",
		"ZCL_UTIL": "class zcl_util definition.",
	})

	if len(docs.Errors) != 2 {
		t.Fatalf("Errors = %v, want two timeouts", docs.Errors)
	}
	for _, e := range docs.Errors {
		if !strings.Contains(e, context.DeadlineExceeded.Error()) {
			t.Errorf("error %q, want a deadline failure", e)
		}
	}
	if docs.Stats.Skeletons != 2 {
		t.Errorf("Stats = %+v, want skeleton fallbacks", docs.Stats)
	}
}

func TestSummarizeGraphCaching(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	sources := map[string]string{
		"ZCL_APP":  "class zcl_app definition.",
		"ZCL_UTIL": "class zcl_util definition.",
	}

	gen1 := &recordingGenerator{fallback: "First run summary."}
	first := NewSummarizer(gen1, c, nil, Options{}).SummarizeGraph(ctx, testDocGraph(t), sources)
	if first.Stats.Generated != 2 || first.Stats.Cached != 0 {
		t.Fatalf("first run Stats = %+v, want 2 generated", first.Stats)
	}

	// Same cache, fresh generator: everything must come from the cache
	// without a single generator call.
	gen2 := &recordingGenerator{fallback: "SECOND RUN"}
	second := NewSummarizer(gen2, c, nil, Options{}).SummarizeGraph(ctx, testDocGraph(t), sources)
	if second.Stats.Cached != 2 || second.Stats.Generated != 0 {
		t.Errorf("second run Stats = %+v, want 2 cached", second.Stats)
	}
	if len(gen2.prompts) != 0 {
		t.Errorf("second run called the generator %d times, want 0", len(gen2.prompts))
	}
	if second.Objects["ZCL_APP"] != first.Objects["ZCL_APP"] {
		t.Errorf("cached summary = %q, want %q", second.Objects["ZCL_APP"], first.Objects["ZCL_APP"])
	}

	// Refresh bypasses the cache.
	gen3 := &recordingGenerator{fallback: "THIRD RUN"}
	third := NewSummarizer(gen3, c, nil, Options{Refresh: true}).SummarizeGraph(ctx, testDocGraph(t), sources)
	if third.Stats.Generated != 2 {
		t.Errorf("refresh run Stats = %+v, want 2 generated", third.Stats)
	}
	if third.Objects["ZCL_APP"] != "THIRD RUN" {
		t.Errorf("refresh summary = %q, want the fresh text", third.Objects["ZCL_APP"])
	}
}

func TestSummarizeGraphChangedSourceMissesCache(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}

	g := graph.New("ZCL_APP")
	addDocNode(t, g, &graph.Node{Name: "ZCL_APP", Type: abap.TypeClass, Custom: true, SourceAvailable: true})
	g.OrderedNames()

	gen := &recordingGenerator{fallback: "Summary."}
	s := NewSummarizer(gen, c, nil, Options{})
	s.SummarizeGraph(ctx, g, map[string]string{"ZCL_APP": "version one."})
	docs := s.SummarizeGraph(ctx, g, map[string]string{"ZCL_APP": "version two."})

	if docs.Stats.Generated != 1 || docs.Stats.Cached != 0 {
		t.Errorf("Stats = %+v, want a fresh generation after the source changed", docs.Stats)
	}
}

func TestSummarizePackageClusters(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pg := testDocPackage(t)
	gen := &recordingGenerator{
		responses: map[string]string{
			"ZCL_A":              "Order API facade.",
			"ZCL_B":              "Order persistence.",
			"group of 2 objects": "Order Processing\n\nHandles the order lifecycle.",
			"introduction":       "The package manages orders.",
		},
	}
	s := NewSummarizer(gen, nil, nil, Options{})

	docs := s.SummarizePackage(ctx, pg, map[string]string{
		"ZCL_A": "class zcl_a definition.",
		"ZCL_B": "class zcl_b definition.",
	})

	if got := docs.Clusters[1]; got != "Handles the order lifecycle." {
		t.Errorf("Clusters[1] = %q, want the summary without the name line", got)
	}
	if got := pg.Clusters[0].DisplayName(); got != "Order Processing" {
		t.Errorf("DisplayName() = %q, want the name from the reply", got)
	}
	if got := docs.Clusters[2]; got != "2 objects without dependencies inside the package." {
		t.Errorf("Clusters[2] = %q, want the fixed standalone text", got)
	}
	if docs.Overview != "The package manages orders." {
		t.Errorf("Overview = %q, want the generated text", docs.Overview)
	}

	clusterPrompt := gen.promptFor("group of 2 objects")
	if !strings.Contains(clusterPrompt, "ZCL_A: Order API facade.") {
		t.Error("cluster prompt does not embed the member summaries")
	}
	overviewPrompt := gen.promptFor("introduction")
	if !strings.Contains(overviewPrompt, "Order Processing (2 objects)") {
		t.Error("overview prompt does not use the assigned cluster name")
	}

	// Objects without source stay skeletons; the standalone group is
	// never sent to the generator.
	if len(gen.prompts) != 4 {
		t.Errorf("generator saw %d prompts, want 4 (two objects, one cluster, one overview)", len(gen.prompts))
	}
	if docs.Stats.Generated != 4 || docs.Stats.Skeletons != 2 {
		t.Errorf("Stats = %+v, want 4 generated and 2 skeletons", docs.Stats)
	}
}

func TestSummarizePackageUnnamedClusterReply(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pg := testDocPackage(t)
	gen := &recordingGenerator{
		fallback: "Object summary.",
		responses: map[string]string{
			"group of 2 objects": "Handles the order lifecycle without a name line.",
		},
	}
	s := NewSummarizer(gen, nil, nil, Options{})

	docs := s.SummarizePackage(ctx, pg, map[string]string{
		"ZCL_A": "class zcl_a definition.",
		"ZCL_B": "class zcl_b definition.",
	})

	if got := pg.Clusters[0].DisplayName(); got != "Cluster 1" {
		t.Errorf("DisplayName() = %q, want the numbered fallback", got)
	}
	if got := docs.Clusters[1]; got != "Handles the order lifecycle without a name line." {
		t.Errorf("Clusters[1] = %q, want the reply kept as-is", got)
	}
}

func TestSummarizePackageClusterFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pg := testDocPackage(t)
	gen := &recordingGenerator{
		fallback: "Object summary.",
		errFor:   map[string]error{"group of 2 objects": errors.New("model overloaded")},
	}
	s := NewSummarizer(gen, nil, nil, Options{})

	docs := s.SummarizePackage(ctx, pg, map[string]string{
		"ZCL_A": "class zcl_a definition.",
		"ZCL_B": "class zcl_b definition.",
	})

	if len(docs.Errors) != 1 || !strings.Contains(docs.Errors[0], "summarize cluster 1") {
		t.Fatalf("Errors = %v, want one cluster failure", docs.Errors)
	}
	if !strings.Contains(docs.Clusters[1], "A group of 2 objects") {
		t.Errorf("Clusters[1] = %q, want the skeleton fallback", docs.Clusters[1])
	}
	if docs.Overview == "" {
		t.Error("Overview is empty, the cluster failure must not stop the run")
	}
}

func TestSummarizePackageWithoutClusters(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pg := graph.NewPackageGraph("zpkg")
	addDocNode(t, pg.Graph, &graph.Node{Name: "ZCL_A", Type: abap.TypeClass, Custom: true, SourceAvailable: true})
	addDocNode(t, pg.Graph, &graph.Node{Name: "ZCL_B", Type: abap.TypeClass, Custom: true, SourceAvailable: true})
	addDocEdge(t, pg.Graph, "ZCL_A", "ZCL_B", nil)
	pg.RebuildUsedBy()
	pg.OrderedNames()

	gen := &recordingGenerator{fallback: "Object summary."}
	s := NewSummarizer(gen, nil, nil, Options{})

	docs := s.SummarizePackage(ctx, pg, map[string]string{
		"ZCL_A": "class zcl_a definition.",
		"ZCL_B": "class zcl_b definition.",
	})

	if len(docs.Objects) != 2 {
		t.Errorf("Objects has %d entries, want 2 without cluster detection", len(docs.Objects))
	}
	if !strings.Contains(docs.Overview, "Package ZPKG contains 2 objects") {
		t.Errorf("Overview = %q, want the skeleton overview", docs.Overview)
	}
}

// testDocGraph builds ZCL_APP -> ZCL_UTIL with rebuilt used-by lists
// and a stored topological order.
func testDocGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New("ZCL_APP")
	addDocNode(t, g, &graph.Node{Name: "ZCL_APP", Type: abap.TypeClass, Custom: true, SourceAvailable: true})
	addDocNode(t, g, &graph.Node{Name: "ZCL_UTIL", Type: abap.TypeClass, Custom: true, SourceAvailable: true})
	addDocEdge(t, g, "ZCL_APP", "ZCL_UTIL", []abap.MemberRef{{Name: "GET", Kind: abap.MemberMethod}})
	g.RebuildUsedBy()
	g.OrderedNames()
	return g
}

// testDocPackage builds a package with one real cluster (ZCL_A ->
// ZCL_B) and two standalone objects without sources.
func testDocPackage(t *testing.T) *graph.PackageGraph {
	t.Helper()
	pg := graph.NewPackageGraph("zpkg")
	addDocNode(t, pg.Graph, &graph.Node{Name: "ZCL_A", Type: abap.TypeClass, Custom: true, SourceAvailable: true})
	addDocNode(t, pg.Graph, &graph.Node{Name: "ZCL_B", Type: abap.TypeClass, Custom: true, SourceAvailable: true})
	addDocNode(t, pg.Graph, &graph.Node{Name: "ZCL_LONE", Type: abap.TypeClass, Custom: true})
	addDocNode(t, pg.Graph, &graph.Node{Name: "ZTAB_CFG", Type: abap.TypeTable, Custom: true})
	addDocEdge(t, pg.Graph, "ZCL_A", "ZCL_B", nil)
	pg.RebuildUsedBy()
	pg.OrderedNames()
	if err := pg.DetectClusters(); err != nil {
		t.Fatalf("DetectClusters() error = %v", err)
	}
	return pg
}

func addDocNode(t *testing.T, g *graph.Graph, n *graph.Node) {
	t.Helper()
	if err := g.AddNode(n); err != nil {
		t.Fatalf("AddNode(%s) error = %v", n.Name, err)
	}
}

func addDocEdge(t *testing.T, g *graph.Graph, from, to string, members []abap.MemberRef) {
	t.Helper()
	if err := g.AddEdge(from, to, members); err != nil {
		t.Fatalf("AddEdge(%s, %s) error = %v", from, to, err)
	}
}
