package graph

import (
	"errors"
	"testing"

	"github.com/abapdoc/abapdoc/pkg/abap"
)

func TestGraph_AddNodeNormalizesNames(t *testing.T) {
	g := New("zcl_root")

	if err := g.AddNode(&Node{Name: "zcl_root", Type: abap.TypeClass}); err != nil {
		t.Fatalf("AddNode() error = %v", err)
	}

	if g.Root() != "ZCL_ROOT" {
		t.Errorf("Root() = %q, want ZCL_ROOT", g.Root())
	}
	if _, ok := g.Node("ZCL_ROOT"); !ok {
		t.Error("Node(ZCL_ROOT) not found after adding lowercase name")
	}
	if _, ok := g.Node("zcl_root"); !ok {
		t.Error("Node(zcl_root) lookup should normalize")
	}
}

func TestGraph_AddNodeErrors(t *testing.T) {
	g := New("ZCL_ROOT")

	if err := g.AddNode(&Node{Name: ""}); !errors.Is(err, ErrEmptyNodeName) {
		t.Errorf("AddNode(empty) error = %v, want ErrEmptyNodeName", err)
	}
	if err := g.AddNode(&Node{Name: "ZCL_A"}); err != nil {
		t.Fatalf("AddNode() error = %v", err)
	}
	if err := g.AddNode(&Node{Name: "zcl_a"}); !errors.Is(err, ErrDuplicateNode) {
		t.Errorf("AddNode(duplicate) error = %v, want ErrDuplicateNode", err)
	}
}

func TestGraph_AddEdgeErrors(t *testing.T) {
	g := New("ZCL_A")
	g.AddNode(&Node{Name: "ZCL_A"})
	g.AddNode(&Node{Name: "ZCL_B"})

	if err := g.AddEdge("ZCL_X", "ZCL_B", nil); !errors.Is(err, ErrUnknownSourceNode) {
		t.Errorf("AddEdge(unknown from) error = %v, want ErrUnknownSourceNode", err)
	}
	if err := g.AddEdge("ZCL_A", "ZCL_X", nil); !errors.Is(err, ErrUnknownTargetNode) {
		t.Errorf("AddEdge(unknown to) error = %v, want ErrUnknownTargetNode", err)
	}
	if err := g.AddEdge("ZCL_A", "zcl_a", nil); !errors.Is(err, ErrSelfEdge) {
		t.Errorf("AddEdge(self) error = %v, want ErrSelfEdge", err)
	}
}

func TestGraph_AddEdgeMergesMembers(t *testing.T) {
	g := New("ZCL_A")
	g.AddNode(&Node{Name: "ZCL_A"})
	g.AddNode(&Node{Name: "ZCL_B"})

	first := []abap.MemberRef{{Name: "RUN", Kind: abap.MemberMethod, Line: 10}}
	second := []abap.MemberRef{
		{Name: "RUN", Kind: abap.MemberMethod, Line: 20}, // duplicate, different line
		{Name: "C_MODE", Kind: abap.MemberConstant, Line: 21},
	}
	if err := g.AddEdge("ZCL_A", "ZCL_B", first); err != nil {
		t.Fatalf("AddEdge() error = %v", err)
	}
	if err := g.AddEdge("ZCL_A", "ZCL_B", second); err != nil {
		t.Fatalf("AddEdge() error = %v", err)
	}

	if g.EdgeCount() != 1 {
		t.Fatalf("EdgeCount() = %d, want 1", g.EdgeCount())
	}
	e, ok := g.Edge("ZCL_A", "ZCL_B")
	if !ok {
		t.Fatal("Edge(ZCL_A, ZCL_B) not found")
	}
	if len(e.Members) != 2 {
		t.Errorf("len(Members) = %d, want 2", len(e.Members))
	}
	if e.Members[0].Line != 10 {
		t.Errorf("Members[0].Line = %d, want 10 (first reference wins)", e.Members[0].Line)
	}
}

func TestGraph_RebuildUsedBy(t *testing.T) {
	g := New("ZCL_A")
	for _, name := range []string{"ZCL_A", "ZCL_B", "ZCL_C"} {
		g.AddNode(&Node{Name: name})
	}
	g.AddEdge("ZCL_A", "ZCL_C", nil)
	g.AddEdge("ZCL_B", "ZCL_C", nil)
	g.AddEdge("ZCL_A", "ZCL_B", nil)

	// Seed a stale entry to prove the rebuild clears it.
	if n, ok := g.Node("ZCL_A"); ok {
		n.UsedBy = []string{"ZCL_STALE"}
	}
	g.RebuildUsedBy()

	c, _ := g.Node("ZCL_C")
	if !sameStringSet(c.UsedBy, []string{"ZCL_A", "ZCL_B"}) {
		t.Errorf("ZCL_C.UsedBy = %v, want {ZCL_A, ZCL_B}", c.UsedBy)
	}
	b, _ := g.Node("ZCL_B")
	if !sameStringSet(b.UsedBy, []string{"ZCL_A"}) {
		t.Errorf("ZCL_B.UsedBy = %v, want {ZCL_A}", b.UsedBy)
	}
	a, _ := g.Node("ZCL_A")
	if len(a.UsedBy) != 0 {
		t.Errorf("ZCL_A.UsedBy = %v, want empty", a.UsedBy)
	}

	if err := g.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestGraph_ValidateDetectsStaleUsedBy(t *testing.T) {
	g := New("ZCL_A")
	g.AddNode(&Node{Name: "ZCL_A"})
	g.AddNode(&Node{Name: "ZCL_B"})
	g.AddEdge("ZCL_A", "ZCL_B", nil)

	// UsedBy never rebuilt.
	if err := g.Validate(); !errors.Is(err, ErrUsedByMismatch) {
		t.Errorf("Validate() error = %v, want ErrUsedByMismatch", err)
	}
}

func TestGraph_InsertionOrderIsStable(t *testing.T) {
	g := New("ZCL_Z")
	names := []string{"ZCL_Z", "ZCL_M", "ZCL_A"}
	for _, name := range names {
		g.AddNode(&Node{Name: name})
	}

	got := g.NodeNames()
	for i, want := range names {
		if got[i] != want {
			t.Errorf("NodeNames()[%d] = %q, want %q", i, got[i], want)
		}
	}
}

func TestGraph_EmptyGraphIsValid(t *testing.T) {
	g := New("ZCL_MISSING")

	if g.NodeCount() != 0 || g.EdgeCount() != 0 {
		t.Errorf("empty graph has %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}
