package graph

import "testing"

func edgesOf(pairs ...[2]string) []*Edge {
	out := make([]*Edge, len(pairs))
	for i, p := range pairs {
		out[i] = &Edge{From: p[0], To: p[1]}
	}
	return out
}

func assertOrder(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestTopologicalOrder_Chain(t *testing.T) {
	// A uses B, B uses C: leaves-first means C, B, A.
	names := []string{"A", "B", "C"}
	edges := edgesOf([2]string{"A", "B"}, [2]string{"B", "C"})

	assertOrder(t, TopologicalOrder(names, edges), []string{"C", "B", "A"})
}

func TestTopologicalOrder_Diamond(t *testing.T) {
	//   A
	//  / \
	// B   C
	//  \ /
	//   D
	names := []string{"A", "B", "C", "D"}
	edges := edgesOf(
		[2]string{"A", "B"}, [2]string{"A", "C"},
		[2]string{"B", "D"}, [2]string{"C", "D"},
	)

	assertOrder(t, TopologicalOrder(names, edges), []string{"D", "B", "C", "A"})
}

func TestTopologicalOrder_CycleMembersComeAfterOrderable(t *testing.T) {
	// A and B depend on each other; C is a plain leaf used by A.
	names := []string{"A", "B", "C"}
	edges := edgesOf(
		[2]string{"A", "B"},
		[2]string{"B", "A"},
		[2]string{"A", "C"},
	)

	got := TopologicalOrder(names, edges)

	assertOrder(t, got, []string{"C", "A", "B"})
}

func TestTopologicalOrder_EveryNodeExactlyOnce(t *testing.T) {
	names := []string{"A", "B", "C", "D", "E"}
	edges := edgesOf(
		[2]string{"A", "B"}, [2]string{"B", "C"},
		[2]string{"C", "A"}, // cycle A->B->C->A
		[2]string{"D", "E"},
	)

	got := TopologicalOrder(names, edges)

	if len(got) != len(names) {
		t.Fatalf("order has %d entries, want %d", len(got), len(names))
	}
	seen := map[string]int{}
	for _, n := range got {
		seen[n]++
	}
	for _, n := range names {
		if seen[n] != 1 {
			t.Errorf("node %s appears %d times, want 1", n, seen[n])
		}
	}
}

func TestTopologicalOrder_IgnoresEdgesOutsideSet(t *testing.T) {
	// Ordering the induced subgraph {A, B}: the edge to X must not count.
	names := []string{"A", "B"}
	edges := edgesOf(
		[2]string{"A", "B"},
		[2]string{"A", "X"},
		[2]string{"X", "B"},
	)

	assertOrder(t, TopologicalOrder(names, edges), []string{"B", "A"})
}

func TestTopologicalOrder_Empty(t *testing.T) {
	if got := TopologicalOrder(nil, nil); len(got) != 0 {
		t.Errorf("TopologicalOrder(nil, nil) = %v, want empty", got)
	}
}

func TestTopologicalOrder_DependenciesBeforeDependents(t *testing.T) {
	names := []string{"APP", "SVC", "UTIL", "DB"}
	edges := edgesOf(
		[2]string{"APP", "SVC"},
		[2]string{"SVC", "UTIL"},
		[2]string{"SVC", "DB"},
		[2]string{"APP", "UTIL"},
	)

	got := TopologicalOrder(names, edges)

	pos := map[string]int{}
	for i, n := range got {
		pos[n] = i
	}
	for _, e := range edges {
		if pos[e.To] > pos[e.From] {
			t.Errorf("%s (dependency) ordered after %s (dependent): %v", e.To, e.From, got)
		}
	}
}
