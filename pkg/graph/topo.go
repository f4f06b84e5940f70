package graph

// TopologicalOrder orders names so that dependencies come before their
// dependents: if an edge from→to exists, to appears before from. The
// result always contains every name exactly once.
//
// The algorithm is Kahn's, seeded with the nodes that have no outgoing
// edges inside the name set (the leaves). Edges with an endpoint
// outside the set are ignored, which lets callers order an induced
// subgraph such as a single cluster. Names caught on a cycle can never
// reach zero remaining dependencies; they are appended at the end in
// input order rather than dropped.
//
// Output is deterministic for a fixed input order: the seed queue and
// the cycle tail both follow the order of names.
func TopologicalOrder(names []string, edges []*Edge) []string {
	inSet := make(map[string]bool, len(names))
	for _, n := range names {
		inSet[n] = true
	}

	// remaining[n] counts edges from n that point at a node not yet
	// emitted; dependents[to] lists the froms to notify on emit.
	remaining := make(map[string]int, len(names))
	dependents := make(map[string][]string)
	for _, e := range edges {
		if e == nil || !inSet[e.From] || !inSet[e.To] || e.From == e.To {
			continue
		}
		remaining[e.From]++
		dependents[e.To] = append(dependents[e.To], e.From)
	}

	queue := make([]string, 0, len(names))
	for _, n := range names {
		if remaining[n] == 0 {
			queue = append(queue, n)
		}
	}

	order := make([]string, 0, len(names))
	emitted := make(map[string]bool, len(names))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		emitted[n] = true
		order = append(order, n)
		for _, dep := range dependents[n] {
			remaining[dep]--
			if remaining[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	// Whatever is left sits on a cycle.
	for _, n := range names {
		if !emitted[n] {
			order = append(order, n)
		}
	}
	return order
}

// OrderedNames computes and stores the leaves-first order for the whole
// graph, returning it for convenience.
func (g *Graph) OrderedNames() []string {
	g.order = TopologicalOrder(g.names, g.edges)
	return g.order
}
