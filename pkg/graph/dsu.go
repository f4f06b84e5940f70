package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/abapdoc/abapdoc/pkg/abap"
)

// ErrNotMember is returned by [DisjointSet.Find] and [DisjointSet.Union]
// when a queried key was not part of the initial member set. Looking up
// unknown keys is a caller bug, not a recoverable condition.
var ErrNotMember = errors.New("not a member of the disjoint set")

// DisjointSet is a union-find structure over a fixed member set, used
// to cluster weakly connected components of a package graph. It applies
// path compression on Find and union by rank on Union.
//
// The member set is fixed at construction; there is no Add. Names are
// normalized to their canonical form.
type DisjointSet struct {
	parent map[string]string
	rank   map[string]int
}

// NewDisjointSet creates a disjoint set where every member starts in
// its own singleton component. Duplicate members are collapsed.
func NewDisjointSet(members []string) *DisjointSet {
	d := &DisjointSet{
		parent: make(map[string]string, len(members)),
		rank:   make(map[string]int, len(members)),
	}
	for _, m := range members {
		name := abap.NormalizeName(m)
		if name == "" {
			continue
		}
		if _, ok := d.parent[name]; !ok {
			d.parent[name] = name
			d.rank[name] = 0
		}
	}
	return d
}

// Len returns the number of members.
func (d *DisjointSet) Len() int { return len(d.parent) }

// Find returns the representative of the component containing key,
// compressing the path walked. Returns ErrNotMember for unknown keys.
func (d *DisjointSet) Find(key string) (string, error) {
	key = abap.NormalizeName(key)
	root, ok := d.parent[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotMember, key)
	}
	if root == key {
		return key, nil
	}
	// Walk to the root, then point every visited node straight at it.
	for d.parent[root] != root {
		root = d.parent[root]
	}
	for key != root {
		parent := d.parent[key]
		d.parent[key] = root
		key = parent
	}
	return root, nil
}

// Union merges the components containing a and b. Merging a component
// with itself is a no-op. Returns ErrNotMember if either key is
// unknown.
func (d *DisjointSet) Union(a, b string) error {
	ra, err := d.Find(a)
	if err != nil {
		return err
	}
	rb, err := d.Find(b)
	if err != nil {
		return err
	}
	if ra == rb {
		return nil
	}
	// Attach the shorter tree under the taller one.
	switch {
	case d.rank[ra] < d.rank[rb]:
		d.parent[ra] = rb
	case d.rank[ra] > d.rank[rb]:
		d.parent[rb] = ra
	default:
		d.parent[rb] = ra
		d.rank[ra]++
	}
	return nil
}

// Connected reports whether a and b are in the same component.
// Returns ErrNotMember if either key is unknown.
func (d *DisjointSet) Connected(a, b string) (bool, error) {
	ra, err := d.Find(a)
	if err != nil {
		return false, err
	}
	rb, err := d.Find(b)
	if err != nil {
		return false, err
	}
	return ra == rb, nil
}

// Components returns every component keyed by its representative, with
// member lists sorted for deterministic output.
func (d *DisjointSet) Components() map[string][]string {
	out := make(map[string][]string)
	for member := range d.parent {
		root, err := d.Find(member)
		if err != nil {
			// Unreachable: every key in parent is a member.
			continue
		}
		out[root] = append(out[root], member)
	}
	for _, members := range out {
		sort.Strings(members)
	}
	return out
}
