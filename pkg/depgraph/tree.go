package depgraph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abapdoc/abapdoc/pkg/abap"
)

// PackageTree is one development package with its relevant objects and
// discovered sub-packages.
type PackageTree struct {
	Name string

	// Description is the package text from the parent listing; the
	// discovery root has none.
	Description string

	// Depth is the distance from the discovery root, increasing by one
	// per level. The root is 0.
	Depth int

	Objects     []abap.Object
	Subpackages []*PackageTree
}

// DiscoverTree enumerates a package hierarchy: the root package's
// contents, then recursively every sub-package up to opts.MaxDepth.
// Each listing call is bounded by opts.Timeout independently, so one
// slow branch cannot starve its siblings.
//
// Objects are filtered to custom objects of relevant categories - the
// same criteria the graph builders apply. A sub-package whose listing
// fails or times out is recorded in the returned soft-error list and
// omitted from the tree; reaching the depth limit with sub-packages
// still present is recorded the same way. Only a failure to list the
// root package is fatal.
func DiscoverTree(ctx context.Context, lister PackageLister, root string, opts Options) (*PackageTree, []string, error) {
	root = abap.NormalizeName(root)
	if root == "" {
		return nil, nil, errors.New("depgraph: empty package name")
	}

	d := &treeDiscovery{lister: lister, opts: opts.WithDefaults()}
	tree, err := d.discover(ctx, root, "", 0)
	if err != nil {
		return nil, d.errs, fmt.Errorf("list package %s: %w", root, err)
	}
	return tree, d.errs, nil
}

type treeDiscovery struct {
	lister PackageLister
	opts   Options
	errs   []string
}

func (d *treeDiscovery) discover(ctx context.Context, pkg, desc string, depth int) (*PackageTree, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	entries, err := d.lister.ListPackage(callCtx, pkg, d.opts.Refresh)
	cancel()
	if err != nil {
		return nil, err
	}

	tree := &PackageTree{Name: pkg, Description: desc, Depth: depth}
	var subs []PackageEntry
	for _, e := range entries {
		name := abap.NormalizeName(e.Name)
		if e.IsPackage {
			subs = append(subs, PackageEntry{Name: name, Description: e.Description})
			continue
		}
		if !e.Type.Relevant() || !abap.IsCustom(name) {
			continue
		}
		tree.Objects = append(tree.Objects, abap.Object{Name: name, Type: e.Type})
	}

	if len(subs) > 0 && depth >= d.opts.MaxDepth {
		names := make([]string, len(subs))
		for i, s := range subs {
			names[i] = s.Name
		}
		d.errs = append(d.errs, fmt.Sprintf("depth limit %d reached at %s: skipped sub-packages %s",
			d.opts.MaxDepth, pkg, strings.Join(names, ", ")))
		return tree, nil
	}

	for _, sub := range subs {
		child, err := d.discover(ctx, sub.Name, sub.Description, depth+1)
		if err != nil {
			d.opts.Logger("list failed: %s: %v", sub.Name, err)
			d.errs = append(d.errs, fmt.Sprintf("list package %s: %v", sub.Name, err))
			continue
		}
		tree.Subpackages = append(tree.Subpackages, child)
	}
	return tree, nil
}

// Flatten returns every object in the tree in breadth-first package
// order: the root package's objects first, then each level of
// sub-packages in discovery order.
func (t *PackageTree) Flatten() []abap.Object {
	var objects []abap.Object
	queue := []*PackageTree{t}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		objects = append(objects, node.Objects...)
		queue = append(queue, node.Subpackages...)
	}
	return objects
}

// PackageNames returns the names of every package in the tree in
// breadth-first order, root first.
func (t *PackageTree) PackageNames() []string {
	var names []string
	queue := []*PackageTree{t}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		names = append(names, node.Name)
		queue = append(queue, node.Subpackages...)
	}
	return names
}
