package depgraph

import (
	"context"
	"errors"
	"time"

	"github.com/abapdoc/abapdoc/pkg/abap"
	"github.com/abapdoc/abapdoc/pkg/cache"
)

const (
	DefaultMaxNodes = 50               // Default node budget for graph discovery
	DefaultMaxDepth = 3                // Default sub-package recursion depth
	DefaultTimeout  = 30 * time.Second // Default per-call timeout for package listings
)

// Options configures graph building and package discovery.
type Options struct {
	MaxNodes int                  // Node budget for Build (default: 50)
	MaxDepth int                  // Sub-package recursion depth for DiscoverTree (default: 3)
	Timeout  time.Duration        // Per package-listing timeout (default: 30s)
	Refresh  bool                 // Bypass caches for fresh data
	Logger   func(string, ...any) // Progress/error callback (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	return opts
}

// SourceFetcher retrieves raw object source from the repository.
type SourceFetcher interface {
	// FetchSource retrieves the source text of a named object. If
	// refresh is true, cached data is bypassed.
	FetchSource(ctx context.Context, name string, objType abap.ObjectType, refresh bool) (string, error)
}

// TypeResolver resolves an object name to its repository category.
type TypeResolver interface {
	// ResolveType resolves the category of a named object. If refresh
	// is true, cached data is bypassed.
	ResolveType(ctx context.Context, name string, refresh bool) (abap.ObjectType, error)
}

// PackageEntry is one item of a package listing: a sub-package or a
// repository object.
type PackageEntry struct {
	Name        string
	Type        abap.ObjectType
	IsPackage   bool
	Description string
}

// PackageLister lists the direct contents of a development package.
type PackageLister interface {
	// ListPackage retrieves a package's sub-packages and objects. If
	// refresh is true, cached data is bypassed.
	ListPackage(ctx context.Context, pkg string, refresh bool) ([]PackageEntry, error)
}

// Extractor turns object source into dependency records.
// Implementations may fail per object; the builders record the failure
// and keep the node.
type Extractor interface {
	Extract(source string, obj abap.Object) ([]abap.Dependency, error)
}

// sourceExtractor is the default Extractor, backed by the statement
// scanner in pkg/abap. It never fails.
type sourceExtractor struct{}

func (sourceExtractor) Extract(source string, obj abap.Object) ([]abap.Dependency, error) {
	return abap.Extract(source), nil
}

// resolveDependencyType applies the type resolution policy for one
// dependency reference: interface classifications from the extractor
// are trusted outright (the syntax is unambiguous), everything else is
// resolved against the repository, and resolution misses fall back to
// the naming-convention heuristic. Resolver failures other than "not
// found" are reported through record.
func resolveDependencyType(ctx context.Context, resolver TypeResolver, dep abap.Dependency, refresh bool, record func(format string, args ...any)) abap.ObjectType {
	if dep.Type == abap.TypeInterface {
		return abap.TypeInterface
	}
	t, err := resolver.ResolveType(ctx, dep.Name, refresh)
	if err == nil {
		return t
	}
	if !errors.Is(err, cache.ErrNotFound) {
		record("resolve type of %s: %v", dep.Name, err)
	}
	return abap.GuessType(dep.Name)
}
