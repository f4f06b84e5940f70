package cache

// ScopedKeyer wraps a Keyer with a prefix so several SAP systems can
// share one cache backend without key collisions. Objects with the
// same name routinely exist on DEV, QAS and PRD with different source.
//
// Example usage:
//
//	// Keys scoped to the development system
//	devKeyer := NewScopedKeyer(NewDefaultKeyer(), "system:DEV:")
//
//	// Keys scoped to production
//	prdKeyer := NewScopedKeyer(NewDefaultKeyer(), "system:PRD:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// HTTPKey generates a prefixed key for ADT response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// GraphKey generates a prefixed key for dependency graph caching.
func (k *ScopedKeyer) GraphKey(object string, opts GraphKeyOpts) string {
	return k.prefix + k.inner.GraphKey(object, opts)
}

// PackageKey generates a prefixed key for package graph caching.
func (k *ScopedKeyer) PackageKey(pkg string, opts PackageKeyOpts) string {
	return k.prefix + k.inner.PackageKey(pkg, opts)
}

// SummaryKey generates a prefixed key for summary caching.
func (k *ScopedKeyer) SummaryKey(object, contentHash, model string) string {
	return k.prefix + k.inner.SummaryKey(object, contentHash, model)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(contentHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(contentHash, opts)
}
