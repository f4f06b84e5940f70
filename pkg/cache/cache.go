// Package cache provides the caching layer shared by the ADT client,
// the documentation generator, and the render pipeline. Values are
// opaque byte slices with a per-entry TTL; backends exist for local
// files, Redis, MongoDB, and a no-op null cache.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Default TTLs per entry kind. Summaries are keyed by content hash and
// therefore never go stale; everything else ages out.
const (
	// TTLSource is the lifetime of fetched object source and other
	// repository responses.
	TTLSource = time.Hour
	// TTLGraph is the lifetime of built dependency graphs.
	TTLGraph = 24 * time.Hour
	// TTLSummary is the lifetime of generated summaries. Zero: the key
	// embeds a hash of the inputs, so entries cannot become wrong.
	TTLSummary = 0
	// TTLArtifact is the lifetime of rendered artifacts.
	TTLArtifact = 7 * 24 * time.Hour
)

// Backend selects a cache implementation in [Open].
type Backend string

const (
	// BackendFile stores entries as files under a local directory.
	BackendFile Backend = "file"
	// BackendRedis stores entries in a Redis instance.
	BackendRedis Backend = "redis"
	// BackendMongo stores entries in a MongoDB collection.
	BackendMongo Backend = "mongo"
	// BackendNone disables caching.
	BackendNone Backend = "none"
)

// Cache stores opaque byte values under string keys with an optional
// TTL. Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The second result reports whether the key
	// was found and fresh; an expired or missing entry is (nil, false,
	// nil), not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Config selects and parameterizes a cache backend.
type Config struct {
	Backend Backend

	// Dir is the storage directory for BackendFile. Empty selects the
	// user cache directory.
	Dir string

	// RedisURL is the connection URL for BackendRedis,
	// e.g. redis://localhost:6379/0.
	RedisURL string

	// MongoURI, MongoDatabase and MongoCollection configure
	// BackendMongo.
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// Open creates the cache selected by cfg.Backend. An empty backend
// defaults to BackendFile.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	switch cfg.Backend {
	case BackendFile, "":
		return NewFileCache(cfg.Dir)
	case BackendRedis:
		return NewRedisCache(cfg.RedisURL)
	case BackendMongo:
		return NewMongoCache(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	case BackendNone:
		return NewNullCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Keyer builds cache keys for the different value classes abapdoc
// stores. Centralizing key construction keeps namespaces collision-free
// across backends.
type Keyer interface {
	// HTTPKey keys a raw ADT response (source, search, node listing).
	HTTPKey(namespace, key string) string

	// GraphKey keys a built dependency graph document.
	GraphKey(object string, opts GraphKeyOpts) string

	// PackageKey keys a built package graph document.
	PackageKey(pkg string, opts PackageKeyOpts) string

	// SummaryKey keys a generated object summary. contentHash is the
	// hash of the summarized source, so edits invalidate naturally.
	SummaryKey(object, contentHash, model string) string

	// ArtifactKey keys a rendered artifact derived from the content
	// hash of its input document.
	ArtifactKey(contentHash string, opts ArtifactKeyOpts) string
}

// GraphKeyOpts are the options that change a dependency graph's shape.
type GraphKeyOpts struct {
	Type     string `json:"type"`
	MaxNodes int    `json:"max_nodes"`
}

// PackageKeyOpts are the options that change a package graph's shape.
type PackageKeyOpts struct {
	MaxDepth int `json:"max_depth"`
}

// ArtifactKeyOpts are the options that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
}

// DefaultKeyer is the standard key scheme.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// HTTPKey generates a key for a raw ADT response.
func (k *DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + key
}

// GraphKey generates a key for a dependency graph document.
func (k *DefaultKeyer) GraphKey(object string, opts GraphKeyOpts) string {
	return hashKey("graph", object, opts)
}

// PackageKey generates a key for a package graph document.
func (k *DefaultKeyer) PackageKey(pkg string, opts PackageKeyOpts) string {
	return hashKey("package", pkg, opts)
}

// SummaryKey generates a key for a generated summary.
func (k *DefaultKeyer) SummaryKey(object, contentHash, model string) string {
	return hashKey("summary", object, contentHash, model)
}

// ArtifactKey generates a key for a rendered artifact.
func (k *DefaultKeyer) ArtifactKey(contentHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", contentHash, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
