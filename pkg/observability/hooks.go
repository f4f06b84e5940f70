// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about pipeline execution, cache operations, and ADT
// requests.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnDiscoverStart(ctx, object)
//	// ... build the graph ...
//	observability.Pipeline().OnDiscoverComplete(ctx, object, nodeCount, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the documentation pipeline.
type PipelineHooks interface {
	// Discovery events. The target is the root object or package name.
	OnDiscoverStart(ctx context.Context, target string)
	OnDiscoverComplete(ctx context.Context, target string, nodeCount int, duration time.Duration, err error)

	// Summarization events.
	OnSummarizeStart(ctx context.Context, objectCount int)
	OnSummarizeComplete(ctx context.Context, objectCount int, duration time.Duration)

	// Render events.
	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations. The keyType names
// the value class being looked up: "http", "graph", "package",
// "summary" or "diagram".
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// ADT Hooks
// =============================================================================

// ADTHooks receives events from ADT service requests.
type ADTHooks interface {
	// OnRequest records an outgoing request.
	OnRequest(ctx context.Context, method, path string)

	// OnResponse records a response.
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)

	// OnError records a request error (network failure, timeout).
	OnError(ctx context.Context, method, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnDiscoverStart(context.Context, string) {}
func (NoopPipelineHooks) OnDiscoverComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnSummarizeStart(context.Context, int)                            {}
func (NoopPipelineHooks) OnSummarizeComplete(context.Context, int, time.Duration)          {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                          {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopADTHooks is a no-op implementation of ADTHooks.
type NoopADTHooks struct{}

func (NoopADTHooks) OnRequest(context.Context, string, string)                      {}
func (NoopADTHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopADTHooks) OnError(context.Context, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	adtHooks      ADTHooks      = NoopADTHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetADTHooks registers custom ADT request hooks.
// This should be called once at application startup before any ADT operations.
func SetADTHooks(h ADTHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		adtHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// ADT returns the registered ADT request hooks.
func ADT() ADTHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return adtHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	adtHooks = NoopADTHooks{}
}
