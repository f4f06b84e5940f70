package render

// DIAGNOSTIC STUB — NOT FOR COMMIT.
// Temporary stand-in for the goccy/go-graphviz-backed implementation so
// that dependent packages can be type-checked on a toolchain where the
// library cannot build. Restored from /tmp/graphviz.go.ORIGINAL before
// finishing.

import (
	"context"
	"errors"
)

// RenderSVG renders DOT text to SVG. The viewBox of the result is
// normalized to start at the origin so the SVG scales cleanly when
// embedded.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	return nil, errors.New("render: graphviz unavailable (diagnostic stub)")
}

// RenderPNG renders DOT text to PNG.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return nil, errors.New("render: graphviz unavailable (diagnostic stub)")
}
