package docgen

import (
	"context"
	"time"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultMaxSourceChars bounds the source excerpt embedded in a
	// prompt. Sources beyond the limit are cut at a line boundary.
	DefaultMaxSourceChars = 6000

	// DefaultTimeout bounds one generation call.
	DefaultTimeout = 60 * time.Second
)

// Options configures summary generation.
type Options struct {
	MaxSourceChars int                  // Source excerpt limit per prompt (default: 6000)
	Timeout        time.Duration        // Per generation call (default: 60s)
	Refresh        bool                 // Bypass cached summaries
	Logger         func(string, ...any) // Progress/error callback (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.MaxSourceChars <= 0 {
		opts.MaxSourceChars = DefaultMaxSourceChars
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	return opts
}

// Generator produces text from a prompt. Implementations must be safe
// for concurrent use.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Static is a Generator returning the same response for every prompt.
type Static struct {
	Response string
}

func (s Static) Generate(ctx context.Context, prompt string) (string, error) {
	return s.Response, nil
}

// modeler is implemented by generators bound to a named model. The
// name goes into summary cache keys.
type modeler interface {
	Model() string
}
