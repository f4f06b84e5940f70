// Package cli implements the abapdoc command-line interface.
//
// The CLI connects to an SAP system's ADT services, documents
// repository objects or whole development packages, and serves the
// generated documentation:
//
//   - object: document one repository object and its dependency graph
//   - package: document a development package (interactive picker when
//     run without an argument)
//   - serve: serve a documentation directory over HTTP
//   - cache: inspect and clear the local cache
//   - completion: generate shell completion scripts
//
// Connection and generation settings come from
// ~/.config/abapdoc/config.toml (see Config); SAP_PASSWORD and
// OPENAI_API_KEY override their file counterparts. Every command
// accepts --verbose for debug logging and --config for an alternate
// config file.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/abapdoc/abapdoc/pkg/adt"
	"github.com/abapdoc/abapdoc/pkg/buildinfo"
	"github.com/abapdoc/abapdoc/pkg/cache"
	"github.com/abapdoc/abapdoc/pkg/docgen"
	"github.com/abapdoc/abapdoc/pkg/pipeline"
)

// ============================================================================
// Constants
// ============================================================================

// appName is the application name used in messages, paths and the
// default cache directory.
const appName = "abapdoc"

// Log levels re-exported so main does not import charmbracelet/log.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// ============================================================================
// CLI - Central CLI State
// ============================================================================

// CLI holds the state shared by all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath overrides the default config file location. Bound to
	// the persistent --config flag.
	ConfigPath string
}

// New creates a CLI logging to w at the given level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel adjusts the log level after construction (--verbose).
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand builds the root command with all subcommands attached.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Generate documentation for ABAP repository objects",
		Long: `abapdoc connects to an SAP system's ADT services, discovers the
dependency structure of repository objects, summarizes each object
bottom-up so that every summary can draw on the summaries of its
dependencies, and renders Markdown or HTML documentation with
dependency diagrams.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "",
		"config file (default ~/.config/abapdoc/config.toml)")

	root.AddCommand(c.objectCommand())
	root.AddCommand(c.packageCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// ============================================================================
// Session Factory
// ============================================================================

// session bundles the collaborators a documentation run needs. Closing
// the session closes the shared cache backend.
type session struct {
	client *adt.Client
	runner *pipeline.Runner
}

// Close releases the session's cache backend.
func (s *session) Close() error {
	return s.runner.Close()
}

// newSession opens the cache backend and the ADT client and wires them
// into a pipeline runner. The client and the runner share one backend,
// so closing the runner closes everything.
func (c *CLI) newSession(ctx context.Context, cfg Config, noCache bool) (*session, error) {
	if cfg.SAP.BaseURL == "" {
		return nil, errors.New("SAP connection not configured: set base_url under [sap] in the config file")
	}

	backend, err := openCache(ctx, cfg, noCache)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	client, err := adt.NewClient(adt.Config{
		BaseURL:            cfg.SAP.BaseURL,
		Client:             cfg.SAP.Client,
		Username:           cfg.SAP.Username,
		Password:           cfg.SAP.Password,
		Language:           cfg.SAP.Language,
		InsecureSkipVerify: cfg.SAP.InsecureSkipVerify,
		Cache:              backend,
	})
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &session{
		client: client,
		runner: pipeline.NewRunner(client, backend, nil, c.Logger),
	}, nil
}

// openCache selects the cache backend from the configuration.
func openCache(ctx context.Context, cfg Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	return cache.Open(ctx, cache.Config{
		Backend:         cache.Backend(cfg.Cache.Backend),
		Dir:             cfg.Cache.Dir,
		RedisURL:        cfg.Cache.RedisURL,
		MongoURI:        cfg.Cache.MongoURI,
		MongoDatabase:   cfg.Cache.MongoDatabase,
		MongoCollection: cfg.Cache.MongoCollection,
	})
}

// newGenerator builds the LLM summary generator, or nil when no API
// key is configured. The pipeline writes skeleton summaries for a nil
// generator, so runs degrade instead of failing.
func (c *CLI) newGenerator(cfg Config, noLLM bool) (docgen.Generator, error) {
	if noLLM {
		return nil, nil
	}
	if cfg.LLM.APIKey == "" {
		printWarning("No LLM configured; writing skeleton summaries (set OPENAI_API_KEY or api_key under [llm])")
		return nil, nil
	}
	gen, err := docgen.NewOpenAI(docgen.OpenAIConfig{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	return gen, nil
}

// ============================================================================
// Paths
// ============================================================================

// cacheDir resolves the file-cache directory exactly the way the file
// backend does: the configured dir, else the user cache dir.
func cacheDir(cfg Config) (string, error) {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName), nil
}

// ============================================================================
// Options Helpers
// ============================================================================

// parseFormats parses a comma-separated -f value, falling back to the
// configured formats and then to markdown plus an SVG diagram.
func parseFormats(s string, cfg Config) []string {
	if s == "" {
		if len(cfg.Output.Formats) > 0 {
			return cfg.Output.Formats
		}
		return []string{pipeline.FormatMarkdown, pipeline.FormatSVG}
	}
	return strings.Split(s, ",")
}

// outputBase resolves the artifact base directory: the -o flag, then
// the configured dir, then ./docs. The serve command defaults to the
// same base, so generated runs are picked up without extra flags.
func outputBase(flag string, cfg Config) string {
	if flag != "" {
		return flag
	}
	if cfg.Output.Dir != "" {
		return cfg.Output.Dir
	}
	return "docs"
}

// outputDir places one run under the base, named after its target so
// runs do not overwrite each other.
func outputDir(base, target string) string {
	return filepath.Join(base, strings.ToLower(target))
}
