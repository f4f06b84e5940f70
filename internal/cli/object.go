package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abapdoc/abapdoc/pkg/abap"
	"github.com/abapdoc/abapdoc/pkg/pipeline"
)

// runFlags are the flags shared by the object and package commands.
type runFlags struct {
	output         string
	formats        string
	refresh        bool
	noCache        bool
	noLLM          bool
	detailed       bool
	externals      bool
	maxNodes       int
	maxDepth       int
	maxSourceChars int
}

// addRunFlags registers the shared run flags on cmd.
func addRunFlags(cmd *cobra.Command, flags *runFlags) {
	cmd.Flags().StringVarP(&flags.output, "output", "o", "",
		"output base directory (default docs/, or dir under [output])")
	cmd.Flags().StringVarP(&flags.formats, "format", "f", "",
		"comma-separated formats: markdown, html, json, dot, svg, png")
	cmd.Flags().BoolVar(&flags.refresh, "refresh", false, "ignore cached values and rebuild")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable caching entirely")
	cmd.Flags().BoolVar(&flags.noLLM, "no-llm", false, "skip LLM summaries and write skeletons")
	cmd.Flags().BoolVar(&flags.detailed, "detailed", false, "label diagram edges with the referenced members")
	cmd.Flags().BoolVar(&flags.externals, "externals", true, "show external dependencies in package diagrams")
	cmd.Flags().IntVar(&flags.maxSourceChars, "max-source-chars", 0,
		"source characters per object sent to the LLM (0 = built-in default)")
}

// objectCommand documents one repository object and its dependency
// graph.
func (c *CLI) objectCommand() *cobra.Command {
	var (
		flags   runFlags
		objType string
	)

	cmd := &cobra.Command{
		Use:   "object <name>",
		Short: "Document a repository object and its dependencies",
		Long: `Document one repository object.

Starting from the object, abapdoc follows uses-dependencies
breadth-first up to --max-nodes objects, summarizes every discovered
object bottom-up, and writes documentation plus a dependency diagram.

Examples:
  abapdoc object ZCL_ORDER_SERVICE
  abapdoc object ZIF_PAYMENT --type interface -f markdown,html,svg
  abapdoc object ZCL_ORDER_SERVICE --refresh --max-nodes 100`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runObject(cmd.Context(), args[0], objType, &flags)
		},
	}

	addRunFlags(cmd, &flags)
	cmd.Flags().StringVar(&objType, "type", "",
		"object category (class, interface, program, ...); resolved from the system when empty")
	cmd.Flags().IntVar(&flags.maxNodes, "max-nodes", pipeline.DefaultMaxNodes,
		"maximum number of objects in the graph")

	return cmd
}

func (c *CLI) runObject(ctx context.Context, name, objType string, flags *runFlags) error {
	cfg, err := loadConfig(c.ConfigPath)
	if err != nil {
		return err
	}

	formats := parseFormats(flags.formats, cfg)
	if err := pipeline.ValidateFormats(formats); err != nil {
		return err
	}

	sess, err := c.newSession(ctx, cfg, flags.noCache)
	if err != nil {
		return err
	}
	defer sess.Close()

	generator, err := c.newGenerator(cfg, flags.noLLM)
	if err != nil {
		return err
	}

	name = abap.NormalizeName(name)

	prog := newProgress(c.Logger)
	spin := newSpinner(ctx, "Documenting "+name+"...")
	spin.Start()

	result, err := sess.runner.Execute(ctx, pipeline.Options{
		Object:         name,
		Type:           objType,
		MaxNodes:       flags.maxNodes,
		Refresh:        flags.refresh,
		MaxSourceChars: flags.maxSourceChars,
		Formats:        formats,
		Detailed:       flags.detailed,
		Externals:      flags.externals,
		Generator:      generator,
	})
	if err != nil {
		spin.StopWithError("Documenting %s failed", name)
		return err
	}
	spin.Stop()
	prog.done(fmt.Sprintf("Documented %s", name))

	base := outputBase(flags.output, cfg)
	return writeArtifacts(artifactWriteParams{
		artifacts: result.Artifacts,
		dir:       outputDir(base, name),
		stats:     result.Stats,
		cacheHit:  result.CacheInfo.GraphHit,
		problems:  result.Problems(),
		nextStep:  appName + " serve " + base,
	})
}
