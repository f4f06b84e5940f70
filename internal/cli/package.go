package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abapdoc/abapdoc/pkg/abap"
	"github.com/abapdoc/abapdoc/pkg/adt"
	"github.com/abapdoc/abapdoc/pkg/pipeline"
)

// defaultSearchPattern matches the customer namespace, which is where
// documentable packages almost always live.
const defaultSearchPattern = "Z*"

// packageCommand documents a development package.
func (c *CLI) packageCommand() *cobra.Command {
	var (
		flags   runFlags
		pattern string
	)

	cmd := &cobra.Command{
		Use:   "package [name]",
		Short: "Document a development package",
		Long: `Document a development package.

abapdoc discovers the package tree down to --max-depth, builds the
package dependency graph from each contained object's dependencies,
documents every object, and writes one documentation set for the whole
package.

Without an argument, packages matching --pattern are listed for
interactive selection.

Examples:
  abapdoc package ZORDERS
  abapdoc package ZORDERS --max-depth 2 -f markdown,svg
  abapdoc package --pattern "ZFI*"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) > 0 {
				name = args[0]
			}
			return c.runPackage(cmd.Context(), name, pattern, &flags)
		},
	}

	addRunFlags(cmd, &flags)
	cmd.Flags().IntVar(&flags.maxDepth, "max-depth", pipeline.DefaultMaxDepth,
		"sub-package recursion depth")
	cmd.Flags().StringVar(&pattern, "pattern", defaultSearchPattern,
		"package search pattern for interactive selection")

	return cmd
}

func (c *CLI) runPackage(ctx context.Context, name, pattern string, flags *runFlags) error {
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

	if name == "" {
		name, err = c.pickPackage(ctx, sess.client, pattern, flags.refresh)
		if err != nil {
			return err
		}
		if name == "" {
			printInfo("No selection made")
			return nil
		}
	}

	generator, err := c.newGenerator(cfg, flags.noLLM)
	if err != nil {
		return err
	}

	name = abap.NormalizeName(name)

	prog := newProgress(c.Logger)
	spin := newSpinner(ctx, "Documenting package "+name+"...")
	spin.Start()

	result, err := sess.runner.Execute(ctx, pipeline.Options{
		Package:        name,
		MaxDepth:       flags.maxDepth,
		Refresh:        flags.refresh,
		MaxSourceChars: flags.maxSourceChars,
		Formats:        formats,
		Detailed:       flags.detailed,
		Externals:      flags.externals,
		Generator:      generator,
	})
	if err != nil {
		spin.StopWithError("Documenting package %s failed", name)
		return err
	}
	spin.Stop()
	prog.done(fmt.Sprintf("Documented package %s", name))

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

// pickPackage searches packages matching pattern and runs the
// interactive selection list. An empty name with a nil error means the
// selection was aborted.
func (c *CLI) pickPackage(ctx context.Context, client *adt.Client, pattern string, refresh bool) (string, error) {
	spin := newSpinner(ctx, "Searching packages matching "+pattern+"...")
	spin.Start()
	packages, err := client.SearchPackages(ctx, pattern, refresh)
	if err != nil {
		spin.StopWithError("Package search failed")
		return "", err
	}
	spin.Stop()

	if len(packages) == 0 {
		return "", fmt.Errorf("no packages match %q", pattern)
	}

	model, err := tea.NewProgram(NewPackageListModel(packages)).Run()
	if err != nil {
		return "", fmt.Errorf("package selection: %w", err)
	}

	final, ok := model.(PackageListModel)
	if !ok || final.Selected == nil {
		return "", nil
	}
	return final.Selected.Name, nil
}
