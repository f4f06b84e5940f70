package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/abapdoc/abapdoc/pkg/pipeline"
)

// maxProblemLines bounds the problem report printed after a run; the
// full list is always in run.json.
const maxProblemLines = 5

// artifactWriteParams bundles what writeArtifacts needs to persist and
// report a finished run.
type artifactWriteParams struct {
	artifacts map[string][]byte
	dir       string
	stats     pipeline.Stats
	cacheHit  bool
	problems  []string
	nextStep  string
}

// writeArtifacts writes every artifact beneath dir and prints the run
// report: the files written, graph size, cache origin, and any
// problems the pipeline recorded.
func writeArtifacts(p artifactWriteParams) error {
	names := make([]string, 0, len(p.artifacts))
	for name := range p.artifacts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		target := filepath.Join(p.dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		if err := os.WriteFile(target, p.artifacts[name], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
	}

	if p.stats.NodeCount == 0 {
		printWarning("No objects discovered; wrote a fallback page")
	} else {
		printSuccess("Documentation generated")
	}
	for _, name := range names {
		printFile(filepath.Join(p.dir, filepath.FromSlash(name)))
	}
	printStats(p.stats.NodeCount, p.stats.EdgeCount, p.cacheHit)

	if len(p.problems) > 0 {
		printNewline()
		printWarning("%d problem(s) during the run:", len(p.problems))
		for i, problem := range p.problems {
			if i == maxProblemLines {
				printDetail("... and %d more, see run.json", len(p.problems)-maxProblemLines)
				break
			}
			printDetail("%s", problem)
		}
	}

	printNewline()
	printNextStep("Serve", p.nextStep)
	return nil
}
