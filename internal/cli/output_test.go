package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/abapdoc/abapdoc/pkg/pipeline"
)

func TestWriteArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "docs", "zcl_order_service")

	err := writeArtifacts(artifactWriteParams{
		artifacts: map[string][]byte{
			"README.md":                 []byte("# ZCL_ORDER_SERVICE\n"),
			"run.json":                  []byte("{}"),
			"diagrams/dependencies.svg": []byte("<svg/>"),
		},
		dir:      dir,
		stats:    pipeline.Stats{NodeCount: 3, EdgeCount: 2},
		cacheHit: true,
		problems: []string{"source of ZCL_HELPER unavailable"},
		nextStep: "abapdoc serve docs",
	})
	if err != nil {
		t.Fatalf("writeArtifacts() error: %v", err)
	}

	for name, want := range map[string]string{
		"README.md":                 "# ZCL_ORDER_SERVICE\n",
		"run.json":                  "{}",
		"diagrams/dependencies.svg": "<svg/>",
	} {
		got, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestWriteArtifactsEmpty(t *testing.T) {
	err := writeArtifacts(artifactWriteParams{
		artifacts: map[string][]byte{},
		dir:       t.TempDir(),
		nextStep:  "abapdoc serve docs",
	})
	if err != nil {
		t.Errorf("writeArtifacts() with no artifacts error: %v", err)
	}
}

func TestWriteArtifactsManyProblems(t *testing.T) {
	problems := make([]string, maxProblemLines+3)
	for i := range problems {
		problems[i] = "problem"
	}

	err := writeArtifacts(artifactWriteParams{
		artifacts: map[string][]byte{"README.md": []byte("x")},
		dir:       t.TempDir(),
		problems:  problems,
		nextStep:  "abapdoc serve docs",
	})
	if err != nil {
		t.Errorf("writeArtifacts() error: %v", err)
	}
}
