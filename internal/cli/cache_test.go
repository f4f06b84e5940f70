package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunCacheClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "entry.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write entry: %v", err)
	}

	c := New(io.Discard, LogInfo)
	cfg := Config{Cache: CacheConfig{Dir: dir}}

	if err := c.runCacheClear(cfg); err != nil {
		t.Fatalf("runCacheClear() error: %v", err)
	}

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("cache dir %s should be removed", dir)
	}
}

func TestRunCacheClearMissingDir(t *testing.T) {
	c := New(io.Discard, LogInfo)
	cfg := Config{Cache: CacheConfig{Dir: filepath.Join(t.TempDir(), "never-created")}}

	if err := c.runCacheClear(cfg); err != nil {
		t.Errorf("runCacheClear() on missing dir error: %v", err)
	}
}

func TestRunCacheClearRemoteBackend(t *testing.T) {
	c := New(io.Discard, LogInfo)

	for _, backend := range []string{"redis", "mongo"} {
		err := c.runCacheClear(Config{Cache: CacheConfig{Backend: backend}})
		if err == nil {
			t.Errorf("runCacheClear() with %s backend should error", backend)
			continue
		}
		if !strings.Contains(err.Error(), "file backend only") {
			t.Errorf("runCacheClear() error = %q, want mention of file backend", err)
		}
	}
}
