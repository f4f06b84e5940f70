// Package server exposes a generated documentation directory over HTTP.
//
// It serves the static pages pipeline runs wrote to disk, plus a small
// read-only JSON API for tooling:
//
//	GET /healthz            server health and version
//	GET /api/runs           every run manifest under the root
//	GET /api/graph/{run}    graph document of one run, by run ID
//
// There is no authentication: the server is meant for localhost or a
// trusted network, pointed at documentation that was already generated.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abapdoc/abapdoc/pkg/buildinfo"
	"github.com/abapdoc/abapdoc/pkg/pipeline"
)

// DefaultAddr is the bind address used when the caller does not set one.
// Loopback only: serving beyond the local machine is an explicit choice.
const DefaultAddr = "127.0.0.1:8080"

// Config configures a documentation server.
type Config struct {
	// Addr is the address to bind, e.g. "127.0.0.1:8080".
	Addr string

	// Root is the documentation directory to serve. Every run.json
	// found below it shows up in the run listing.
	Root string

	// Logger receives request and scan logs. Defaults to log.Default().
	Logger *log.Logger
}

// Server serves a documentation directory and its run manifests.
type Server struct {
	root   string
	logger *log.Logger
	http   *http.Server
}

// Run is one documented run found under the served root: its manifest
// plus the directory it lives in, relative to the root.
type Run struct {
	Dir string `json:"dir"`
	pipeline.Manifest
}

// NewServer validates the documentation root and builds the server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("docs root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("docs root %s is not a directory", cfg.Root)
	}

	s := &Server{root: cfg.Root, logger: cfg.Logger}
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// router wires the API routes and the static file tree.
func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(readOnly)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/runs", s.handleRuns)
	r.Get("/api/graph/{run}", s.handleGraph)
	r.Handle("/*", http.FileServer(http.Dir(s.root)))
	return r
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	s.logger.Info("serving documentation", "addr", s.http.Addr, "root", s.root)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleRuns lists every run manifest found under the root, newest first.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.scanRuns()
	if err != nil {
		s.logger.Error("scan runs", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	s.respondJSON(w, runs)
}

// handleGraph serves the graph JSON document of one run, addressed by
// run ID. Runs rendered without the json format have no graph document.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "run")
	runs, err := s.scanRuns()
	if err != nil {
		s.logger.Error("scan runs", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	for _, run := range runs {
		if run.RunID != id {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(run.Dir), pipeline.GraphFile))
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "run has no graph document", http.StatusNotFound)
			return
		}
		if err != nil {
			s.logger.Error("read graph", "run", id, "err", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
		return
	}
	http.Error(w, "run not found", http.StatusNotFound)
}

// scanRuns walks the root for run manifests. Directories without one
// are still served statically; they just stay out of the listing. A
// corrupt manifest is skipped with a warning so one bad file cannot
// take the API down.
func (s *Server) scanRuns() ([]Run, error) {
	runs := []Run{}
	err := fs.WalkDir(os.DirFS(s.root), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if d.Name() != pipeline.ManifestFile {
			return nil
		}
		data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(p)))
		if err != nil {
			return err
		}
		var m pipeline.Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			s.logger.Warn("skipping unreadable manifest", "path", p, "err", err)
			return nil
		}
		dir := path.Dir(p)
		if dir == "." {
			dir = ""
		}
		runs = append(runs, Run{Dir: dir, Manifest: m})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// GeneratedAt is RFC 3339, so string order is time order.
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].GeneratedAt != runs[j].GeneratedAt {
			return runs[i].GeneratedAt > runs[j].GeneratedAt
		}
		return runs[i].Dir < runs[j].Dir
	})
	return runs, nil
}

func (s *Server) respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// readOnly rejects everything but GET and HEAD. The server never
// mutates state.
func readOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}
