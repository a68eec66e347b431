// Package render expands a directory tree of query templates into SQL files.
//
// Every template under QueriesDir with TemplateExt is expanded and written to
// the same relative path under OutputDir with OutputExt. Files are rendered
// concurrently; a failing template does not stop the others, and every
// failure is reported in the Result.
package render

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/loopsql/internal/bindings"
	"github.com/leapstack-labs/loopsql/internal/template"
	"golang.org/x/sync/errgroup"
)

// Options configures a Renderer.
type Options struct {
	QueriesDir  string
	OutputDir   string
	TemplateExt string
	OutputExt   string
	Concurrency int

	// Vars are the base bindings; VarsFiles and Pairs are layered on top
	// and re-read on every build.
	Vars      map[string]any
	VarsFiles []string
	Pairs     []string

	Logger *slog.Logger
}

// Failure records a template that could not be rendered.
type Failure struct {
	File string
	Err  error
}

// Result summarizes one build.
type Result struct {
	ID       string
	Rendered []string // template paths relative to QueriesDir
	Failures []Failure
	Duration time.Duration
}

// Err joins every failure into one error, or returns nil.
func (r *Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.File, f.Err))
	}
	return errors.Join(errs...)
}

// Renderer renders a queries directory into an output directory.
type Renderer struct {
	opts     Options
	logger   *slog.Logger
	expander *template.Expander
	mu       sync.Mutex // serializes builds
}

// New creates a Renderer, filling defaults for unset options.
func New(opts Options) *Renderer {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.TemplateExt == "" {
		opts.TemplateExt = ".tsql"
	}
	if opts.OutputExt == "" {
		opts.OutputExt = ".sql"
	}
	return &Renderer{
		opts:     opts,
		logger:   opts.Logger,
		expander: template.NewExpander(template.WithLogger(opts.Logger)),
	}
}

// Discover returns every template under QueriesDir, relative and sorted.
// Hidden directories are skipped.
func (r *Renderer) Discover() ([]string, error) {
	var files []string
	err := filepath.WalkDir(r.opts.QueriesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != r.opts.QueriesDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != r.opts.TemplateExt {
			return nil
		}
		rel, err := filepath.Rel(r.opts.QueriesDir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover templates in %s: %w", r.opts.QueriesDir, err)
	}
	sort.Strings(files)
	return files, nil
}

// OutputPath maps a template path relative to QueriesDir to its output file.
func (r *Renderer) OutputPath(rel string) string {
	return filepath.Join(r.opts.OutputDir, strings.TrimSuffix(rel, r.opts.TemplateExt)+r.opts.OutputExt)
}

// LoadVars builds the binding set for a build.
func (r *Renderer) LoadVars() (template.Vars, error) {
	vars, err := bindings.Load(r.opts.Vars, r.opts.VarsFiles, r.opts.Pairs)
	if err != nil {
		return nil, fmt.Errorf("failed to load bindings: %w", err)
	}
	return vars, nil
}

// RenderAll renders every discovered template. Per-file failures are
// collected in the Result; the returned error is reserved for discovery,
// binding and cancellation errors.
func (r *Renderer) RenderAll(ctx context.Context) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	result := &Result{ID: uuid.New().String()}
	logger := r.logger.With("build", result.ID)

	vars, err := r.LoadVars()
	if err != nil {
		return nil, err
	}

	files, err := r.Discover()
	if err != nil {
		return nil, err
	}
	logger.Debug("rendering templates", "count", len(files), "concurrency", r.opts.Concurrency)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for _, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := r.renderFile(rel, vars)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Debug("template failed", "file", rel, "error", err)
				result.Failures = append(result.Failures, Failure{File: rel, Err: err})
				return nil
			}
			result.Rendered = append(result.Rendered, rel)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(result.Rendered)
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].File < result.Failures[j].File
	})
	result.Duration = time.Since(start)

	logger.Info("build finished",
		"rendered", len(result.Rendered),
		"failed", len(result.Failures),
		"duration", result.Duration)
	return result, nil
}

// RenderFile renders a single template, given relative to QueriesDir.
func (r *Renderer) RenderFile(rel string) error {
	vars, err := r.LoadVars()
	if err != nil {
		return err
	}
	return r.renderFile(rel, vars)
}

func (r *Renderer) renderFile(rel string, vars template.Vars) error {
	src := filepath.Join(r.opts.QueriesDir, rel)
	content, err := os.ReadFile(src) //nolint:gosec // G304: paths come from walking the queries dir
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	sql, err := r.expander.Render(string(content), rel, vars)
	if err != nil {
		return err
	}

	dst := r.OutputPath(rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if !strings.HasSuffix(sql, "\n") {
		sql += "\n"
	}
	if err := os.WriteFile(dst, []byte(sql), 0600); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
