// Package bundle validates, fixes and packs an npm package.
//
// A [Bundle] runs four checks over a package whose dependencies are already
// installed, in this order:
//
//  1. license: every bundled dependency declares exactly one allowed license
//  2. cycles: no circular import among the package's own modules
//  3. notice: the NOTICE file lists exactly the bundled dependencies
//  4. resources: every configured resource exists
//
// Problems are reported as [Violation]s, never as errors. Errors are reserved
// for structural failures: an unresolvable dependency, a missing entry point
// or a failing collaborator (bundler, test command, archiver).
//
// # Usage
//
//	b, err := bundle.New(bundle.Config{
//	    PackageDir:  ".",
//	    Copyright:   "Copyright Example Corp.",
//	    Entrypoints: []string{"lib/index.js"},
//	    Licenses:    []string{"Apache-2.0", "MIT"},
//	}, bundle.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	report, err := b.Validate(ctx)
//
// Fix regenerates what can be regenerated (the NOTICE file). Pack refuses to
// run while violations remain, then stages the package in a temporary
// directory, bundles it, runs the sanity test and writes
// "<name>-<version>.tgz" into the package directory.
package bundle

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/nodebundle/pkg/archive"
	"github.com/matzehuels/nodebundle/pkg/bundler"
	"github.com/matzehuels/nodebundle/pkg/dag"
	"github.com/matzehuels/nodebundle/pkg/deps"
	"github.com/matzehuels/nodebundle/pkg/deps/javascript"
	"github.com/matzehuels/nodebundle/pkg/errors"
	"github.com/matzehuels/nodebundle/pkg/notice"
	"github.com/matzehuels/nodebundle/pkg/shell"
)

// =============================================================================
// Bundle
// =============================================================================

// Bundle runs validation, fix and pack for one package. Calls against the
// same package directory must not overlap.
type Bundle struct {
	Logger *log.Logger

	cfg      Config
	dir      string
	exclude  *regexp.Regexp
	tree     deps.TreeReader
	compiler bundler.Compiler
	archiver archive.Archiver
	tester   shell.Runner
}

// Option customizes a [Bundle].
type Option func(*Bundle)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(b *Bundle) { b.Logger = l }
}

// WithTreeReader replaces the node_modules reader.
func WithTreeReader(r deps.TreeReader) Option {
	return func(b *Bundle) { b.tree = r }
}

// WithCompiler replaces the bundler selected by [Config.Bundler].
func WithCompiler(c bundler.Compiler) Option {
	return func(b *Bundle) { b.compiler = c }
}

// WithArchiver replaces the archiver selected by [Config.Archiver].
func WithArchiver(a archive.Archiver) Option {
	return func(b *Bundle) { b.archiver = a }
}

// WithTestRunner replaces the runner of the sanity-test command.
func WithTestRunner(r shell.Runner) Option {
	return func(b *Bundle) { b.tester = r }
}

// New validates cfg and returns a Bundle for it.
func New(cfg Config, opts ...Option) (*Bundle, error) {
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	dir, err := filepath.Abs(cfg.PackageDir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "package directory %q", cfg.PackageDir)
	}
	exclude, err := cfg.dontAttribute()
	if err != nil {
		return nil, err
	}

	b := &Bundle{cfg: cfg, dir: dir, exclude: exclude}
	for _, opt := range opts {
		opt(b)
	}
	if b.Logger == nil {
		b.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if b.tree == nil {
		b.tree = javascript.NodeModules{}
	}
	if b.compiler == nil {
		b.compiler = newCompiler(cfg)
	}
	if b.archiver == nil {
		b.archiver = newArchiver(cfg)
	}
	if b.tester == nil {
		b.tester = shell.Interp{}
	}
	return b, nil
}

func newCompiler(cfg Config) bundler.Compiler {
	if cfg.Bundler == BundlerScan {
		return bundler.Scan{}
	}
	return bundler.Esbuild{Path: cfg.Esbuild}
}

func newArchiver(cfg Config) archive.Archiver {
	if cfg.Archiver == ArchiverNpm {
		return archive.Npm{}
	}
	return archive.Native{}
}

// Config returns the configuration with defaults applied.
func (b *Bundle) Config() Config { return b.cfg }

// Dir returns the absolute package directory.
func (b *Bundle) Dir() string { return b.dir }

// =============================================================================
// Validate
// =============================================================================

// state carries what one validation run computed, for Fix and Pack to reuse.
type state struct {
	runID   string
	logger  *log.Logger
	root    *deps.Package
	closure []deps.Dependency
	notice  string
	modules *dag.DAG
}

// Validate runs every check and returns the aggregated report. Violations
// never produce an error; an unresolvable dependency, a missing entry point
// or a failing bundler do.
func (b *Bundle) Validate(ctx context.Context) (*Report, error) {
	report, _, err := b.validate(ctx)
	return report, err
}

func (b *Bundle) validate(ctx context.Context) (*Report, *state, error) {
	return b.run(ctx, checks)
}

// run executes the given checks in order against a fresh state.
func (b *Bundle) run(ctx context.Context, steps []check) (*Report, *state, error) {
	st := &state{runID: uuid.NewString()}
	st.logger = b.Logger.With("run", st.runID)
	start := time.Now()

	root, err := b.tree.ReadRoot(b.dir)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeResolution, err, "read %s", javascript.ManifestFile)
	}
	st.root = root
	st.logger.Debug("validating package", "name", root.Name, "version", root.Version, "dir", b.dir)

	report := &Report{RunID: st.runID, Violations: []Violation{}}
	for _, c := range steps {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		violations, err := b.runCheck(ctx, c, st)
		if err != nil {
			return nil, nil, err
		}
		report.Violations = append(report.Violations, violations...)
	}
	report.Success = len(report.Violations) == 0

	st.logger.Info("validated package",
		"package", root.Name,
		"checks", len(steps),
		"dependencies", len(st.closure),
		"violations", len(report.Violations),
		"duration", time.Since(start))
	return report, st, nil
}

// =============================================================================
// Fix
// =============================================================================

// Fix re-runs the checks that can report fixable violations and repairs what
// they find. It returns the violations it repaired; with none to repair it
// changes nothing.
func (b *Bundle) Fix(ctx context.Context) ([]Violation, error) {
	var steps []check
	for _, c := range checks {
		if c.fixable() {
			steps = append(steps, c)
		}
	}
	report, st, err := b.run(ctx, steps)
	if err != nil {
		return nil, err
	}

	fixable := report.Fixable()
	done := map[ViolationType]bool{}
	for _, v := range fixable {
		if done[v.Type] {
			continue
		}
		done[v.Type] = true
		if err := fixers[v.Type](b, st); err != nil {
			return nil, fmt.Errorf("fix %s: %w", v.Type, err)
		}
		st.logger.Info("fixed violation", "type", v.Type, "message", v.Message)
	}
	if len(fixable) == 0 {
		st.logger.Info("nothing to fix")
	}
	return fixable, nil
}

func (b *Bundle) writeNotice(st *state) error {
	return notice.Write(b.dir, st.notice)
}

// =============================================================================
// Graphs
// =============================================================================

// ModuleGraph returns the graph of the package's own modules reachable from
// its entry points. Edges closing a cycle carry "back" metadata.
func (b *Bundle) ModuleGraph(ctx context.Context) (*dag.DAG, error) {
	if err := b.checkEntrypoints(); err != nil {
		return nil, err
	}
	g, _, err := b.detectCycles(ctx)
	return g, err
}

// DependencyGraph returns the installed dependency tree that would be
// bundled, rooted at [deps.ProjectRoot].
func (b *Bundle) DependencyGraph(ctx context.Context) (*dag.DAG, error) {
	g, err := deps.BuildGraph(ctx, b.tree, b.dir, b.depsOptions(b.Logger))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeResolution, err, "build dependency graph")
	}
	return g, nil
}

func (b *Bundle) depsOptions(logger *log.Logger) deps.Options {
	return deps.Options{
		Externals: b.cfg.ExternalNames(),
		Logger:    logger.Debugf,
	}
}

// checkEntrypoints reports the first configured entry point that is not a
// file in the package.
func (b *Bundle) checkEntrypoints() error {
	for _, ep := range b.cfg.Entrypoints {
		info, err := os.Stat(filepath.Join(b.dir, filepath.FromSlash(ep)))
		if err != nil || !info.Mode().IsRegular() {
			return errors.New(errors.ErrCodeEntrypointNotFound, "entry point %s not found in %s", ep, b.dir)
		}
	}
	return nil
}
