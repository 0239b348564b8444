package bundle

import (
	"context"
	"time"

	"github.com/matzehuels/nodebundle/pkg/dag"
	"github.com/matzehuels/nodebundle/pkg/deps"
	"github.com/matzehuels/nodebundle/pkg/errors"
	"github.com/matzehuels/nodebundle/pkg/imports"
	"github.com/matzehuels/nodebundle/pkg/license"
	"github.com/matzehuels/nodebundle/pkg/notice"
	"github.com/matzehuels/nodebundle/pkg/observability"
	"github.com/matzehuels/nodebundle/pkg/resource"
)

// check is one validation step. Steps run in table order.
type check struct {
	name  string
	types []ViolationType // Types the step can report
	run   func(b *Bundle, ctx context.Context, st *state) ([]Violation, error)
}

var checks = []check{
	{"license", []ViolationType{InvalidLicense, MultipleLicense}, (*Bundle).checkLicenses},
	{"cycles", []ViolationType{CircularImport}, (*Bundle).checkCycles},
	{"notice", []ViolationType{OutdatedNotice}, (*Bundle).checkNotice},
	{"resources", []ViolationType{MissingResource}, (*Bundle).checkResources},
}

// fixable reports whether the step can report a fixable violation.
func (c check) fixable() bool {
	for _, t := range c.types {
		if t.Fixable() {
			return true
		}
	}
	return false
}

func (b *Bundle) runCheck(ctx context.Context, c check, st *state) ([]Violation, error) {
	hooks := observability.Bundle()
	hooks.OnCheckStart(ctx, c.name)
	start := time.Now()

	violations, err := c.run(b, ctx, st)

	duration := time.Since(start)
	hooks.OnCheckComplete(ctx, c.name, len(violations), duration, err)
	if err != nil {
		return nil, err
	}
	st.logger.Debug("check complete", "check", c.name, "violations", len(violations), "duration", duration)
	return violations, nil
}

// dependencies builds the closure once per run.
func (b *Bundle) dependencies(ctx context.Context, st *state) ([]deps.Dependency, error) {
	if st.closure != nil {
		return st.closure, nil
	}
	closure, err := deps.Closure(ctx, b.tree, b.dir, b.depsOptions(st.logger))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeResolution, err, "build dependency closure")
	}
	if closure == nil {
		closure = []deps.Dependency{}
	}
	st.closure = closure
	return closure, nil
}

func (b *Bundle) checkLicenses(ctx context.Context, st *state) ([]Violation, error) {
	closure, err := b.dependencies(ctx, st)
	if err != nil {
		return nil, err
	}

	var violations []Violation
	for _, f := range license.Check(closure, b.cfg.Licenses) {
		t := InvalidLicense
		if f.Kind == license.Multiple {
			t = MultipleLicense
		}
		violations = append(violations, Violation{Type: t, Message: f.Message()})
	}
	return violations, nil
}

func (b *Bundle) checkCycles(ctx context.Context, st *state) ([]Violation, error) {
	if err := b.checkEntrypoints(); err != nil {
		return nil, err
	}
	g, cycles, err := b.detectCycles(ctx)
	if err != nil {
		return nil, err
	}
	st.modules = g

	var violations []Violation
	for _, c := range cycles {
		violations = append(violations, Violation{Type: CircularImport, Message: c.String()})
	}
	return violations, nil
}

func (b *Bundle) detectCycles(ctx context.Context) (*dag.DAG, []imports.Cycle, error) {
	var (
		g      *dag.DAG
		cycles []imports.Cycle
	)
	err := b.collaborate(ctx, "analyze", func(ctx context.Context) error {
		var err error
		g, cycles, err = imports.Detect(ctx, b.compiler, b.dir, b.cfg.Entrypoints, b.cfg.ExternalNames())
		return err
	})
	return g, cycles, err
}

func (b *Bundle) checkNotice(ctx context.Context, st *state) ([]Violation, error) {
	closure, err := b.dependencies(ctx, st)
	if err != nil {
		return nil, err
	}
	st.notice = notice.Render(b.cfg.Copyright, closure, b.exclude)
	outdated, err := notice.Outdated(b.dir, st.notice)
	if err != nil {
		return nil, err
	}
	if !outdated {
		return nil, nil
	}
	return []Violation{{Type: OutdatedNotice, Message: notice.FileName + " is outdated"}}, nil
}

func (b *Bundle) checkResources(_ context.Context, _ *state) ([]Violation, error) {
	var violations []Violation
	for _, m := range resource.Verify(b.dir, b.cfg.Resources) {
		violations = append(violations, Violation{Type: MissingResource, Message: m.Message()})
	}
	return violations, nil
}
