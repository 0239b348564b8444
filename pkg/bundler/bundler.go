// Package bundler defines the module compiler used to analyze and bundle a
// package's entry points, with two implementations:
//
//   - [Esbuild] runs the esbuild binary and reads its metafile.
//   - [Scan] follows require/import statements natively and bundles by
//     copying every reachable file. It needs no Node toolchain.
//
// Both report module paths relative to the package root, with forward
// slashes.
package bundler

import (
	"context"
	"maps"
	"slices"
)

// ModuleSet is the module graph reachable from a set of entry points.
type ModuleSet struct {
	// Files lists every reachable module, sorted.
	Files []string `json:"files"`
	// Imports maps a module to the modules it references, sorted.
	Imports map[string][]string `json:"imports"`
}

// Add records that from references to. Either may be new.
func (m *ModuleSet) Add(from string, to ...string) {
	if m.Imports == nil {
		m.Imports = make(map[string][]string)
	}
	if _, ok := m.Imports[from]; !ok {
		m.Imports[from] = nil
	}
	for _, t := range to {
		if _, ok := m.Imports[t]; !ok {
			m.Imports[t] = nil
		}
		if !slices.Contains(m.Imports[from], t) {
			m.Imports[from] = append(m.Imports[from], t)
		}
	}
}

// normalize sorts Files and every import list.
func (m *ModuleSet) normalize() {
	for f, refs := range m.Imports {
		slices.Sort(refs)
		m.Imports[f] = refs
	}
	m.Files = slices.Sorted(maps.Keys(m.Imports))
}

// Compiler analyzes and bundles entry points.
type Compiler interface {
	// Analyze returns the module graph reachable from entrypoints in the
	// package rooted at dir. Externals are not followed.
	Analyze(ctx context.Context, dir string, entrypoints []string, externals []string) (*ModuleSet, error)

	// Bundle writes the bundled entry points into outdir, keeping their
	// package-relative paths. Externals are left as run-time imports.
	Bundle(ctx context.Context, dir string, entrypoints []string, outdir string, externals []string) error
}
