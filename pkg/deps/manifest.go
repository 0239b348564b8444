package deps

import (
	"errors"
	"maps"
	"slices"
)

// ErrNotInstalled is returned by [TreeReader.Resolve] when no installed copy
// of a package is reachable from the requiring package.
var ErrNotInstalled = errors.New("not installed")

// Package is a manifest read from the installed dependency tree.
type Package struct {
	Name                 string            // Package name
	Version              string            // Installed version
	Main                 string            // Entry module relative to Dir
	Licenses             []string          // Normalized license identifiers
	Declared             []string          // License values as written in the manifest
	Dependencies         map[string]string // Run-time dependencies
	OptionalDependencies map[string]string // Dependencies that may be absent
	DevDependencies      map[string]string // Never followed
	PeerDependencies     map[string]string // Never followed
	Dir                  string            // Absolute directory containing the manifest
}

// ID returns the "name@version" identity of the package.
func (p *Package) ID() string { return ID(p.Name, p.Version) }

// Required returns the names this package needs at run time, sorted.
// Names listed as both required and optional count as required.
func (p *Package) Required() []string {
	return slices.Sorted(maps.Keys(p.Dependencies))
}

// Optional returns the optional dependency names that are not also required, sorted.
func (p *Package) Optional() []string {
	var names []string
	for name := range p.OptionalDependencies {
		if _, ok := p.Dependencies[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// TreeReader reads manifests from an already-installed dependency tree.
type TreeReader interface {
	// ReadRoot reads the manifest of the package rooted at dir.
	ReadRoot(dir string) (*Package, error)
	// Resolve locates the installed copy of name as seen from the package in
	// fromDir, never looking above root. Returns ErrNotInstalled (possibly
	// wrapped) when no copy exists.
	Resolve(root, fromDir, name string) (*Package, error)
}
