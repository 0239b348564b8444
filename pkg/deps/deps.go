package deps

import (
	"fmt"
	"slices"
)

const (
	// UnknownLicense replaces a license field that is absent or not a
	// recognized identifier.
	UnknownLicense = "UNKNOWN"

	// DefaultWorkers bounds how many manifests are read concurrently.
	DefaultWorkers = 8
)

// Options configures closure building.
type Options struct {
	Externals []string             // Package names excluded from the closure
	Workers   int                  // Concurrent manifest reads (default: 8)
	Logger    func(string, ...any) // Progress/debug callback (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	return opts
}

func (o Options) isExternal(name string) bool {
	return slices.Contains(o.Externals, name)
}

// Dependency is a third-party package bundled into the artifact.
// It is identified by (Name, Version).
type Dependency struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Licenses []string `json:"licenses"`           // Deduplicated, in declaration order
	Declared []string `json:"declared,omitempty"` // Raw license values from the manifest
	Path     string   `json:"path"`               // Install directory relative to the package root
}

// ID returns the "name@version" identity of the dependency.
func (d Dependency) ID() string { return ID(d.Name, d.Version) }

// ID formats a dependency identity.
func ID(name, version string) string { return name + "@" + version }

// ResolutionError reports a required dependency that could not be located in
// the installed tree, or whose manifest could not be read.
type ResolutionError struct {
	Name       string // Dependency that failed to resolve
	RequiredBy string // Identity of the requiring package
	Err        error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s (required by %s): %v", e.Name, e.RequiredBy, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ResolutionError) Unwrap() error { return e.Err }
