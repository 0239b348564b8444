// Package bundletest writes fixture packages for tests: a root package with
// an installed node_modules tree, optionally with circular local modules.
package bundletest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// DefaultVersion is the version of fixture packages that set none.
const DefaultVersion = "0.0.0"

// Entrypoint is the main module of every fixture root package.
const Entrypoint = "lib/foo.js"

// Package is a fixture package. Dependencies are installed flat under the
// root's node_modules.
type Package struct {
	Name     string
	Version  string
	Licenses []string // Written as "license" when one, "licenses" when several
	Circular bool     // lib/bar.js requires lib/foo.js back
	Notice   string   // Written as NOTICE when non-empty

	Dir  string
	deps []*Package
	t    testing.TB
}

// New returns a root fixture package in a fresh temporary directory.
func New(t testing.TB, name string, licenses ...string) *Package {
	t.Helper()
	return &Package{Name: name, Version: DefaultVersion, Licenses: licenses, Dir: t.TempDir(), t: t}
}

// AddDependency declares and installs a dependency of the root package.
func (p *Package) AddDependency(name string, licenses ...string) *Package {
	d := &Package{
		Name:     name,
		Version:  DefaultVersion,
		Licenses: licenses,
		Dir:      filepath.Join(p.Dir, "node_modules", filepath.FromSlash(name)),
		t:        p.t,
	}
	p.deps = append(p.deps, d)
	return d
}

// Write materializes the package and its installed dependencies.
func (p *Package) Write() *Package {
	p.t.Helper()
	dependencies := map[string]string{}
	var requires []string
	for _, d := range p.deps {
		dependencies[d.Name] = d.Version
		requires = append(requires, fmt.Sprintf("require('%s');", d.Name))
		d.writeManifest(nil)
		d.writeFile("index.js", fmt.Sprintf("module.exports = '%s';\n", d.Name))
	}
	p.writeManifest(map[string]any{
		"main":            Entrypoint,
		"dependencies":    dependencies,
		"devDependencies": map[string]string{"typescript": "^5.0.0"},
	})

	foo := append([]string{"require('./bar');"}, requires...)
	p.writeFile("lib/foo.js", strings.Join(foo, "\n")+"\n")
	bar := "module.exports = 'bar';\n"
	if p.Circular {
		bar = "require('./foo');\n" + bar
	}
	p.writeFile("lib/bar.js", bar)
	if p.Notice != "" {
		p.writeFile("NOTICE", p.Notice)
	}
	return p
}

// WriteFile writes an extra file relative to the package directory.
func (p *Package) WriteFile(rel, content string) {
	p.t.Helper()
	p.writeFile(rel, content)
}

func (p *Package) writeManifest(extra map[string]any) {
	p.t.Helper()
	m := map[string]any{"name": p.Name, "version": p.Version}
	switch len(p.Licenses) {
	case 0:
	case 1:
		m["license"] = p.Licenses[0]
	default:
		var ls []map[string]string
		for _, l := range p.Licenses {
			ls = append(ls, map[string]string{"type": l})
		}
		m["licenses"] = ls
	}
	for k, v := range extra {
		m[k] = v
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		p.t.Fatal(err)
	}
	p.writeFile("package.json", string(data)+"\n")
}

func (p *Package) writeFile(rel, content string) {
	p.t.Helper()
	path := filepath.Join(p.Dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		p.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		p.t.Fatal(err)
	}
}
