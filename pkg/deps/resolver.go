package deps

import (
	"context"
	"errors"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/nodebundle/pkg/dag"
)

// ProjectRoot is the ID of the node representing the package being bundled.
const ProjectRoot = "__project__"

// Closure builds the dependency closure of the package rooted at dir and
// returns it sorted by name, then version.
func Closure(ctx context.Context, reader TreeReader, dir string, opts Options) ([]Dependency, error) {
	g, err := BuildGraph(ctx, reader, dir, opts)
	if err != nil {
		return nil, err
	}
	return Dependencies(g), nil
}

// BuildGraph walks the installed tree reachable from the package rooted at
// dir and returns it as a graph. The root is [ProjectRoot]; every other node
// is a bundled dependency keyed by "name@version" with "name", "version",
// "licenses" and "path" metadata.
//
// The root's devDependencies and peerDependencies are not followed, and
// externals are neither included nor descended into. A required dependency
// that is not installed, or whose manifest cannot be read, aborts the walk
// with a *ResolutionError. A missing optional dependency is skipped.
//
// Manifests of one breadth-first level are read concurrently, but results are
// merged in sorted order, so the graph is the same on every run.
func BuildGraph(ctx context.Context, reader TreeReader, dir string, opts Options) (*dag.DAG, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	c := &crawler{
		ctx:     ctx,
		opts:    opts.WithDefaults(),
		reader:  reader,
		root:    root,
		g:       dag.New(nil),
		visited: make(map[string]bool),
	}
	return c.run()
}

type crawler struct {
	ctx    context.Context
	opts   Options
	reader TreeReader
	root   string

	g       *dag.DAG
	visited map[string]bool // install directories already descended into
}

type job struct {
	name     string
	parent   string // node ID of the requiring package
	fromDir  string
	optional bool
}

type result struct {
	pkg *Package
	err error
}

func (c *crawler) run() (*dag.DAG, error) {
	pkg, err := c.reader.ReadRoot(c.root)
	if err != nil {
		return nil, &ResolutionError{Name: "package.json", RequiredBy: c.root, Err: err}
	}
	_ = c.g.AddNode(dag.Node{ID: ProjectRoot, Meta: dag.Metadata{
		"name":    pkg.Name,
		"version": pkg.Version,
		"virtual": true,
	}})
	c.visited[pkg.Dir] = true

	level := c.jobsFor(pkg, ProjectRoot)
	for len(level) > 0 {
		if err := c.ctx.Err(); err != nil {
			return nil, err
		}
		results := c.fetch(level)
		next, err := c.merge(level, results)
		if err != nil {
			return nil, err
		}
		level = next
	}
	return c.g, nil
}

// fetch resolves every job of a level concurrently. Results are stored by
// index so merge can consume them in job order.
func (c *crawler) fetch(level []job) []result {
	results := make([]result, len(level))
	var eg errgroup.Group
	eg.SetLimit(c.opts.Workers)
	for i, j := range level {
		eg.Go(func() error {
			pkg, err := c.reader.Resolve(c.root, j.fromDir, j.name)
			results[i] = result{pkg: pkg, err: err}
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

func (c *crawler) merge(level []job, results []result) ([]job, error) {
	var next []job
	for i, j := range level {
		r := results[i]
		if r.err != nil {
			if j.optional && errors.Is(r.err, ErrNotInstalled) {
				c.opts.Logger("skipping optional dependency %s of %s: not installed", j.name, j.parent)
				continue
			}
			return nil, &ResolutionError{Name: j.name, RequiredBy: j.parent, Err: r.err}
		}

		id := r.pkg.ID()
		if _, ok := c.g.Node(id); !ok {
			_ = c.g.AddNode(dag.Node{ID: id, Meta: c.meta(r.pkg)})
		}
		_ = c.g.AddEdge(dag.Edge{From: j.parent, To: id})

		if c.visited[r.pkg.Dir] {
			continue
		}
		c.visited[r.pkg.Dir] = true
		next = append(next, c.jobsFor(r.pkg, id)...)
	}
	sort.SliceStable(next, func(a, b int) bool {
		if next[a].name != next[b].name {
			return next[a].name < next[b].name
		}
		return next[a].fromDir < next[b].fromDir
	})
	return next, nil
}

func (c *crawler) jobsFor(pkg *Package, parent string) []job {
	var jobs []job
	add := func(names []string, optional bool) {
		for _, name := range names {
			if c.opts.isExternal(name) {
				c.opts.Logger("excluding external dependency %s of %s", name, parent)
				continue
			}
			jobs = append(jobs, job{name: name, parent: parent, fromDir: pkg.Dir, optional: optional})
		}
	}
	add(pkg.Required(), false)
	add(pkg.Optional(), true)
	return jobs
}

func (c *crawler) meta(pkg *Package) dag.Metadata {
	path, err := filepath.Rel(c.root, pkg.Dir)
	if err != nil {
		path = pkg.Dir
	}
	return dag.Metadata{
		"name":     pkg.Name,
		"version":  pkg.Version,
		"licenses": pkg.Licenses,
		"declared": pkg.Declared,
		"path":     filepath.ToSlash(path),
	}
}

// Dependencies extracts the bundled dependencies from a graph produced by
// [BuildGraph], sorted by name, then version.
func Dependencies(g *dag.DAG) []Dependency {
	var out []Dependency
	for _, n := range g.Nodes() {
		if n.ID == ProjectRoot {
			continue
		}
		d := Dependency{}
		d.Name, _ = n.Meta["name"].(string)
		d.Version, _ = n.Meta["version"].(string)
		d.Licenses, _ = n.Meta["licenses"].([]string)
		d.Declared, _ = n.Meta["declared"].([]string)
		d.Path, _ = n.Meta["path"].(string)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out
}
