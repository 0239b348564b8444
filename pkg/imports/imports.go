// Package imports detects circular references among a package's own
// modules.
//
// The module graph comes from a [bundler.Compiler], so it reflects what is
// actually bundled rather than every file on disk. Only local modules become
// graph nodes: files under node_modules are third-party code and their
// cycles are not the package's concern.
//
// Detection is a depth-first search with three-color marking
// ([transform.FindBackEdges]). Each back edge found closes one cycle and is
// reported as a single [Cycle]; the full cycle path is not reconstructed.
// When two cycles share their closing edge only one of them is reported,
// and which one depends on search order.
package imports

import (
	"context"
	"path"
	"slices"
	"strings"

	"github.com/matzehuels/nodebundle/pkg/bundler"
	"github.com/matzehuels/nodebundle/pkg/dag"
	"github.com/matzehuels/nodebundle/pkg/dag/transform"
)

// Cycle is the edge that closes a circular reference.
type Cycle struct {
	From string // Package-relative path of the referencing module
	To   string // Package-relative path of the referenced module
}

// String formats the cycle as "from -> to".
func (c Cycle) String() string { return c.From + " -> " + c.To }

// Local reports whether a package-relative module path belongs to the
// package itself.
func Local(file string) bool {
	return file != "" && !strings.HasPrefix(file, "node_modules/") && !strings.Contains(file, "/node_modules/")
}

// Graph builds the graph of local modules. Entry points are flagged with
// "entry" node metadata.
func Graph(set *bundler.ModuleSet, entrypoints []string) *dag.DAG {
	g := dag.New(nil)
	for _, f := range set.Files {
		if Local(f) {
			_ = g.AddNode(dag.Node{ID: f})
		}
	}
	for _, ep := range Normalize(entrypoints) {
		if n, ok := g.Node(ep); ok {
			n.Meta["entry"] = true
		}
	}
	for _, f := range set.Files {
		if !Local(f) {
			continue
		}
		for _, to := range set.Imports[f] {
			if Local(to) {
				_ = g.AddEdge(dag.Edge{From: f, To: to})
			}
		}
	}
	return g
}

// Cycles returns the closing edge of every cycle in g. The search starts at
// the entry points in the given order, then continues with the remaining
// modules sorted by path. Back edges are flagged with "back" edge metadata.
func Cycles(g *dag.DAG, entrypoints []string) []Cycle {
	back := transform.FindBackEdges(g, Normalize(entrypoints)...)
	cycles := make([]Cycle, 0, len(back))
	for _, e := range back {
		cycles = append(cycles, Cycle{From: e.From, To: e.To})
	}
	for _, e := range g.Edges() {
		if slices.ContainsFunc(cycles, func(c Cycle) bool { return c.From == e.From && c.To == e.To }) {
			e.Meta["back"] = true
		}
	}
	return cycles
}

// Detect analyzes the package rooted at dir and returns its module graph
// and the cycles found in it. Imports of externals are left unresolved.
func Detect(ctx context.Context, c bundler.Compiler, dir string, entrypoints, externals []string) (*dag.DAG, []Cycle, error) {
	set, err := c.Analyze(ctx, dir, entrypoints, externals)
	if err != nil {
		return nil, nil, err
	}
	g := Graph(set, entrypoints)
	return g, Cycles(g, entrypoints), nil
}

// Normalize converts entry points to the slash-separated, cleaned form used
// for module paths.
func Normalize(entrypoints []string) []string {
	out := make([]string, len(entrypoints))
	for i, ep := range entrypoints {
		out[i] = path.Clean(strings.ReplaceAll(ep, "\\", "/"))
	}
	return out
}
