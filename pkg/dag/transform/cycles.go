package transform

import (
	"slices"

	"github.com/matzehuels/nodebundle/pkg/dag"
)

// FindBackEdges returns the edges that close a cycle in g, one per detected
// cycle, in the order the search discovers them.
//
// FindBackEdges uses depth-first search with white/gray/black coloring. An
// edge pointing at a gray node (one still on the DFS stack) closes a cycle
// and is reported. The graph is not modified.
//
// # Ordering
//
// The search starts from roots in the given order, then visits any remaining
// unvisited nodes sorted by ID to cover disconnected components. Children are
// always visited sorted by ID. Given the same graph and roots, the result is
// identical across runs.
//
// # Shared Edges
//
// Only the closing edge is reported, not the cycle path. When two cycles
// share their closing edge, that edge is reported once and which cycle it
// is attributed to depends on the search order.
//
// Roots that are not in g are ignored. Self-loops are reported as cycles.
func FindBackEdges(g *dag.DAG, roots ...string) []dag.Edge {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, g.NodeCount())
	var backEdges []dag.Edge

	var dfs func(node string)
	dfs = func(node string) {
		color[node] = gray
		children := slices.Clone(g.Children(node))
		slices.Sort(children)
		for _, child := range slices.Compact(children) {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				backEdges = append(backEdges, dag.Edge{From: node, To: child})
			}
		}
		color[node] = black
	}

	for _, id := range roots {
		if _, ok := g.Node(id); ok && color[id] == white {
			dfs(id)
		}
	}

	for _, n := range g.Nodes() {
		if color[n.ID] == white {
			dfs(n.ID)
		}
	}

	return backEdges
}
