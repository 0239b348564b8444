// Package dag provides an identity-keyed directed graph used for both the
// module reference graph and the dependency closure.
//
// # Overview
//
// Nodes are stored in a map keyed by their ID rather than linked to each
// other, so a node that is reachable along many paths exists exactly once
// and traversal order is always an explicit choice of the caller. Module
// graphs use package-relative file paths as IDs; dependency graphs use
// "name@version".
//
// # Basic Usage
//
// Create a new graph with [New], add nodes with [DAG.AddNode], and edges with
// [DAG.AddEdge]:
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: "lib/foo.js"})
//	g.AddNode(dag.Node{ID: "lib/bar.js"})
//	g.AddEdge(dag.Edge{From: "lib/foo.js", To: "lib/bar.js"})
//
// [DAG.Nodes] returns nodes sorted by ID so iteration is reproducible.
// Cyclic graphs are accepted; use [DAG.Validate] to check acyclicity, or the
// [transform] subpackage to locate the edges that close each cycle.
//
// # Concurrency
//
// DAG instances are not safe for concurrent use. Callers must synchronize
// access if multiple goroutines read or modify the same graph.
//
// [transform]: github.com/matzehuels/nodebundle/pkg/dag/transform
package dag
