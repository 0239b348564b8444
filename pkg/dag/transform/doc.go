// Package transform provides cycle analysis over a [dag.DAG].
//
// # Cycle Detection
//
// [FindBackEdges] locates the edge that closes each cycle using a
// three-color depth-first search. Module graphs use it to report circular
// imports as "from -> to" pairs, and the graph renderer uses it to
// highlight those edges.
//
// The search is deterministic: roots are visited in the order given,
// everything else and every adjacency list in sorted order.
//
// [dag.DAG]: github.com/matzehuels/nodebundle/pkg/dag.DAG
package transform
