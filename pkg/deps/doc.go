// Package deps computes the dependency closure of an npm package from its
// installed node_modules tree.
//
// # Overview
//
// The closure is the flattened set of third-party packages that end up
// inside the bundled artifact. It is recomputed on every run; nothing is
// cached between runs.
//
// # Architecture
//
// The closure builder has two layers:
//
//  1. Tree readers ([TreeReader]): locate and parse installed manifests.
//     The [javascript] subpackage implements Node's node_modules lookup.
//  2. The crawler (this package): breadth-first walk from the root manifest
//     that builds a [dag.DAG] keyed by "name@version".
//
// # Building a Closure
//
//	closure, err := deps.Closure(ctx, javascript.NodeModules{}, dir, deps.Options{
//	    Externals: []string{"fsevents"},
//	})
//
// The crawler:
//
//  1. Reads the root package.json
//  2. Follows dependencies and optionalDependencies (never devDependencies)
//  3. Skips externals without descending into them
//  4. Fails with a [*ResolutionError] when a required package is missing
//
// # Determinism
//
// Manifests within one level are read in parallel ([Options].Workers), but
// results are merged in job order and the final list is sorted by name and
// version, so repeated runs over an unchanged tree produce identical output.
//
// [javascript]: github.com/matzehuels/nodebundle/pkg/deps/javascript
// [dag.DAG]: github.com/matzehuels/nodebundle/pkg/dag.DAG
package deps
