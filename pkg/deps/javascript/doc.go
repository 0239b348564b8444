// Package javascript reads npm package manifests and installed node_modules
// trees.
//
// # Manifest Parsing
//
// [ReadManifest] parses a package.json into a [deps.Package]. License
// declarations are accepted in every shape found in the wild:
//
//	"license": "MIT"
//	"license": "(MIT OR Apache-2.0)"
//	"license": {"type": "MIT", "url": "..."}
//	"licenses": [{"type": "MIT"}, {"type": "Apache-2.0"}]
//
// Missing or unrecognized declarations become [deps.UnknownLicense].
//
// # Installed Trees
//
// [NodeModules] implements [deps.TreeReader] over an installed tree:
//
//	closure, err := deps.Closure(ctx, javascript.NodeModules{}, dir, deps.Options{})
//
// Nested installs shadow hoisted ones, as they do for Node itself.
//
// [deps.Package]: github.com/matzehuels/nodebundle/pkg/deps.Package
// [deps.TreeReader]: github.com/matzehuels/nodebundle/pkg/deps.TreeReader
// [deps.UnknownLicense]: github.com/matzehuels/nodebundle/pkg/deps.UnknownLicense
package javascript
