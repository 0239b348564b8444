// Package pkg provides the libraries behind nodebundle, a tool that turns an
// npm package into a self-contained tarball.
//
// # Overview
//
// Bundling copies third-party code into the shipped package, so nodebundle
// refuses to pack until the package is fit to redistribute it: every bundled
// dependency carries an allowed license, the entry points import no module
// cycle, the NOTICE file attributes every bundled dependency and every
// declared resource exists. The pkg directory is organized into three areas:
//
//  1. Checks - [deps], [license], [imports], [notice], [resource]
//  2. Orchestration - [bundle] (validate, fix, pack)
//  3. Collaborators - [bundler], [shell], [archive]
//
// # Architecture
//
// The data flow of one pack run:
//
//	package.json + node_modules
//	         ↓
//	    [deps] (dependency closure)  →  [license], [notice]
//	         ↓
//	    [bundler] module graph  →  [imports] (cycles)
//	         ↓
//	    [bundle] staging copy + shipped manifest
//	         ↓
//	    [bundler] bundle → [resource] copy → [shell] sanity test
//	         ↓
//	    [archive] <name>-<version>.tgz
//
// # Quick Start
//
//	b, err := bundle.New(bundle.Config{
//	    PackageDir:  ".",
//	    Copyright:   "Copyright Example Corp.",
//	    Entrypoints: []string{"lib/index.js"},
//	    Licenses:    []string{"Apache-2.0", "MIT"},
//	})
//	if err != nil {
//	    return err
//	}
//	report, err := b.Validate(ctx)
//
// # Supporting Packages
//
// [dag] - Directed graph keyed by node ID, used for both the module graph
// and the dependency graph. [dag/transform] finds the back edges that close
// import cycles.
//
// [io] - JSON import and export of graphs, and the tree copy used to stage
// a package.
//
// [render/nodelink] - DOT and SVG rendering of graphs, with cycle edges
// highlighted.
//
// [errors] - Coded errors shared by every package, plus path and package
// name validation.
//
// [observability] - Hooks for check, pack and collaborator events.
//
// [buildinfo] - Version information injected at build time.
//
// [deps]: https://pkg.go.dev/github.com/matzehuels/nodebundle/pkg/deps
// [license]: https://pkg.go.dev/github.com/matzehuels/nodebundle/pkg/license
// [imports]: https://pkg.go.dev/github.com/matzehuels/nodebundle/pkg/imports
// [notice]: https://pkg.go.dev/github.com/matzehuels/nodebundle/pkg/notice
// [resource]: https://pkg.go.dev/github.com/matzehuels/nodebundle/pkg/resource
// [bundle]: https://pkg.go.dev/github.com/matzehuels/nodebundle/pkg/bundle
// [bundler]: https://pkg.go.dev/github.com/matzehuels/nodebundle/pkg/bundler
// [shell]: https://pkg.go.dev/github.com/matzehuels/nodebundle/pkg/shell
// [archive]: https://pkg.go.dev/github.com/matzehuels/nodebundle/pkg/archive
// [dag]: https://pkg.go.dev/github.com/matzehuels/nodebundle/pkg/dag
// [dag/transform]: https://pkg.go.dev/github.com/matzehuels/nodebundle/pkg/dag/transform
// [io]: https://pkg.go.dev/github.com/matzehuels/nodebundle/pkg/io
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/nodebundle/pkg/render/nodelink
// [errors]: https://pkg.go.dev/github.com/matzehuels/nodebundle/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/nodebundle/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/nodebundle/pkg/buildinfo
package pkg
