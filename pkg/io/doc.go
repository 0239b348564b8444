// Package io provides JSON import and export for graphs and the file-tree
// copying used when staging a package.
//
// # JSON Format
//
// Graphs (module graphs and dependency closures) are serialized as two
// arrays:
//
//	{
//	  "nodes": [
//	    {"id": "lib/foo.js"},
//	    {"id": "lib/bar.js"}
//	  ],
//	  "edges": [
//	    {"from": "lib/foo.js", "to": "lib/bar.js"},
//	    {"from": "lib/bar.js", "to": "lib/foo.js", "meta": {"back": true}}
//	  ]
//	}
//
// Node and edge meta objects are free-form. Dependency graphs carry "name",
// "version", "licenses" and "path" on every node.
//
// # Export and Import
//
//	err := io.ExportJSON(g, "modules.json")
//	g, err := io.ImportJSON("modules.json")
//
// [WriteJSON] and [ReadJSON] work on any io.Writer or io.Reader.
//
// # Copying
//
// [CopyTree] copies a directory tree with a [SkipFunc] filter; it is used to
// stage a package before bundling and by the native bundler to vendor
// reachable files.
package io
