// Package nodelink renders module and dependency graphs as node-link
// diagrams.
//
// # Usage
//
// Convert a DAG to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// The generated DOT uses top-to-bottom layout (rankdir=TB) with rounded box
// nodes. Edges that close an import cycle, as marked by
// [github.com/matzehuels/nodebundle/pkg/imports.Cycles], are drawn red so the
// reported violation can be found in the picture.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering; no Graphviz installation is needed.
package nodelink
