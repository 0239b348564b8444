package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/nodebundle/pkg/dag"
)

// ReadJSON decodes a JSON graph from r.
//
// The input must be a JSON object with "nodes" and "edges" arrays:
//
//	{
//	  "nodes": [{"id": "lib/foo.js"}, {"id": "lib/bar.js"}],
//	  "edges": [{"from": "lib/foo.js", "to": "lib/bar.js"}]
//	}
//
// ReadJSON returns an error if the JSON is malformed, a node ID is
// duplicated, or an edge references an unknown node. Cycles are accepted:
// module graphs may contain them. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*dag.DAG, error) {
	var data graph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	g := dag.New(nil)
	for _, n := range data.Nodes {
		if err := g.AddNode(dag.Node{ID: n.ID, Meta: n.Meta}); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
	}
	for _, e := range data.Edges {
		if err := g.AddEdge(dag.Edge{From: e.From, To: e.To, Meta: e.Meta}); err != nil {
			return nil, fmt.Errorf("edge %s->%s: %w", e.From, e.To, err)
		}
	}
	return g, nil
}

// ImportJSON reads a JSON graph file written by [ExportJSON].
func ImportJSON(path string) (*dag.DAG, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
