package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/nodebundle/pkg/dag"
)

type graph struct {
	Nodes []node `json:"nodes"`
	Edges []edge `json:"edges"`
}

type node struct {
	ID   string       `json:"id"`
	Meta dag.Metadata `json:"meta,omitempty"`
}

type edge struct {
	From string       `json:"from"`
	To   string       `json:"to"`
	Meta dag.Metadata `json:"meta,omitempty"`
}

// WriteJSON encodes a graph as JSON and writes it to w.
// Nodes are sorted by ID and edges follow them in source order, so the
// output is stable for an unchanged graph. It can be re-imported with
// [ReadJSON].
func WriteJSON(g *dag.DAG, w io.Writer) error {
	out := graph{
		Nodes: make([]node, 0, g.NodeCount()),
		Edges: make([]edge, 0, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		out.Nodes = append(out.Nodes, node{ID: n.ID, Meta: n.Meta})
	}
	for _, e := range g.Edges() {
		out.Edges = append(out.Edges, edge{From: e.From, To: e.To, Meta: e.Meta})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes a graph to a JSON file at path.
func ExportJSON(g *dag.DAG, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(g, f)
}
