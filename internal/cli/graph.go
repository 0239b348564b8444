package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nodebundle/pkg/dag"
	graphio "github.com/matzehuels/nodebundle/pkg/io"
	"github.com/matzehuels/nodebundle/pkg/render/nodelink"
)

const (
	formatDOT  = "dot"
	formatSVG  = "svg"
	formatJSON = "json"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	deps     bool   // dependency graph instead of the module graph
	from     string // previously exported JSON graph
	format   string // dot, svg or json
	output   string // output file; stdout when empty
	detailed bool   // node metadata in DOT labels
}

// graphCommand creates the graph command. It prints the module import graph
// of the entry points (cycle edges highlighted) or the installed dependency
// graph.
func (c *CLI) graphCommand() *cobra.Command {
	opts := graphOpts{format: formatDOT}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the module or dependency graph",
		Long: `Graph prints the import graph reachable from the entry points, with the
edges that close a circular import highlighted. With --deps it prints the
installed dependency graph instead. Graphs exported as JSON can be rendered
later with --from.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := c.commandContext(cmd)
			g, err := c.loadGraph(ctx, cmd, opts)
			if err != nil {
				return err
			}
			c.Logger.Debug("graph loaded", "nodes", g.NodeCount(), "edges", g.EdgeCount())

			data, err := encodeGraph(ctx, g, opts)
			if err != nil {
				return err
			}
			if opts.output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(opts.output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", opts.output, err)
			}
			printSuccess("Wrote %s graph", opts.format)
			printFile(opts.output)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.deps, "deps", false, "print the dependency graph instead of the module graph")
	cmd.Flags().StringVar(&opts.from, "from", "", "render a graph previously exported with --format json")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: dot, svg or json")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include node metadata in labels")
	cmd.MarkFlagsMutuallyExclusive("deps", "from")

	return cmd
}

func (c *CLI) loadGraph(ctx context.Context, cmd *cobra.Command, opts graphOpts) (*dag.DAG, error) {
	if opts.from != "" {
		return graphio.ImportJSON(opts.from)
	}
	b, err := c.newBundle(cmd)
	if err != nil {
		return nil, err
	}
	if opts.deps {
		return b.DependencyGraph(ctx)
	}
	return b.ModuleGraph(ctx)
}

func encodeGraph(ctx context.Context, g *dag.DAG, opts graphOpts) ([]byte, error) {
	switch opts.format {
	case formatJSON:
		var buf bytes.Buffer
		if err := graphio.WriteJSON(g, &buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case formatDOT:
		return []byte(nodelink.ToDOT(g, nodelink.Options{Detailed: opts.detailed})), nil
	case formatSVG:
		return nodelink.RenderSVG(ctx, nodelink.ToDOT(g, nodelink.Options{Detailed: opts.detailed}))
	default:
		return nil, fmt.Errorf("unknown format %q (want %s, %s or %s)", opts.format, formatDOT, formatSVG, formatJSON)
	}
}
