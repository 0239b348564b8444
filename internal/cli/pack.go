package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nodebundle/pkg/bundle"
)

// packCommand creates the pack command for writing the package tarball.
func (c *CLI) packCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Create the tarball",
		Long: `Pack validates the package, bundles its entry points into a staging copy,
copies the declared resources, runs the sanity test and writes
<name>-<version>.tgz into the package directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := c.newBundle(cmd)
			if err != nil {
				return err
			}
			ctx := c.commandContext(cmd)

			// Debug logs would interleave with the spinner line.
			var spinner *Spinner
			if !asJSON && c.Logger.GetLevel() > LogDebug {
				spinner = newSpinnerWithContext(ctx, "Packing "+b.Dir()+"...")
				spinner.Start()
				ctx = withSpinner(ctx, spinner)
			}

			res, err := b.Pack(ctx)
			if spinner != nil {
				if err != nil {
					spinner.StopWithError("Pack failed")
				} else {
					spinner.Stop()
				}
			}
			if err != nil {
				return err
			}

			if asJSON {
				return writePackResult(cmd, res)
			}
			printSuccess("Packed %s", res.Tarball)
			printKeyValue("Size", formatSize(res.Size))
			printKeyValue("Integrity", res.Integrity)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func writePackResult(cmd *cobra.Command, res *bundle.PackResult) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// formatSize renders a byte count the way npm pack does.
func formatSize(n int64) string {
	switch {
	case n >= 1e6:
		return fmt.Sprintf("%.1f MB", float64(n)/1e6)
	case n >= 1e3:
		return fmt.Sprintf("%.1f kB", float64(n)/1e3)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
