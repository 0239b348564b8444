// Package cli implements the nodebundle command-line interface.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/nodebundle/pkg/buildinfo"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "nodebundle"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	flags bundleFlags
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "nodebundle validates, fixes and packs self-contained npm packages",
		Long: `nodebundle turns an npm package into a self-contained tarball.

It checks that every bundled dependency carries an allowed license, that the
entry points are free of circular imports, that the NOTICE file attributes
all bundled dependencies and that declared resources exist. Once the package
is valid it bundles, sanity-tests and archives it.

Options are read from nodebundle.toml or nodebundle.yaml in the package
directory when present; flags override the file.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	c.flags.register(root)

	root.AddCommand(c.validateCommand())
	root.AddCommand(c.fixCommand())
	root.AddCommand(c.packCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.completionCommand())

	return root
}
