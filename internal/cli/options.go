package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/nodebundle/pkg/bundle"
	"github.com/matzehuels/nodebundle/pkg/resource"
)

// =============================================================================
// Bundle Flags
// =============================================================================

// bundleFlags holds the persistent flags shared by every bundle command.
type bundleFlags struct {
	packageDir    string
	configPath    string
	copyright     string
	entrypoints   []string
	externals     []string
	licenses      []string
	resources     []string
	dontAttribute string
	test          string
	bundler       string
	esbuild       string
	archiver      string
	timeout       time.Duration
}

func (f *bundleFlags) register(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.StringVarP(&f.packageDir, "package-dir", "C", ".", "package directory")
	fs.StringVar(&f.configPath, "config", "", "config file (default: nodebundle.toml or nodebundle.yaml in the package directory)")
	fs.StringVar(&f.copyright, "copyright", "", "copyright statement for the NOTICE file")
	fs.StringArrayVar(&f.entrypoints, "entrypoint", nil, "entry point to bundle (repeatable)")
	fs.StringArrayVar(&f.externals, "external", nil, "package left out of the bundle, as name[:optional|peer] (repeatable)")
	fs.StringArrayVar(&f.licenses, "license", nil, "allowed dependency license (repeatable)")
	fs.StringArrayVar(&f.resources, "resource", nil, "extra file copied into the bundle, as src[:dest] (repeatable)")
	fs.StringVar(&f.dontAttribute, "dont-attribute", "", "regexp of dependencies left out of the NOTICE file")
	fs.StringVar(&f.test, "test", "", "sanity-test command run inside the bundle before archiving")
	fs.StringVar(&f.bundler, "bundler", "", "bundler: esbuild or scan (default esbuild)")
	fs.StringVar(&f.esbuild, "esbuild", "", "esbuild executable (default: esbuild on PATH)")
	fs.StringVar(&f.archiver, "archiver", "", "archiver: native or npm (default native)")
	fs.DurationVar(&f.timeout, "timeout", 0, "overall pack timeout (default 10m)")
}

// config merges the config file with the flags the user set explicitly.
func (f *bundleFlags) config(fs *pflag.FlagSet, logger *log.Logger) (bundle.Config, error) {
	cfg := bundle.Config{PackageDir: f.packageDir}

	path := f.configPath
	if path == "" {
		found, err := bundle.FindFile(f.packageDir)
		if err != nil {
			return cfg, err
		}
		path = found
	}
	if path != "" {
		file, err := bundle.LoadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := file.Apply(&cfg); err != nil {
			return cfg, err
		}
		logger.Debug("loaded config file", "path", path)
	}

	if fs.Changed("copyright") {
		cfg.Copyright = f.copyright
	}
	if fs.Changed("entrypoint") {
		cfg.Entrypoints = f.entrypoints
	}
	if fs.Changed("external") {
		cfg.Externals = nil
		for _, s := range f.externals {
			x, err := bundle.ParseExternal(s)
			if err != nil {
				return cfg, err
			}
			cfg.Externals = append(cfg.Externals, x)
		}
	}
	if fs.Changed("license") {
		cfg.Licenses = f.licenses
	}
	if fs.Changed("resource") {
		cfg.Resources = nil
		for _, s := range f.resources {
			m, err := resource.Parse(s)
			if err != nil {
				return cfg, err
			}
			cfg.Resources = append(cfg.Resources, m)
		}
	}
	if fs.Changed("dont-attribute") {
		cfg.DontAttribute = f.dontAttribute
	}
	if fs.Changed("test") {
		cfg.Test = f.test
	}
	if fs.Changed("bundler") {
		cfg.Bundler = f.bundler
	}
	if fs.Changed("esbuild") {
		cfg.Esbuild = f.esbuild
	}
	if fs.Changed("archiver") {
		cfg.Archiver = f.archiver
	}
	if fs.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	return cfg, nil
}

// newBundle builds a bundle from the command's flags.
func (c *CLI) newBundle(cmd *cobra.Command) (*bundle.Bundle, error) {
	cfg, err := c.flags.config(cmd.Flags(), c.Logger)
	if err != nil {
		return nil, err
	}
	return bundle.New(cfg, bundle.WithLogger(c.Logger))
}

// commandContext attaches the CLI logger to the command's context.
func (c *CLI) commandContext(cmd *cobra.Command) context.Context {
	return withLogger(cmd.Context(), c.Logger)
}
