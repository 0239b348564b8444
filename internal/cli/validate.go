package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nodebundle/pkg/bundle"
	"github.com/matzehuels/nodebundle/pkg/errors"
)

// validateCommand creates the validate command. It exits non-zero when the
// package has violations, listing one "- type: message" line per violation.
func (c *CLI) validateCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the package is ready for bundling",
		Long: `Validate runs the license, circular import, NOTICE and resource checks
and reports every violation found. Violations marked (fixable) can be
repaired with 'nodebundle fix'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := c.newBundle(cmd)
			if err != nil {
				return err
			}

			prog := newProgress(c.Logger)
			report, err := b.Validate(c.commandContext(cmd))
			if err != nil {
				return err
			}

			if asJSON {
				if err := writeReport(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			}
			if report.Success {
				if !asJSON {
					printSuccess("Package is valid")
				}
				prog.done("Validated package")
				return nil
			}

			if !asJSON {
				for _, v := range report.Violations {
					printViolation(cmd.ErrOrStderr(), v)
				}
			}
			return errors.New(errors.ErrCodeValidationFailed, "%d violations detected", len(report.Violations))
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

// fixCommand creates the fix command.
func (c *CLI) fixCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fix",
		Short: "Fix whatever can be fixed for bundling",
		Long: `Fix repairs the violations that can be repaired automatically, such as
an outdated NOTICE file. Other violations are left for 'nodebundle validate'
to report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := c.newBundle(cmd)
			if err != nil {
				return err
			}

			fixed, err := b.Fix(c.commandContext(cmd))
			if err != nil {
				return err
			}
			if len(fixed) == 0 {
				printInfo("Nothing to fix")
				return nil
			}
			printSuccess("Fixed %d violation(s)", len(fixed))
			for _, v := range fixed {
				printDetail("%s", v)
			}
			return nil
		},
	}
}

func writeReport(w io.Writer, report *bundle.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
