// Package shell runs the sanity-test command configured for a bundle.
//
// Commands are interpreted by mvdan.cc/sh rather than a system shell, so a
// test like "node ./bin/cli.js --version && test -f lib/index.js" behaves the
// same on every platform.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Runner executes a command line in a directory.
type Runner interface {
	Run(ctx context.Context, dir, command string) error
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Output  string // Combined stdout and stderr
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", e.Command, e.Code)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\nOutput:\n" + out
	}
	return msg
}

// Interp runs commands with the mvdan.cc/sh interpreter.
type Interp struct {
	// Env is appended to the current process environment.
	Env []string
	// Output, if set, also receives the command's stdout and stderr as they
	// are produced.
	Output io.Writer
}

var _ Runner = Interp{}

// Run parses and executes command with dir as working directory.
func (s Interp) Run(ctx context.Context, dir, command string) error {
	prog, err := syntax.NewParser().Parse(strings.NewReader(command), "test")
	if err != nil {
		return fmt.Errorf("failed to parse command: %w", err)
	}

	var buf bytes.Buffer
	var out io.Writer = &buf
	if s.Output != nil {
		out = io.MultiWriter(&buf, s.Output)
	}
	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(append(os.Environ(), s.Env...)...)),
		interp.StdIO(nil, out, out),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return &ExitError{Command: command, Code: int(status), Output: buf.String()}
		}
		return err
	}
	return nil
}
