// Package cli implements the nodebundle command-line interface.
//
// The commands validate, fix and pack a single npm package; graph prints
// its module or dependency graph. Bundle options come from persistent flags
// layered over an optional nodebundle.toml or nodebundle.yaml in the package
// directory. The CLI is built using cobra and logs via charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - validate: Report license, circular import, NOTICE and resource violations
//   - fix: Repair fixable violations such as an outdated NOTICE
//   - pack: Bundle, sanity-test and archive the package
//   - graph: Print the module or dependency graph as DOT, SVG or JSON
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context, where the observability hooks installed
// by [InstallHooks] pick them up.
//
// # Example
//
//	c := cli.New(os.Stderr, cli.LogInfo)
//	cli.InstallHooks()
//	if err := c.RootCommand().ExecuteContext(ctx); err != nil {
//	    os.Exit(1)
//	}
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Validated package (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const (
	loggerKey ctxKey = iota
	spinnerKey
)

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default() if none
// is attached.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

func withSpinner(ctx context.Context, s *Spinner) context.Context {
	return context.WithValue(ctx, spinnerKey, s)
}

// spinnerFromContext returns the running spinner, or nil.
func spinnerFromContext(ctx context.Context) *Spinner {
	s, _ := ctx.Value(spinnerKey).(*Spinner)
	return s
}
