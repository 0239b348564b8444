package cli

import (
	"context"
	"time"

	"github.com/matzehuels/nodebundle/pkg/observability"
)

// InstallHooks routes bundle and collaborator events to the logger carried
// by the command context. Call it once from main.
func InstallHooks() {
	observability.SetBundleHooks(logHooks{})
	observability.SetCollaboratorHooks(logHooks{})
}

// logHooks logs events at debug level and keeps the pack spinner's message
// in step with the running collaborator.
type logHooks struct{}

func (logHooks) OnCheckStart(ctx context.Context, check string) {
	loggerFromContext(ctx).Debug("check started", "check", check)
}

func (logHooks) OnCheckComplete(ctx context.Context, check string, violations int, d time.Duration, err error) {
	logger := loggerFromContext(ctx)
	if err != nil {
		logger.Debug("check failed", "check", check, "err", err)
		return
	}
	logger.Debug("check finished", "check", check, "violations", violations, "duration", d.Round(time.Millisecond))
}

func (logHooks) OnPackStart(ctx context.Context, pkg string) {
	loggerFromContext(ctx).Debug("pack started", "dir", pkg)
}

func (logHooks) OnPackComplete(ctx context.Context, tarball string, d time.Duration, err error) {
	loggerFromContext(ctx).Debug("pack finished", "tarball", tarball, "duration", d.Round(time.Millisecond), "err", err)
}

func (logHooks) OnInvoke(ctx context.Context, collaborator string) {
	if s := spinnerFromContext(ctx); s != nil {
		s.SetMessage("Running " + collaborator + "...")
	}
	loggerFromContext(ctx).Debug("invoking collaborator", "collaborator", collaborator)
}

func (logHooks) OnComplete(ctx context.Context, collaborator string, d time.Duration, err error) {
	loggerFromContext(ctx).Debug("collaborator finished", "collaborator", collaborator, "duration", d.Round(time.Millisecond), "err", err)
}
