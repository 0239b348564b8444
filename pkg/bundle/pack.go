package bundle

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/nodebundle/pkg/archive"
	"github.com/matzehuels/nodebundle/pkg/errors"
	"github.com/matzehuels/nodebundle/pkg/io"
	"github.com/matzehuels/nodebundle/pkg/observability"
	"github.com/matzehuels/nodebundle/pkg/resource"
)

// PackResult describes the tarball written by [Bundle.Pack].
type PackResult struct {
	Tarball   string        `json:"tarball"`   // Absolute path
	Size      int64         `json:"size"`      // Bytes
	Integrity string        `json:"integrity"` // "sha512-<base64>", as npm reports it
	Duration  time.Duration `json:"duration"`
}

// Pack validates the package and, when it has no violations, writes
// "<name>-<version>.tgz" into the package directory. With violations it
// returns a *ValidationFailedError and writes nothing. A failing
// collaborator aborts the run and leaves no tarball behind.
//
// The whole run, collaborators included, is bounded by [Config.Timeout].
func (b *Bundle) Pack(ctx context.Context) (res *PackResult, err error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	start := time.Now()
	hooks := observability.Bundle()
	hooks.OnPackStart(ctx, b.dir)
	defer func() {
		tarball := ""
		if res != nil {
			tarball = res.Tarball
		}
		hooks.OnPackComplete(ctx, tarball, time.Since(start), err)
	}()

	report, st, err := b.validate(ctx)
	if err != nil {
		return nil, err
	}
	if !report.Success {
		return nil, &ValidationFailedError{Violations: report.Violations}
	}

	stage, err := os.MkdirTemp("", "nodebundle-pack-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer os.RemoveAll(stage)
	st.logger.Debug("staging package", "dir", stage)

	if err := io.CopyTree(b.dir, stage, skipStaged); err != nil {
		return nil, fmt.Errorf("stage package: %w", err)
	}
	if err := b.writeManifest(st.root, stage); err != nil {
		return nil, fmt.Errorf("write shipped manifest: %w", err)
	}

	err = b.collaborate(ctx, "bundler", func(ctx context.Context) error {
		return b.compiler.Bundle(ctx, b.dir, b.cfg.Entrypoints, stage, b.cfg.ExternalNames())
	})
	if err != nil {
		return nil, err
	}
	if err := resource.Copy(b.dir, stage, b.cfg.Resources); err != nil {
		return nil, err
	}

	if b.cfg.Test != "" {
		st.logger.Info("running sanity test", "command", b.cfg.Test)
		err = b.collaborate(ctx, "test", func(ctx context.Context) error {
			return b.tester.Run(ctx, stage, b.cfg.Test)
		})
		if err != nil {
			return nil, err
		}
	}

	tarball := filepath.Join(b.dir, archive.TarballName(st.root.Name, st.root.Version))
	err = b.collaborate(ctx, "archiver", func(ctx context.Context) error {
		return b.archiver.Archive(ctx, stage, tarball)
	})
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(tarball)
	if err != nil {
		return nil, err
	}
	integrity, err := archive.Integrity(tarball)
	if err != nil {
		return nil, err
	}
	res = &PackResult{
		Tarball:   tarball,
		Size:      info.Size(),
		Integrity: integrity,
		Duration:  time.Since(start),
	}
	st.logger.Info("packed package",
		"tarball", filepath.Base(tarball),
		"size", res.Size,
		"duration", res.Duration)
	return res, nil
}

// skipStaged leaves out installed dependencies, which the bundler vendors as
// needed, and everything the archiver never ships.
func skipStaged(rel string, d fs.DirEntry) bool {
	if d.IsDir() && d.Name() == "node_modules" {
		return true
	}
	return archive.Excluded(rel, d.IsDir())
}

// collaborate runs an external collaborator, reporting it to the hooks and
// wrapping its failure as COLLABORATOR_FAILED.
func (b *Bundle) collaborate(ctx context.Context, name string, fn func(context.Context) error) error {
	hooks := observability.Collaborator()
	hooks.OnInvoke(ctx, name)
	start := time.Now()

	err := fn(ctx)

	hooks.OnComplete(ctx, name, time.Since(start), err)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrap(errors.ErrCodeCollaborator, ctxErr, "%s did not finish", name)
		}
		return errors.Wrap(errors.ErrCodeCollaborator, err, "%s failed", name)
	}
	return nil
}
