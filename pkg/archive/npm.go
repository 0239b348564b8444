package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Npm archives with "npm pack", honoring the package's "files" field and
// .npmignore the way the registry client does.
type Npm struct {
	// Path is the npm executable (default: "npm" on PATH).
	Path string
}

// Archive implements [Archiver].
func (n Npm) Archive(ctx context.Context, srcDir, destPath string) error {
	bin := n.Path
	if bin == "" {
		bin = "npm"
	}
	tmp, err := os.MkdirTemp("", "nodebundle-npm-pack-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	cmd := exec.CommandContext(ctx, bin, "pack", "--pack-destination", tmp)
	cmd.Dir = srcDir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("npm pack failed: %w\nOutput:\n%s", err, strings.TrimSpace(string(output)))
	}

	matches, err := filepath.Glob(filepath.Join(tmp, "*.tgz"))
	if err != nil {
		return err
	}
	if len(matches) != 1 {
		return fmt.Errorf("npm pack produced %d tarballs, want 1", len(matches))
	}
	return replace(destPath, func(w io.Writer) error {
		f, err := os.Open(matches[0])
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
}
