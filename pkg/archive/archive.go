// Package archive produces the npm tarball of a staged package.
//
// Two archivers are available: [Native] writes the tarball directly, and
// [Npm] delegates to "npm pack". Both write atomically: on failure no
// partial tarball is left at the destination.
package archive

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Archiver turns a finalized package layout into a tarball.
type Archiver interface {
	Archive(ctx context.Context, srcDir, destPath string) error
}

// TarballName returns the file name npm uses for a package tarball. Scoped
// names drop the "@" and replace the "/" with "-".
func TarballName(name, version string) string {
	name = strings.TrimPrefix(name, "@")
	name = strings.ReplaceAll(name, "/", "-")
	return fmt.Sprintf("%s-%s.tgz", name, version)
}

// Integrity returns the Subresource Integrity string ("sha512-...") of the
// file at path, as recorded in npm lockfiles.
func Integrity(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha512.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return "sha512-" + base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// replace writes destPath through a temporary sibling file so a failed write
// never leaves a partial tarball behind.
func replace(destPath string, write func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".nodebundle-*.tgz.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), destPath)
}
