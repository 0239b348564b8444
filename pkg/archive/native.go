package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// npm stamps every tarball entry with this time so tarballs are
// reproducible.
var packTime = time.Date(1985, time.October, 26, 8, 15, 0, 0, time.UTC)

// Native writes npm-compatible tarballs without shelling out. Every entry is
// placed under "package/", sorted, with normalized ownership, modes and
// timestamps, so the same layout always yields the same bytes.
//
// The layout is archived as is, including any node_modules directory a
// bundler vendored into it. Only .git directories and tarballs are skipped.
type Native struct {
	// Level is the gzip compression level (default: gzip.BestCompression).
	Level int
}

// Archive implements [Archiver].
func (n Native) Archive(ctx context.Context, srcDir, destPath string) error {
	level := n.Level
	if level == 0 {
		level = gzip.BestCompression
	}
	return replace(destPath, func(w io.Writer) error {
		zw, err := gzip.NewWriterLevel(w, level)
		if err != nil {
			return err
		}
		tw := tar.NewWriter(zw)
		if err := writeTree(ctx, tw, srcDir); err != nil {
			return err
		}
		if err := tw.Close(); err != nil {
			return err
		}
		return zw.Close()
	})
}

// Excluded reports whether a package-relative path is left out of tarballs.
func Excluded(rel string, isDir bool) bool {
	base := path.Base(rel)
	if isDir {
		return base == ".git"
	}
	return strings.HasSuffix(base, ".tgz") || strings.HasSuffix(base, ".tgz.tmp")
}

func writeTree(ctx context.Context, tw *tar.Writer, srcDir string) error {
	return filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if Excluded(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return writeFile(tw, p, "package/"+rel, info)
	})
}

func writeFile(tw *tar.Writer, src, name string, info fs.FileInfo) error {
	mode := int64(0o644)
	if info.Mode().Perm()&0o111 != 0 {
		mode = 0o755
	}
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Size:     info.Size(),
		Mode:     mode,
		ModTime:  packTime,
		Format:   tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
