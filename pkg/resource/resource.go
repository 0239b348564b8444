// Package resource checks and copies auxiliary files that are shipped with a
// bundle but not reached through any import, such as scripts or data files
// loaded at run time.
package resource

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/nodebundle/pkg/errors"
	"github.com/matzehuels/nodebundle/pkg/io"
)

// Mapping copies Source to Dest, both relative to the package root.
type Mapping struct {
	Source string `json:"source"`
	Dest   string `json:"dest"`
}

// String formats the mapping as accepted by [Parse].
func (m Mapping) String() string { return m.Source + ":" + m.Dest }

// Parse reads a mapping written as "source:dest". A mapping without a
// destination ships the file at the same path.
func Parse(s string) (Mapping, error) {
	src, dest, ok := strings.Cut(s, ":")
	if !ok {
		dest = src
	}
	m := Mapping{Source: src, Dest: dest}
	return m, m.Validate()
}

// Validate rejects empty, absolute and escaping paths.
func (m Mapping) Validate() error {
	if err := errors.ValidatePath(m.Source); err != nil {
		return fmt.Errorf("resource source %q: %w", m.Source, err)
	}
	if err := errors.ValidatePath(m.Dest); err != nil {
		return fmt.Errorf("resource destination %q: %w", m.Dest, err)
	}
	return nil
}

// Missing is a mapping whose source file does not exist.
type Missing struct {
	Mapping Mapping
}

// Message describes the missing resource.
func (m Missing) Message() string {
	return fmt.Sprintf("Unable to find resource (%s) relative to the package directory", m.Mapping.Source)
}

// Verify returns the mappings whose source is not a regular file under dir,
// in mapping order.
func Verify(dir string, mappings []Mapping) []Missing {
	var missing []Missing
	for _, m := range mappings {
		info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(m.Source)))
		if err != nil || !info.Mode().IsRegular() {
			missing = append(missing, Missing{Mapping: m})
		}
	}
	return missing
}

// Copy copies every mapped source from srcDir to its destination in dstDir.
func Copy(srcDir, dstDir string, mappings []Mapping) error {
	for _, m := range mappings {
		src := filepath.Join(srcDir, filepath.FromSlash(m.Source))
		dst := filepath.Join(dstDir, filepath.FromSlash(m.Dest))
		if err := io.CopyFile(src, dst); err != nil {
			return fmt.Errorf("copy resource %s: %w", m.Source, err)
		}
	}
	return nil
}
