// Package notice renders the attribution document shipped with a bundled
// package and compares it against the copy persisted in the package.
//
// The document is a pure function of the copyright line and the dependency
// closure: rendering the same inputs always yields byte-identical text, so
// a freshly written NOTICE validates until the closure changes.
package notice

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/matzehuels/nodebundle/pkg/deps"
)

// FileName is the name of the attribution document at the package root.
const FileName = "NOTICE"

const (
	header    = "This package includes the following third-party software:"
	rule      = "----------------------------------------"
	separator = "---------------"
)

// RegistryURL returns the npm registry page of a specific package version.
func RegistryURL(name, version string) string {
	return fmt.Sprintf("https://www.npmjs.com/package/%s/v/%s", name, version)
}

// Attributed returns the dependencies listed in the document: the closure
// sorted by name and version, minus names matching exclude (may be nil).
func Attributed(closure []deps.Dependency, exclude *regexp.Regexp) []deps.Dependency {
	var out []deps.Dependency
	for _, d := range closure {
		if exclude != nil && exclude.MatchString(d.Name) {
			continue
		}
		out = append(out, d)
	}
	slices.SortStableFunc(out, func(a, b deps.Dependency) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Version, b.Version)
	})
	return out
}

// Render produces the attribution document.
func Render(copyright string, closure []deps.Dependency, exclude *regexp.Regexp) string {
	attributed := Attributed(closure, exclude)

	var b strings.Builder
	b.WriteString(copyright + "\n\n" + rule + "\n")
	if len(attributed) == 0 {
		return b.String()
	}
	b.WriteString("\n" + header + "\n\n")
	for i, d := range attributed {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "** %s - %s | %s\n\n\n%s\n",
			d.ID(), RegistryURL(d.Name, d.Version), strings.Join(d.Licenses, ","), separator)
	}
	return b.String()
}

// Path returns the location of the document for the package rooted at dir.
func Path(dir string) string { return filepath.Join(dir, FileName) }

// Read returns the persisted document. ok is false when none exists.
func Read(dir string) (text string, ok bool, err error) {
	data, err := os.ReadFile(Path(dir))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", FileName, err)
	}
	return string(data), true, nil
}

// Outdated reports whether the persisted document differs from want. A
// missing document is always outdated.
func Outdated(dir, want string) (bool, error) {
	text, ok, err := Read(dir)
	if err != nil {
		return false, err
	}
	return !ok || text != want, nil
}

// Write persists text as the document of the package rooted at dir.
func Write(dir, text string) error {
	if err := os.WriteFile(Path(dir), []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", FileName, err)
	}
	return nil
}
