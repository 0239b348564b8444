package javascript

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/matzehuels/nodebundle/pkg/deps"
	"github.com/matzehuels/nodebundle/pkg/errors"
)

// NodeModules reads an installed node_modules tree using Node's module
// resolution: a package required from directory d is looked up in
// d/node_modules, then in the node_modules of each ancestor up to the
// package root.
type NodeModules struct{}

var _ deps.TreeReader = NodeModules{}

// ReadRoot reads dir/package.json.
func (NodeModules) ReadRoot(dir string) (*deps.Package, error) {
	return ReadManifest(filepath.Join(dir, ManifestFile))
}

// Resolve locates the installed copy of name visible from fromDir.
func (NodeModules) Resolve(root, fromDir, name string) (*deps.Package, error) {
	if err := errors.ValidatePackageName(name); err != nil {
		return nil, err
	}
	for _, dir := range LookupDirs(root, fromDir) {
		path := filepath.Join(dir, name, ManifestFile)
		pkg, err := ReadManifest(path)
		if stderrors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if pkg.Name == "" {
			pkg.Name = name
		}
		return pkg, nil
	}
	return nil, fmt.Errorf("%s: %w", name, deps.ErrNotInstalled)
}

// LookupDirs lists the node_modules directories searched from fromDir,
// nearest first, never going above root.
func LookupDirs(root, fromDir string) []string {
	root = filepath.Clean(root)
	var dirs []string
	for dir := filepath.Clean(fromDir); ; {
		if filepath.Base(dir) != "node_modules" {
			dirs = append(dirs, filepath.Join(dir, "node_modules"))
		}
		if dir == root {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir || !within(root, parent) {
			break
		}
		dir = parent
	}
	return dirs
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
