package bundler

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/matzehuels/nodebundle/pkg/deps/javascript"
	"github.com/matzehuels/nodebundle/pkg/io"
)

var specifierPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brequire\s*\(\s*['"]([^'"\n]+)['"]\s*\)`),
	regexp.MustCompile(`\bimport\s*\(\s*['"]([^'"\n]+)['"]\s*\)`),
	regexp.MustCompile(`\b(?:import|export)\s[^'";]*?\bfrom\s*['"]([^'"\n]+)['"]`),
	regexp.MustCompile(`\bimport\s*['"]([^'"\n]+)['"]`),
}

var extensions = []string{"", ".js", ".cjs", ".mjs", ".json"}

// Scan follows require and import statements without executing or
// transforming code. Relative specifiers resolve against the importing
// file; bare specifiers resolve through node_modules. Specifiers that do
// not resolve to an installed package (Node built-ins, missing optional
// packages) are ignored.
//
// Bundle vendors every reachable file, including the package manifests of
// reachable dependencies, into outdir.
type Scan struct{}

// Analyze implements [Compiler].
func (Scan) Analyze(ctx context.Context, dir string, entrypoints []string, externals []string) (*ModuleSet, error) {
	return scan(ctx, dir, entrypoints, externals)
}

// Bundle implements [Compiler].
func (Scan) Bundle(ctx context.Context, dir string, entrypoints []string, outdir string, externals []string) error {
	set, err := scan(ctx, dir, entrypoints, externals)
	if err != nil {
		return err
	}
	files := slices.Clone(set.Files)
	for _, f := range set.Files {
		if m, ok := manifestOf(dir, f); ok && !slices.Contains(files, m) {
			files = append(files, m)
		}
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		src := filepath.Join(dir, filepath.FromSlash(f))
		if err := io.CopyFile(src, filepath.Join(outdir, filepath.FromSlash(f))); err != nil {
			return fmt.Errorf("bundle %s: %w", f, err)
		}
	}
	return nil
}

type scanner struct {
	root      string
	externals []string
	set       *ModuleSet
	queue     []string
}

func scan(ctx context.Context, dir string, entrypoints, externals []string) (*ModuleSet, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	s := &scanner{root: root, externals: externals, set: &ModuleSet{}}
	for _, ep := range entrypoints {
		rel := path.Clean(filepath.ToSlash(ep))
		if !isFile(s.abs(rel)) {
			return nil, fmt.Errorf("entry point %s: %w", ep, fs.ErrNotExist)
		}
		s.visit(rel)
	}
	for len(s.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		file := s.queue[0]
		s.queue = s.queue[1:]
		if err := s.scanFile(file); err != nil {
			return nil, err
		}
	}
	s.set.normalize()
	return s.set, nil
}

func (s *scanner) abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

func (s *scanner) visit(rel string) {
	if _, ok := s.set.Imports[rel]; ok {
		return
	}
	s.set.Add(rel)
	s.queue = append(s.queue, rel)
}

func (s *scanner) scanFile(file string) error {
	if path.Ext(file) == ".json" {
		return nil
	}
	src, err := os.ReadFile(s.abs(file))
	if err != nil {
		return err
	}
	for _, spec := range Specifiers(string(src)) {
		target, err := s.resolve(file, spec)
		if err != nil {
			return err
		}
		if target == "" {
			continue
		}
		s.visit(target)
		s.set.Add(file, target)
	}
	return nil
}

// resolve returns the package-relative path spec refers to from file, or ""
// when the specifier is left to the runtime.
func (s *scanner) resolve(file, spec string) (string, error) {
	if strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || spec == "." || spec == ".." {
		target := path.Join(path.Dir(file), spec)
		if strings.HasPrefix(target, "../") || target == ".." {
			return "", fmt.Errorf("%s: import %q leaves the package", file, spec)
		}
		if rel, ok := s.resolveFile(target); ok {
			return rel, nil
		}
		return "", fmt.Errorf("%s: cannot resolve %q", file, spec)
	}
	if strings.HasPrefix(spec, "node:") || strings.HasPrefix(spec, "/") {
		return "", nil
	}

	name, sub := splitSpecifier(spec)
	if slices.Contains(s.externals, name) {
		return "", nil
	}
	fromDir := filepath.Dir(s.abs(file))
	for _, nm := range javascript.LookupDirs(s.root, fromDir) {
		pkgDir := filepath.Join(nm, filepath.FromSlash(name))
		if !isDir(pkgDir) {
			continue
		}
		rel, err := filepath.Rel(s.root, filepath.Join(pkgDir, filepath.FromSlash(sub)))
		if err != nil {
			return "", err
		}
		if target, ok := s.resolveFile(filepath.ToSlash(rel)); ok {
			return target, nil
		}
		return "", fmt.Errorf("%s: cannot resolve %q", file, spec)
	}
	return "", nil
}

// resolveFile applies Node's file and directory lookup to a package-relative
// path.
func (s *scanner) resolveFile(rel string) (string, bool) {
	rel = path.Clean(rel)
	for _, ext := range extensions {
		if isFile(s.abs(rel + ext)) {
			return rel + ext, true
		}
	}
	if !isDir(s.abs(rel)) {
		return "", false
	}
	if pkg, err := javascript.ReadManifest(filepath.Join(s.abs(rel), javascript.ManifestFile)); err == nil && pkg.Main != "" {
		main := path.Join(rel, pkg.Main)
		for _, ext := range extensions {
			if isFile(s.abs(main + ext)) {
				return main + ext, true
			}
		}
		if isFile(s.abs(path.Join(main, "index.js"))) {
			return path.Join(main, "index.js"), true
		}
	}
	for _, index := range []string{"index.js", "index.cjs", "index.json"} {
		if isFile(s.abs(path.Join(rel, index))) {
			return path.Join(rel, index), true
		}
	}
	return "", false
}

// Specifiers extracts module specifiers from require calls, dynamic imports
// and import/export declarations, in source order and deduplicated.
func Specifiers(src string) []string {
	type hit struct {
		pos  int
		spec string
	}
	var hits []hit
	for _, re := range specifierPatterns {
		for _, m := range re.FindAllStringSubmatchIndex(src, -1) {
			hits = append(hits, hit{pos: m[2], spec: src[m[2]:m[3]]})
		}
	}
	slices.SortFunc(hits, func(a, b hit) int { return a.pos - b.pos })

	var specs []string
	for _, h := range hits {
		if !slices.Contains(specs, h.spec) {
			specs = append(specs, h.spec)
		}
	}
	return specs
}

// splitSpecifier splits a bare specifier into its package name and subpath.
func splitSpecifier(spec string) (name, sub string) {
	parts := strings.SplitN(spec, "/", 3)
	if strings.HasPrefix(spec, "@") && len(parts) >= 2 {
		name = parts[0] + "/" + parts[1]
		if len(parts) == 3 {
			sub = parts[2]
		}
		return name, sub
	}
	name, sub, _ = strings.Cut(spec, "/")
	return name, sub
}

// manifestOf returns the package.json of the installed package containing
// file, if file lives under node_modules.
func manifestOf(dir, file string) (string, bool) {
	i := strings.LastIndex(file, "node_modules/")
	if i < 0 {
		return "", false
	}
	name, _ := splitSpecifier(file[i+len("node_modules/"):])
	m := file[:i] + "node_modules/" + name + "/" + javascript.ManifestFile
	return m, isFile(filepath.Join(dir, filepath.FromSlash(m)))
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
