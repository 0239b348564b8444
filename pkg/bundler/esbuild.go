package bundler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultEsbuild is the esbuild command used when none is configured.
const DefaultEsbuild = "esbuild"

// Esbuild compiles with the esbuild binary.
type Esbuild struct {
	// Path is the esbuild executable (default: "esbuild" on PATH).
	Path string
}

func (e Esbuild) bin() string {
	if e.Path == "" {
		return DefaultEsbuild
	}
	return e.Path
}

// Analyze bundles into a scratch directory and reads the module graph from
// the metafile esbuild writes alongside.
func (e Esbuild) Analyze(ctx context.Context, dir string, entrypoints []string, externals []string) (*ModuleSet, error) {
	tmp, err := os.MkdirTemp("", "nodebundle-esbuild-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	metafile := filepath.Join(tmp, "meta.json")
	args := append(slices.Clone(entrypoints),
		"--bundle",
		"--platform=node",
		"--log-level=error",
		"--outdir="+filepath.Join(tmp, "out"),
		"--metafile="+metafile,
	)
	args = append(args, externalArgs(externals)...)
	if err := e.run(ctx, dir, args); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(metafile)
	if err != nil {
		return nil, fmt.Errorf("read esbuild metafile: %w", err)
	}
	return ParseMetafile(data)
}

// Bundle runs esbuild with the entry points' directory structure preserved
// under outdir.
func (e Esbuild) Bundle(ctx context.Context, dir string, entrypoints []string, outdir string, externals []string) error {
	args := append(slices.Clone(entrypoints),
		"--bundle",
		"--platform=node",
		"--log-level=error",
		"--allow-overwrite",
		"--outbase=.",
		"--outdir="+outdir,
	)
	args = append(args, externalArgs(externals)...)
	return e.run(ctx, dir, args)
}

func externalArgs(externals []string) []string {
	args := make([]string, len(externals))
	for i, x := range externals {
		args[i] = "--external:" + x
	}
	return args
}

func (e Esbuild) run(ctx context.Context, dir string, args []string) error {
	cmd := exec.CommandContext(ctx, e.bin(), args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("esbuild failed: %w\nOutput:\n%s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

type metafile struct {
	Inputs map[string]struct {
		Imports []struct {
			Path     string `json:"path"`
			External bool   `json:"external"`
		} `json:"imports"`
	} `json:"inputs"`
}

// ParseMetafile reads the module graph from an esbuild metafile. External
// imports and esbuild's virtual modules are dropped.
func ParseMetafile(data []byte) (*ModuleSet, error) {
	var meta metafile
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse esbuild metafile: %w", err)
	}
	set := &ModuleSet{}
	for path, input := range meta.Inputs {
		if virtual(path) {
			continue
		}
		from := filepath.ToSlash(filepath.Clean(path))
		set.Add(from)
		for _, imp := range input.Imports {
			if imp.External || virtual(imp.Path) {
				continue
			}
			set.Add(from, filepath.ToSlash(filepath.Clean(imp.Path)))
		}
	}
	set.normalize()
	return set, nil
}

// virtual reports esbuild namespaces such as "<runtime>" or "ns:path".
func virtual(path string) bool {
	return strings.HasPrefix(path, "<") || strings.Contains(path, ":")
}
