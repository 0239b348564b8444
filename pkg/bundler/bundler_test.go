package bundler

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSpecifiers(t *testing.T) {
	src := `
const bar = require('./bar');
const fs = require("fs");
import x from "./x.js";
import { a, b } from './ab';
import './side-effect';
export * from "./reexport";
const lazy = await import('./lazy');
const again = require('./bar');
`
	want := []string{"./bar", "fs", "./x.js", "./ab", "./side-effect", "./reexport", "./lazy"}

	if got := Specifiers(src); !slices.Equal(got, want) {
		t.Errorf("Specifiers() = %v, want %v", got, want)
	}
}

func TestSplitSpecifier(t *testing.T) {
	tests := []struct {
		spec, name, sub string
	}{
		{"lodash", "lodash", ""},
		{"lodash/fp/map", "lodash", "fp/map"},
		{"@scope/pkg", "@scope/pkg", ""},
		{"@scope/pkg/lib/x", "@scope/pkg", "lib/x"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			name, sub := splitSpecifier(tt.spec)
			if name != tt.name || sub != tt.sub {
				t.Errorf("splitSpecifier(%q) = (%q, %q), want (%q, %q)", tt.spec, name, sub, tt.name, tt.sub)
			}
		})
	}
}

func TestParseMetafile(t *testing.T) {
	data := []byte(`{
  "inputs": {
    "lib/foo.js": {"bytes": 10, "imports": [{"path": "lib/bar.js", "kind": "require-call"}]},
    "lib/bar.js": {"bytes": 10, "imports": [
      {"path": "lib/foo.js", "kind": "require-call"},
      {"path": "fs", "kind": "require-call", "external": true},
      {"path": "<runtime>", "kind": "import-statement"}
    ]},
    "node_modules/dep1/index.js": {"bytes": 5, "imports": []}
  },
  "outputs": {}
}`)

	set, err := ParseMetafile(data)
	if err != nil {
		t.Fatalf("ParseMetafile failed: %v", err)
	}

	wantFiles := []string{"lib/bar.js", "lib/foo.js", "node_modules/dep1/index.js"}
	if !slices.Equal(set.Files, wantFiles) {
		t.Errorf("Files = %v, want %v", set.Files, wantFiles)
	}
	if got := set.Imports["lib/bar.js"]; !slices.Equal(got, []string{"lib/foo.js"}) {
		t.Errorf("Imports[lib/bar.js] = %v, want [lib/foo.js]", got)
	}
}

func TestParseMetafile_Invalid(t *testing.T) {
	if _, err := ParseMetafile([]byte(`{`)); err == nil {
		t.Error("expected error for invalid metafile")
	}
}

func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"package.json":                         `{"name": "consumer", "version": "1.0.0", "main": "lib/foo.js"}`,
		"lib/foo.js":                           "const bar = require('./bar');\nconst dep1 = require('dep1');\n",
		"lib/bar.js":                           "const foo = require('./foo');\nconst path = require('path');\n",
		"lib/unused.js":                        "module.exports = 1;\n",
		"node_modules/dep1/package.json":       `{"name": "dep1", "version": "1.0.0", "main": "main"}`,
		"node_modules/dep1/main.js":            "require('./util.json');\nrequire('ext');\n",
		"node_modules/dep1/util.json":          "{}",
		"node_modules/ext/package.json":        `{"name": "ext", "version": "1.0.0"}`,
		"node_modules/ext/index.js":            "module.exports = 1;\n",
		"node_modules/@scope/pkg/index.js":     "",
		"node_modules/@scope/pkg/package.json": `{"name": "@scope/pkg"}`,
	})
	return root
}

func TestScan_Analyze(t *testing.T) {
	root := fixture(t)

	set, err := Scan{}.Analyze(context.Background(), root, []string{"lib/foo.js"}, nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	wantFiles := []string{
		"lib/bar.js",
		"lib/foo.js",
		"node_modules/dep1/main.js",
		"node_modules/dep1/util.json",
		"node_modules/ext/index.js",
	}
	if !slices.Equal(set.Files, wantFiles) {
		t.Errorf("Files = %v, want %v", set.Files, wantFiles)
	}
	if got := set.Imports["lib/foo.js"]; !slices.Equal(got, []string{"lib/bar.js", "node_modules/dep1/main.js"}) {
		t.Errorf("Imports[lib/foo.js] = %v", got)
	}
	if got := set.Imports["lib/bar.js"]; !slices.Equal(got, []string{"lib/foo.js"}) {
		t.Errorf("Imports[lib/bar.js] = %v, want [lib/foo.js]", got)
	}
}

func TestScan_AnalyzeErrors(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"index.js":  "require('./missing');\n",
		"escape.js": "require('../outside');\n",
	})

	tests := []struct {
		name  string
		entry string
	}{
		{"missing entry point", "nope.js"},
		{"unresolved relative import", "index.js"},
		{"import outside package", "escape.js"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (Scan{}).Analyze(context.Background(), root, []string{tt.entry}, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestScan_Bundle(t *testing.T) {
	root := fixture(t)
	out := t.TempDir()

	err := Scan{}.Bundle(context.Background(), root, []string{"lib/foo.js"}, out, []string{"ext"})
	if err != nil {
		t.Fatalf("Bundle failed: %v", err)
	}

	for _, f := range []string{
		"lib/foo.js",
		"lib/bar.js",
		"node_modules/dep1/main.js",
		"node_modules/dep1/util.json",
		"node_modules/dep1/package.json",
	} {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(f))); err != nil {
			t.Errorf("%s missing from bundle: %v", f, err)
		}
	}
	for _, f := range []string{"lib/unused.js", "node_modules/ext"} {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(f))); !os.IsNotExist(err) {
			t.Errorf("%s bundled, want excluded", f)
		}
	}
}

func TestScan_Cancelled(t *testing.T) {
	root := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := (Scan{}).Analyze(ctx, root, []string{"lib/foo.js"}, nil); err == nil {
		t.Error("expected context error")
	}
}

func TestModuleSet_Add(t *testing.T) {
	var m ModuleSet
	m.Add("b.js", "a.js")
	m.Add("b.js", "a.js")
	m.Add("c.js")
	m.normalize()

	if !slices.Equal(m.Files, []string{"a.js", "b.js", "c.js"}) {
		t.Errorf("Files = %v", m.Files)
	}
	if len(m.Imports["b.js"]) != 1 {
		t.Errorf("Imports[b.js] = %v, want one entry", m.Imports["b.js"])
	}
}
