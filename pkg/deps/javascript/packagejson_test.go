package javascript

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/nodebundle/pkg/deps"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, ManifestFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `{
  "name": "my-package",
  "version": "1.0.0",
  "license": "MIT",
  "dependencies": {
    "express": "^4.18.0",
    "lodash": "^4.17.21"
  },
  "optionalDependencies": {
    "fsevents": "^2.3.0"
  },
  "devDependencies": {
    "jest": "^29.0.0"
  }
}`)

	pkg, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest failed: %v", err)
	}

	if pkg.Name != "my-package" || pkg.Version != "1.0.0" {
		t.Errorf("identity = %s, want my-package@1.0.0", pkg.ID())
	}
	if !slices.Equal(pkg.Licenses, []string{"MIT"}) {
		t.Errorf("Licenses = %v, want [MIT]", pkg.Licenses)
	}
	if got := pkg.Required(); !slices.Equal(got, []string{"express", "lodash"}) {
		t.Errorf("Required() = %v, want [express lodash]", got)
	}
	if got := pkg.Optional(); !slices.Equal(got, []string{"fsevents"}) {
		t.Errorf("Optional() = %v, want [fsevents]", got)
	}
	if _, ok := pkg.DevDependencies["jest"]; !ok {
		t.Error("DevDependencies missing jest")
	}
	if !filepath.IsAbs(pkg.Dir) {
		t.Errorf("Dir = %q, want absolute path", pkg.Dir)
	}
}

func TestReadManifest_Licenses(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"string", `{"license": "Apache-2.0"}`, []string{"Apache-2.0"}},
		{"object", `{"license": {"type": "ISC", "url": "https://example.com"}}`, []string{"ISC"}},
		{"expression", `{"license": "(MIT OR Apache-2.0)"}`, []string{"MIT", "Apache-2.0"}},
		{"legacy list", `{"licenses": [{"type": "MIT"}, {"type": "Apache-2.0"}]}`, []string{"MIT", "Apache-2.0"}},
		{"string list", `{"licenses": ["BSD-3-Clause", "MIT"]}`, []string{"BSD-3-Clause", "MIT"}},
		{"both fields", `{"license": "MIT", "licenses": [{"type": "MIT"}]}`, []string{"MIT"}},
		{"absent", `{}`, []string{"UNKNOWN"}},
		{"null", `{"license": null}`, []string{"UNKNOWN"}},
		{"unrecognized", `{"license": "INVALID"}`, []string{"UNKNOWN"}},
		{"malformed", `{"license": 42}`, []string{"UNKNOWN"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg, err := ParseManifest([]byte(tt.content), t.TempDir())
			if err != nil {
				t.Fatalf("ParseManifest failed: %v", err)
			}
			if !slices.Equal(pkg.Licenses, tt.want) {
				t.Errorf("Licenses = %v, want %v", pkg.Licenses, tt.want)
			}
		})
	}
}

func TestReadManifest_DeclaredLicense(t *testing.T) {
	pkg, err := ParseManifest([]byte(`{"license": " Example-Corp-EULA "}`), t.TempDir())
	if err != nil {
		t.Fatalf("ParseManifest failed: %v", err)
	}
	if !slices.Equal(pkg.Licenses, []string{"UNKNOWN"}) {
		t.Errorf("Licenses = %v, want [UNKNOWN]", pkg.Licenses)
	}
	if !slices.Equal(pkg.Declared, []string{"Example-Corp-EULA"}) {
		t.Errorf("Declared = %q, want the trimmed raw value", pkg.Declared)
	}
}

func TestReadManifest_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadManifest(filepath.Join(dir, ManifestFile)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing manifest error = %v, want os.ErrNotExist", err)
	}

	path := writeManifest(t, dir, `{not json`)
	if _, err := ReadManifest(path); err == nil {
		t.Error("expected error for corrupt manifest")
	}
}

func TestNodeModules_Resolve(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `{"name": "consumer", "version": "1.0.0"}`)
	writeManifest(t, filepath.Join(root, "node_modules", "a"), `{"name": "a", "version": "1.0.0"}`)
	writeManifest(t, filepath.Join(root, "node_modules", "shared"), `{"name": "shared", "version": "1.0.0"}`)
	// a has its own, newer copy of shared nested below it.
	writeManifest(t, filepath.Join(root, "node_modules", "a", "node_modules", "shared"), `{"name": "shared", "version": "2.0.0"}`)
	writeManifest(t, filepath.Join(root, "node_modules", "@scope", "pkg"), `{"name": "@scope/pkg", "version": "3.0.0"}`)

	r := NodeModules{}
	aDir := filepath.Join(root, "node_modules", "a")
	scopedDir := filepath.Join(root, "node_modules", "@scope", "pkg")

	tests := []struct {
		name    string
		fromDir string
		dep     string
		want    string
	}{
		{"hoisted from root", root, "shared", "shared@1.0.0"},
		{"nested shadows hoisted", aDir, "shared", "shared@2.0.0"},
		{"sibling from nested", aDir, "@scope/pkg", "@scope/pkg@3.0.0"},
		{"hoisted from scoped", scopedDir, "a", "a@1.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg, err := r.Resolve(root, tt.fromDir, tt.dep)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if pkg.ID() != tt.want {
				t.Errorf("Resolve() = %s, want %s", pkg.ID(), tt.want)
			}
		})
	}
}

func TestNodeModules_ResolveNotInstalled(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `{"name": "consumer", "version": "1.0.0"}`)

	_, err := NodeModules{}.Resolve(root, root, "missing")
	if !errors.Is(err, deps.ErrNotInstalled) {
		t.Errorf("Resolve() error = %v, want ErrNotInstalled", err)
	}
}

func TestNodeModules_ResolveStopsAtRoot(t *testing.T) {
	outer := t.TempDir()
	writeManifest(t, filepath.Join(outer, "node_modules", "leak"), `{"name": "leak", "version": "1.0.0"}`)
	root := filepath.Join(outer, "pkg")
	writeManifest(t, root, `{"name": "consumer", "version": "1.0.0"}`)

	_, err := NodeModules{}.Resolve(root, root, "leak")
	if !errors.Is(err, deps.ErrNotInstalled) {
		t.Errorf("Resolve() error = %v, want ErrNotInstalled", err)
	}
}

func TestNodeModules_ResolveCorrupt(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "node_modules", "bad"), `{`)

	_, err := NodeModules{}.Resolve(root, root, "bad")
	if err == nil {
		t.Fatal("expected error for corrupt manifest")
	}
	if errors.Is(err, deps.ErrNotInstalled) {
		t.Error("corrupt manifest must not be reported as not installed")
	}
}

func TestNodeModules_ResolveRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	if _, err := (NodeModules{}).Resolve(root, root, "../escape"); err == nil {
		t.Error("expected error for traversal name")
	}
}
