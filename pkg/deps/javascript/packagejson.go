package javascript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/nodebundle/pkg/deps"
	"github.com/matzehuels/nodebundle/pkg/license"
)

// ManifestFile is the name of an npm package manifest.
const ManifestFile = "package.json"

// ReadManifest parses the package.json at path. License declarations are
// normalized with [license.Normalize]; Dir is the absolute directory
// containing the manifest.
func ReadManifest(path string) (*deps.Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data, filepath.Dir(path))
}

// ParseManifest parses package.json content located in dir.
func ParseManifest(data []byte, dir string) (*deps.Package, error) {
	var pkg packageFile
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ManifestFile, err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	declared := pkg.licenses()
	return &deps.Package{
		Name:                 pkg.Name,
		Version:              pkg.Version,
		Main:                 pkg.Main,
		Licenses:             license.Normalize(declared...),
		Declared:             declared,
		Dependencies:         pkg.Dependencies,
		OptionalDependencies: pkg.OptionalDependencies,
		DevDependencies:      pkg.DevDependencies,
		PeerDependencies:     pkg.PeerDependencies,
		Dir:                  abs,
	}, nil
}

type packageFile struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Main                 string            `json:"main"`
	License              json.RawMessage   `json:"license"`
	Licenses             json.RawMessage   `json:"licenses"`
	Dependencies         map[string]string `json:"dependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
}

// licenses collects raw declarations from both the "license" and the legacy
// "licenses" fields. Malformed values are ignored.
func (p packageFile) licenses() []string {
	return append(licenseValues(p.License), licenseValues(p.Licenses)...)
}

// licenseValues accepts "MIT", {"type": "MIT"} or a list of either.
func licenseValues(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if s = strings.TrimSpace(s); s == "" {
			return nil
		}
		return []string{s}
	}
	var obj struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		if t := strings.TrimSpace(obj.Type); t != "" {
			return []string{t}
		}
		return nil
	}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		var out []string
		for _, item := range list {
			out = append(out, licenseValues(item)...)
		}
		return out
	}
	return nil
}
