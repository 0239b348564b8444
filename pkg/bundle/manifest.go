package bundle

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/matzehuels/nodebundle/pkg/deps"
	"github.com/matzehuels/nodebundle/pkg/deps/javascript"
)

const (
	keyDependencies         = "dependencies"
	keyOptionalDependencies = "optionalDependencies"
	keyPeerDependencies     = "peerDependencies"
	keyDevDependencies      = "devDependencies"
)

// field is one top-level member of a manifest, in file order.
type field struct {
	key   string
	value json.RawMessage
}

// ShippedDependencies returns the dependency sections of the shipped
// manifest, keyed by section name. Bundled dependencies are gone: only
// externals remain, pinned to the installed version, else the declared range,
// else "*". Declared peer dependencies are kept.
func (b *Bundle) ShippedDependencies(root *deps.Package) map[string]map[string]string {
	sections := map[string]map[string]string{
		keyDependencies:         {},
		keyOptionalDependencies: {},
		keyPeerDependencies:     maps.Clone(root.PeerDependencies),
	}
	if sections[keyPeerDependencies] == nil {
		sections[keyPeerDependencies] = map[string]string{}
	}
	for _, x := range b.cfg.Externals {
		section := keyDependencies
		switch x.Kind {
		case ExternalOptional:
			section = keyOptionalDependencies
		case ExternalPeer:
			section = keyPeerDependencies
		}
		sections[section][x.Name] = b.externalVersion(root, x.Name)
	}
	return sections
}

func (b *Bundle) externalVersion(root *deps.Package, name string) string {
	pkg, err := b.tree.Resolve(root.Dir, root.Dir, name)
	if err == nil && pkg.Version != "" {
		return pkg.Version
	}
	if err != nil && !stderrors.Is(err, deps.ErrNotInstalled) {
		b.Logger.Debug("could not read installed external", "name", name, "error", err)
	}
	for _, declared := range []map[string]string{
		root.Dependencies, root.OptionalDependencies, root.PeerDependencies, root.DevDependencies,
	} {
		if v, ok := declared[name]; ok {
			return v
		}
	}
	return "*"
}

// writeManifest writes the shipped variant of the package manifest into
// stage. Members keep their order; devDependencies is dropped and the
// dependency sections are replaced by [Bundle.ShippedDependencies]. Empty
// sections are omitted.
func (b *Bundle) writeManifest(root *deps.Package, stage string) error {
	data, err := os.ReadFile(filepath.Join(root.Dir, javascript.ManifestFile))
	if err != nil {
		return err
	}
	fields, err := readObject(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", javascript.ManifestFile, err)
	}
	out, err := shippedManifest(fields, b.ShippedDependencies(root))
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(stage, javascript.ManifestFile), out, 0o644)
}

func shippedManifest(fields []field, sections map[string]map[string]string) ([]byte, error) {
	written := map[string]bool{}
	var kept []field
	for _, f := range fields {
		switch f.key {
		case keyDevDependencies:
			continue
		case keyDependencies, keyOptionalDependencies, keyPeerDependencies:
			written[f.key] = true
			if len(sections[f.key]) == 0 {
				continue
			}
			raw, err := marshal(sections[f.key])
			if err != nil {
				return nil, err
			}
			f.value = raw
		}
		kept = append(kept, f)
	}
	for _, key := range []string{keyDependencies, keyOptionalDependencies, keyPeerDependencies} {
		if written[key] || len(sections[key]) == 0 {
			continue
		}
		raw, err := marshal(sections[key])
		if err != nil {
			return nil, err
		}
		kept = append(kept, field{key: key, value: raw})
	}
	return writeObject(kept)
}

// marshal encodes v without escaping "<", ">" and "&", which are common in
// version ranges.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// readObject splits a JSON object into its members without reordering them.
func readObject(data []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}
	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected an object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		fields = append(fields, field{key: key, value: raw})
	}
	return fields, nil
}

func writeObject(fields []field) ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			compact.WriteByte(',')
		}
		key, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		compact.Write(key)
		compact.WriteByte(':')
		compact.Write(f.value)
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
