package bundle

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/nodebundle/pkg/errors"
	"github.com/matzehuels/nodebundle/pkg/resource"
)

// ConfigFiles are the file names searched, in order, by [FindFile].
var ConfigFiles = []string{
	"nodebundle.toml",
	".nodebundle.toml",
	"nodebundle.yaml",
	"nodebundle.yml",
}

// File is the on-disk configuration of a package. Externals and resources
// use the same "name[:kind]" and "source:dest" notation as the command line.
//
//	copyright = "Copyright Example Corp."
//	entrypoints = ["lib/index.js"]
//	externals = ["fsevents:optional"]
//	licenses = ["Apache-2.0", "MIT"]
//	resources = ["bin/helper.sh:bin/helper.sh"]
type File struct {
	Copyright     string   `toml:"copyright" yaml:"copyright"`
	Entrypoints   []string `toml:"entrypoints" yaml:"entrypoints"`
	Externals     []string `toml:"externals" yaml:"externals"`
	Licenses      []string `toml:"licenses" yaml:"licenses"`
	Resources     []string `toml:"resources" yaml:"resources"`
	DontAttribute string   `toml:"dont_attribute" yaml:"dont_attribute"`
	Test          string   `toml:"test" yaml:"test"`
	Bundler       string   `toml:"bundler" yaml:"bundler"`
	Esbuild       string   `toml:"esbuild" yaml:"esbuild"`
	Archiver      string   `toml:"archiver" yaml:"archiver"`
	Timeout       string   `toml:"timeout" yaml:"timeout"` // Go duration, e.g. "5m"
}

// FindFile returns the first of [ConfigFiles] present in dir, or "" if none is.
func FindFile(dir string) (string, error) {
	for _, name := range ConfigFiles {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if stderrors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("config: stat %s: %w", path, err)
		}
		if info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", nil
}

// LoadFile parses a TOML or YAML configuration file, chosen by extension.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "config: unsupported file type %q (must be .toml, .yaml or .yml)", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config: parse %s", path)
	}
	return &f, nil
}

// Apply copies every value set in f into cfg. Lists replace, not extend, the
// values already in cfg.
func (f *File) Apply(cfg *Config) error {
	if f.Copyright != "" {
		cfg.Copyright = f.Copyright
	}
	if len(f.Entrypoints) > 0 {
		cfg.Entrypoints = f.Entrypoints
	}
	if len(f.Externals) > 0 {
		externals := make([]External, 0, len(f.Externals))
		for _, s := range f.Externals {
			x, err := ParseExternal(s)
			if err != nil {
				return err
			}
			externals = append(externals, x)
		}
		cfg.Externals = externals
	}
	if len(f.Licenses) > 0 {
		cfg.Licenses = f.Licenses
	}
	if len(f.Resources) > 0 {
		mappings := make([]resource.Mapping, 0, len(f.Resources))
		for _, s := range f.Resources {
			m, err := resource.Parse(s)
			if err != nil {
				return err
			}
			mappings = append(mappings, m)
		}
		cfg.Resources = mappings
	}
	if f.DontAttribute != "" {
		cfg.DontAttribute = f.DontAttribute
	}
	if f.Test != "" {
		cfg.Test = f.Test
	}
	if f.Bundler != "" {
		cfg.Bundler = f.Bundler
	}
	if f.Esbuild != "" {
		cfg.Esbuild = f.Esbuild
	}
	if f.Archiver != "" {
		cfg.Archiver = f.Archiver
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid timeout %q", f.Timeout)
		}
		cfg.Timeout = d
	}
	return nil
}
