package bundle

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/matzehuels/nodebundle/pkg/errors"
	"github.com/matzehuels/nodebundle/pkg/resource"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// BundlerEsbuild bundles with the esbuild binary.
	BundlerEsbuild = "esbuild"
	// BundlerScan bundles natively by copying reachable files.
	BundlerScan = "scan"

	// ArchiverNative writes the tarball with the built-in archiver.
	ArchiverNative = "native"
	// ArchiverNpm delegates to "npm pack".
	ArchiverNpm = "npm"

	// DefaultBundler is the bundler used when none is configured.
	DefaultBundler = BundlerEsbuild
	// DefaultArchiver is the archiver used when none is configured.
	DefaultArchiver = ArchiverNative
	// DefaultTimeout bounds a whole pack run, collaborators included.
	DefaultTimeout = 10 * time.Minute
)

// ValidBundlers is the set of supported bundlers.
var ValidBundlers = map[string]bool{
	BundlerEsbuild: true,
	BundlerScan:    true,
}

// ValidArchivers is the set of supported archivers.
var ValidArchivers = map[string]bool{
	ArchiverNative: true,
	ArchiverNpm:    true,
}

// =============================================================================
// Externals
// =============================================================================

// ExternalKind says where an external dependency is declared in the shipped
// manifest.
type ExternalKind string

const (
	// ExternalRuntime externals go to "dependencies".
	ExternalRuntime ExternalKind = ""
	// ExternalOptional externals go to "optionalDependencies".
	ExternalOptional ExternalKind = "optional"
	// ExternalPeer externals go to "peerDependencies".
	ExternalPeer ExternalKind = "peer"
)

// External is a dependency left out of the bundle and declared as a run-time
// dependency of the shipped package instead.
type External struct {
	Name string       `json:"name"`
	Kind ExternalKind `json:"kind,omitempty"`
}

// ParseExternal reads "name", "name:optional" or "name:peer".
func ParseExternal(s string) (External, error) {
	// Scoped names start with "@" and never contain ":".
	name, kind, _ := strings.Cut(s, ":")
	x := External{Name: name, Kind: ExternalKind(kind)}
	switch x.Kind {
	case ExternalRuntime, ExternalOptional, ExternalPeer:
	default:
		return External{}, errors.New(errors.ErrCodeInvalidConfig,
			"external %q: unknown kind %q (must be optional or peer)", s, kind)
	}
	if err := errors.ValidateNpmPackageName(name); err != nil {
		return External{}, fmt.Errorf("external %q: %w", s, err)
	}
	return x, nil
}

// String formats the external as accepted by [ParseExternal].
func (x External) String() string {
	if x.Kind == ExternalRuntime {
		return x.Name
	}
	return x.Name + ":" + string(x.Kind)
}

// UnmarshalText implements encoding.TextUnmarshaler so config files can list
// externals as strings.
func (x *External) UnmarshalText(text []byte) error {
	parsed, err := ParseExternal(string(text))
	if err != nil {
		return err
	}
	*x = parsed
	return nil
}

// =============================================================================
// Config
// =============================================================================

// Config describes one package and how to bundle it. It is not modified
// during a run.
type Config struct {
	PackageDir    string             `json:"package_dir"`
	Copyright     string             `json:"copyright"`
	Entrypoints   []string           `json:"entrypoints"`
	Externals     []External         `json:"externals,omitempty"`
	Licenses      []string           `json:"licenses,omitempty"`  // Allowed license identifiers
	Resources     []resource.Mapping `json:"resources,omitempty"` // Shipped files not reached by imports
	DontAttribute string             `json:"dont_attribute,omitempty"`
	Test          string             `json:"test,omitempty"` // Sanity-test command run inside the bundle
	Bundler       string             `json:"bundler,omitempty"`
	Esbuild       string             `json:"esbuild,omitempty"` // esbuild executable
	Archiver      string             `json:"archiver,omitempty"`
	Timeout       time.Duration      `json:"timeout,omitempty"`
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// Calling it more than once has the same effect as calling it once.
func (c *Config) ValidateAndSetDefaults() error {
	if c.PackageDir == "" {
		c.PackageDir = "."
	}
	if c.Bundler == "" {
		c.Bundler = DefaultBundler
	}
	if c.Archiver == "" {
		c.Archiver = DefaultArchiver
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return c.Validate()
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Copyright) == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "copyright is required")
	}
	if len(c.Entrypoints) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "at least one entry point is required")
	}
	for _, ep := range c.Entrypoints {
		if err := errors.ValidatePath(ep); err != nil {
			return fmt.Errorf("entry point %q: %w", ep, err)
		}
	}
	for _, x := range c.Externals {
		if err := errors.ValidateNpmPackageName(x.Name); err != nil {
			return fmt.Errorf("external %q: %w", x.Name, err)
		}
	}
	for _, m := range c.Resources {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	if _, err := c.dontAttribute(); err != nil {
		return err
	}
	if c.Bundler != "" && !ValidBundlers[c.Bundler] {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid bundler: %q (must be one of: esbuild, scan)", c.Bundler)
	}
	if c.Archiver != "" && !ValidArchivers[c.Archiver] {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid archiver: %q (must be one of: native, npm)", c.Archiver)
	}
	if c.Timeout < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "timeout must not be negative")
	}
	return nil
}

// ExternalNames returns the names of all externals in configuration order.
func (c *Config) ExternalNames() []string {
	names := make([]string, len(c.Externals))
	for i, x := range c.Externals {
		names[i] = x.Name
	}
	return names
}

func (c *Config) dontAttribute() (*regexp.Regexp, error) {
	if c.DontAttribute == "" {
		return nil, nil
	}
	re, err := regexp.Compile(c.DontAttribute)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid attribution exclusion pattern %q", c.DontAttribute)
	}
	return re, nil
}
