package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxNameLength is npm's limit on package name length.
const maxNameLength = 214

// ValidatePackageName checks a dependency name before it is joined onto a
// node_modules directory. A scoped name ("@scope/pkg") is the only form
// allowed to contain a slash, so a name can never reach outside
// node_modules.
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "dependency name is empty")
	}
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidPackage, "dependency name %.20q... exceeds %d characters", name, maxNameLength)
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return New(ErrCodeInvalidPackage, "dependency name %q contains control characters", name)
	}
	if strings.ContainsRune(name, '\\') {
		return New(ErrCodeInvalidPackage, "dependency name %q contains a backslash", name)
	}

	segments := strings.Split(name, "/")
	switch {
	case len(segments) > 2, len(segments) == 2 && !strings.HasPrefix(name, "@"):
		return New(ErrCodeInvalidPackage, "dependency name %q is not a node_modules directory", name)
	}
	for _, s := range segments {
		if s == "" || s == "." || s == ".." {
			return New(ErrCodeInvalidPackage, "dependency name %q is not a node_modules directory", name)
		}
	}
	return nil
}

// ValidatePath checks a path given relative to the package directory: an
// entry point, or the source or destination of a resource. The path must
// stay inside the package once cleaned. Dots inside a file name
// ("v1..2.js") are fine; a ".." segment is not.
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "package-relative path is empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "package-relative path exceeds %d characters", maxPathLength)
	}
	if strings.IndexFunc(path, unicode.IsControl) >= 0 {
		return New(ErrCodeInvalidPath, "path %q contains control characters", path)
	}
	// Manifests and tarballs always use forward slashes.
	if strings.ContainsRune(path, '\\') {
		return New(ErrCodeInvalidPath, "path %q uses backslashes, write it with /", path)
	}
	if strings.HasPrefix(path, "/") || driveLetter(path) {
		return New(ErrCodeInvalidPath, "path %q is absolute, want one relative to the package", path)
	}
	for _, s := range strings.Split(path, "/") {
		if s == ".." {
			return New(ErrCodeInvalidPath, "path %q leaves the package directory", path)
		}
	}
	return nil
}

func driveLetter(path string) bool {
	return len(path) >= 2 && path[1] == ':' &&
		('a' <= path[0] && path[0] <= 'z' || 'A' <= path[0] && path[0] <= 'Z')
}

var npmPackageNameRegex = regexp.MustCompile(`^(@[a-z0-9-~][a-z0-9-._~]*/)?[a-z0-9-~][a-z0-9-._~]*$`)

// ValidateNpmPackageName applies npm's naming rules on top of
// [ValidatePackageName]. It guards names the user configures, such as
// externals, which end up as keys in the shipped manifest.
func ValidateNpmPackageName(name string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}
	if strings.ToLower(name) != name {
		return New(ErrCodeInvalidPackage, "npm package name %q has uppercase letters", name)
	}
	switch name {
	case "node_modules", "favicon.ico":
		return New(ErrCodeInvalidPackage, "%q is a blocked npm package name", name)
	}
	if !npmPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidPackage, "%q is not a valid npm package name", name)
	}
	return nil
}
