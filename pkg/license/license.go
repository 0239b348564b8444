// Package license classifies the licenses of bundled dependencies against an
// allow-list.
//
// Two findings are possible per dependency and they are mutually exclusive:
// a dependency declaring more than one license is reported as [Multiple]
// whatever those licenses are, and a dependency declaring exactly one license
// that is not allowed (including [deps.UnknownLicense]) is reported as
// [Invalid]. Identifiers are normalized against the SPDX license list.
package license

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/nodebundle/pkg/deps"
)

// Kind distinguishes license findings.
type Kind string

const (
	Multiple Kind = "multiple-license"
	Invalid  Kind = "invalid-license"
)

// Finding is a license problem with one dependency.
type Finding struct {
	Kind       Kind
	Dependency deps.Dependency
}

// Message describes the finding for a human reader.
func (f Finding) Message() string {
	d := f.Dependency
	switch f.Kind {
	case Multiple:
		return fmt.Sprintf("Dependency %s has multiple licenses: %s", d.ID(), strings.Join(d.Licenses, ","))
	default:
		return fmt.Sprintf("Dependency %s has an invalid license: %s", d.ID(), single(d))
	}
}

func single(d deps.Dependency) string {
	if len(d.Licenses) == 0 {
		return deps.UnknownLicense
	}
	return d.Licenses[0]
}

// Check classifies every dependency of the closure against allowed and
// returns the findings in closure order.
func Check(closure []deps.Dependency, allowed []string) []Finding {
	var findings []Finding
	for _, d := range closure {
		switch {
		case len(d.Licenses) > 1:
			findings = append(findings, Finding{Kind: Multiple, Dependency: d})
		case !allows(allowed, d):
			findings = append(findings, Finding{Kind: Invalid, Dependency: d})
		}
	}
	return findings
}

// allows reports whether the single license of d is allowed. A declaration
// that is not a known SPDX expression still passes when it is listed
// verbatim, so custom license names can be allow-listed.
func allows(allowed []string, d deps.Dependency) bool {
	if slices.Contains(allowed, single(d)) {
		return true
	}
	return single(d) == deps.UnknownLicense && len(d.Declared) == 1 && slices.Contains(allowed, d.Declared[0])
}
