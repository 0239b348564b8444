package bundle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matzehuels/nodebundle/pkg/errors"
)

// ViolationType is the closed set of problems validation reports.
type ViolationType string

const (
	InvalidLicense  ViolationType = "invalid-license"
	MultipleLicense ViolationType = "multiple-license"
	CircularImport  ViolationType = "circular-import"
	OutdatedNotice  ViolationType = "outdated-notice"
	MissingResource ViolationType = "missing-resource"
)

// ViolationTypes lists every type in report order.
var ViolationTypes = []ViolationType{
	InvalidLicense,
	MultipleLicense,
	CircularImport,
	OutdatedNotice,
	MissingResource,
}

// fixers maps each fixable type to the step of [Bundle.Fix] that repairs it.
var fixers = map[ViolationType]func(*Bundle, *state) error{
	OutdatedNotice: (*Bundle).writeNotice,
}

// Fixable reports whether [Bundle.Fix] repairs violations of this type.
func (t ViolationType) Fixable() bool {
	_, ok := fixers[t]
	return ok
}

// Violation is one policy problem found during validation.
type Violation struct {
	Type    ViolationType
	Message string
}

// Fixable reports whether [Bundle.Fix] repairs the violation.
func (v Violation) Fixable() bool { return v.Type.Fixable() }

// String formats the violation as "type: message".
func (v Violation) String() string { return string(v.Type) + ": " + v.Message }

// MarshalJSON includes the derived fixable flag.
func (v Violation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ViolationType `json:"type"`
		Message string        `json:"message"`
		Fixable bool          `json:"fixable"`
	}{v.Type, v.Message, v.Fixable()})
}

// Report is the outcome of one validation run.
type Report struct {
	Success    bool        `json:"success"`
	Violations []Violation `json:"violations"`
	RunID      string      `json:"run_id"`
}

// Fixable returns the violations [Bundle.Fix] can repair.
func (r *Report) Fixable() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Fixable() {
			out = append(out, v)
		}
	}
	return out
}

// ValidationFailedError is returned by [Bundle.Pack] when the package has
// violations. It matches errors.ErrCodeValidationFailed.
type ValidationFailedError struct {
	Violations []Violation
}

// Error implements the error interface.
func (e *ValidationFailedError) Error() string {
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = "  - " + v.String()
	}
	return fmt.Sprintf("validation failed with %d violation(s):\n%s", len(e.Violations), strings.Join(lines, "\n"))
}

// Unwrap exposes the error code to errors.Is and errors.As.
func (e *ValidationFailedError) Unwrap() error {
	return errors.New(errors.ErrCodeValidationFailed, "package has %d violation(s)", len(e.Violations))
}
