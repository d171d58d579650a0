package sketch

import (
	"fmt"
	"math"

	"github.com/chazu/plinth/pkg/geom"
)

// ValidationSeverity indicates whether a validation finding blocks the
// pipeline or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks the pipeline
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	EntryID  EntryID            `json:"entry_id,omitempty"` // zero if sketch-level
	Message  string             `json:"message"`
	Severity ValidationSeverity `json:"severity"`
}

func (e ValidationError) Error() string {
	if e.EntryID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] entry %s: %s", e.Severity, e.EntryID.Short(), e.Message)
}

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	EntryID EntryID `json:"entry_id,omitempty"`
	Message string  `json:"message"`
}

// ValidationResult bundles errors (blocking) and warnings (advisory)
// from all validation tiers.
type ValidationResult struct {
	Errors   []ValidationError   `json:"errors"`
	Warnings []ValidationWarning `json:"warnings"`
}

// OK reports whether no blocking error was found.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Validate runs the Tier 1 structural checks and returns the findings. An
// empty slice means the sketch is valid. It never mutates the sketch.
func Validate(s *Sketch) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateSettings(s)...)
	errs = append(errs, validateNames(s)...)
	errs = append(errs, validateEntries(s)...)
	return errs
}

// ValidateAll runs the structural and geometric tiers and returns their
// findings with errors and warnings separated.
func ValidateAll(s *Sketch) ValidationResult {
	tier1 := Validate(s)
	tier2Errs, tier2Warnings := validateGeometry(s)

	var result ValidationResult
	for _, e := range tier1 {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, ValidationWarning{
				EntryID: e.EntryID,
				Message: e.Message,
			})
		} else {
			result.Errors = append(result.Errors, e)
		}
	}
	result.Errors = append(result.Errors, tier2Errs...)
	result.Warnings = append(result.Warnings, tier2Warnings...)
	return result
}

// validateSettings checks that the numeric settings are usable.
func validateSettings(s *Sketch) []ValidationError {
	var errs []ValidationError
	st := s.Settings

	if !(st.Tolerance > 0) || math.IsInf(st.Tolerance, 0) {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("tolerance is %g, must be a positive finite number", st.Tolerance),
			Severity: SeverityError,
		})
	}
	if !(st.MinArea >= 0) || math.IsInf(st.MinArea, 0) {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("min-area is %g, must be a non-negative finite number", st.MinArea),
			Severity: SeverityError,
		})
	}
	if math.IsNaN(st.Height) || math.IsInf(st.Height, 0) {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("height is %g, must be finite", st.Height),
			Severity: SeverityError,
		})
	}
	if st.Units != DefaultUnits {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("units %q not supported, only %q", st.Units, DefaultUnits),
			Severity: SeverityError,
		})
	}
	return errs
}

// validateNames checks that names are unique and that the name index
// points at the entry carrying the name.
func validateNames(s *Sketch) []ValidationError {
	var errs []ValidationError

	seen := make(map[string]EntryID)
	for _, e := range s.Entries {
		if e.Name == "" {
			continue
		}
		if first, dup := seen[e.Name]; dup {
			errs = append(errs, ValidationError{
				EntryID:  e.ID,
				Message:  fmt.Sprintf("duplicate name %q (also used by entry %s)", e.Name, first.Short()),
				Severity: SeverityError,
			})
			continue
		}
		seen[e.Name] = e.ID
	}

	for name, i := range s.NameIndex {
		if i < 0 || i >= len(s.Entries) {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("name %q references missing entry %d", name, i),
				Severity: SeverityError,
			})
			continue
		}
		if s.Entries[i].Name != name {
			errs = append(errs, ValidationError{
				EntryID:  s.Entries[i].ID,
				Message:  fmt.Sprintf("name index maps %q to entry named %q", name, s.Entries[i].Name),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateEntries checks each entry's vertex data.
func validateEntries(s *Sketch) []ValidationError {
	var errs []ValidationError

	for _, e := range s.Entries {
		if len(e.Curves) == 0 {
			errs = append(errs, ValidationError{
				EntryID:  e.ID,
				Message:  fmt.Sprintf("%s %s has no geometry", e.Kind, label(e)),
				Severity: SeverityError,
			})
		}
		for i, v := range e.Vertices {
			if !geom.Finite(v.Position) || math.IsNaN(v.Bulge) || math.IsInf(v.Bulge, 0) {
				errs = append(errs, ValidationError{
					EntryID:  e.ID,
					Message:  fmt.Sprintf("%s %s vertex %d is not finite", e.Kind, label(e), i),
					Severity: SeverityError,
				})
			}
		}
		if e.Closed && len(e.Curves) < 2 {
			errs = append(errs, ValidationError{
				EntryID:  e.ID,
				Message:  fmt.Sprintf("closed %s %s has fewer than 2 edges", e.Kind, label(e)),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

func label(e *Entry) string {
	if e.Name != "" {
		return fmt.Sprintf("%q", e.Name)
	}
	return e.ID.Short()
}
