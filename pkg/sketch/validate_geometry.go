package sketch

import (
	"fmt"
	"math"

	"github.com/chazu/plinth/pkg/curve"
	"github.com/chazu/plinth/pkg/geom"
	"github.com/golang/geo/r3"
)

// ---------------------------------------------------------------------------
// Tier 2: geometric validation (errors and warnings)
// ---------------------------------------------------------------------------

// shortFactor times the tolerance is the length below which a curve is
// reported as suspiciously short.
const shortFactor = 10

// validateGeometry runs the Tier 2 checks. Returns errors (blocking) and
// warnings (advisory) separately.
func validateGeometry(s *Sketch) ([]ValidationError, []ValidationWarning) {
	var errs []ValidationError
	var warnings []ValidationWarning

	errs = append(errs, validateClosedArea(s)...)

	warnings = append(warnings, validateDuplicateCurves(s)...)
	warnings = append(warnings, validateDanglingEnds(s)...)
	warnings = append(warnings, validateShortCurves(s)...)

	return errs, warnings
}

// validateClosedArea checks that closed entries enclose some area.
func validateClosedArea(s *Sketch) []ValidationError {
	var errs []ValidationError

	for _, e := range s.Entries {
		if !e.Closed || len(e.Curves) < 2 {
			continue
		}
		area := curve.CurvesSignedArea(e.Curves)
		if math.Abs(area) <= s.Settings.MinArea {
			errs = append(errs, ValidationError{
				EntryID:  e.ID,
				Message:  fmt.Sprintf("closed %s %s encloses area %.6g, not above min-area", e.Kind, label(e), math.Abs(area)),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateDuplicateCurves warns about curves drawn twice. The pipeline
// collapses them, but they usually point at a copy-paste slip.
func validateDuplicateCurves(s *Sketch) []ValidationWarning {
	var warnings []ValidationWarning

	curves := s.Curves()
	owners := s.Owners()
	for i := range curves {
		for j := 0; j < i; j++ {
			if !curve.SameCurve(curves[i], curves[j], s.Settings.Tolerance, geom.BulgeTolerance) {
				continue
			}
			a, b := s.Entries[owners[j]], s.Entries[owners[i]]
			warnings = append(warnings, ValidationWarning{
				EntryID: b.ID,
				Message: fmt.Sprintf("%s %s repeats a curve of %s %s", b.Kind, label(b), a.Kind, label(a)),
			})
			break
		}
	}
	return warnings
}

// validateDanglingEnds warns about open endpoints that touch no other
// curve. They cannot bound a region.
func validateDanglingEnds(s *Sketch) []ValidationWarning {
	var warnings []ValidationWarning

	curves := s.Curves()
	owners := s.Owners()
	tol := s.Settings.Tolerance
	for i, c := range curves {
		e := s.Entries[owners[i]]
		if e.Closed {
			continue
		}
		for _, p := range [...]r3.Vector{c.Start(), c.End()} {
			if touchesOther(p, i, curves, tol) {
				continue
			}
			warnings = append(warnings, ValidationWarning{
				EntryID: e.ID,
				Message: fmt.Sprintf("%s %s has a dangling end at (%.4g, %.4g)", e.Kind, label(e), p.X, p.Y),
			})
		}
	}
	return warnings
}

func touchesOther(p r3.Vector, self int, curves []curve.Curve, tol float64) bool {
	for j, o := range curves {
		if j == self {
			continue
		}
		if d, _ := o.Nearest(p); d <= tol {
			return true
		}
	}
	return false
}

// validateShortCurves warns about curves barely longer than the tolerance.
func validateShortCurves(s *Sketch) []ValidationWarning {
	var warnings []ValidationWarning

	limit := shortFactor * s.Settings.Tolerance
	for _, e := range s.Entries {
		for k, c := range e.Curves {
			if c.Length() >= limit {
				continue
			}
			warnings = append(warnings, ValidationWarning{
				EntryID: e.ID,
				Message: fmt.Sprintf("%s %s edge %d is only %.3g long", e.Kind, label(e), k, c.Length()),
			})
		}
	}
	return warnings
}
