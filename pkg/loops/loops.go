// Package loops reconstructs closed loops from a soup of curve fragments.
//
// Two finders are provided. FindLoops builds a half-edge structure and
// traces the faces of the planar subdivision; it expects fragments that
// only meet at endpoints. ClosedCurvesFromUnordered walks the endpoint
// connectivity graph depth-first and is used for input that has not been
// split, or as a fallback.
package loops

import (
	"log/slog"
	"slices"

	"github.com/chazu/plinth/pkg/curve"
	"github.com/chazu/plinth/pkg/geom"
	"github.com/golang/geo/r3"
)

// MinCurves is the smallest input either finder accepts.
const MinCurves = 3

// DefaultMaxSteps bounds the depth-first search of the connectivity finder.
const DefaultMaxSteps = 200000

// Options configures the loop finders.
type Options struct {
	Tolerance float64      // endpoint coincidence distance
	MaxSteps  int          // connectivity search budget; 0 means DefaultMaxSteps
	Logger    *slog.Logger // nil discards
}

// DefaultOptions returns the finder defaults.
func DefaultOptions() Options {
	return Options{Tolerance: geom.Confusion, MaxSteps: DefaultMaxSteps}
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = geom.Confusion
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = DefaultMaxSteps
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Loop is a closed chain of curves. Curves are oriented head to tail;
// Sources holds the index of each curve in the finder's input.
type Loop struct {
	Curves  []curve.Curve
	Sources []int
}

// SignedArea returns the enclosed area, positive when the loop runs
// counter-clockwise.
func (l Loop) SignedArea() float64 {
	return curve.CurvesSignedArea(l.Curves)
}

// Closed reports whether the loop returns to its start within tol.
func (l Loop) Closed(tol float64) bool {
	n := len(l.Curves)
	if n == 0 {
		return false
	}
	for i, c := range l.Curves {
		if !geom.Near(c.End(), l.Curves[(i+1)%n].Start(), tol) {
			return false
		}
	}
	return true
}

// Reverse returns the loop traversed the other way.
func (l Loop) Reverse() Loop {
	n := len(l.Curves)
	out := Loop{Curves: make([]curve.Curve, n), Sources: make([]int, n)}
	for i := range l.Curves {
		out.Curves[i] = l.Curves[n-1-i].Reverse()
		out.Sources[i] = l.Sources[n-1-i]
	}
	return out
}

// RemoveRepeated drops curves that repeat an earlier curve, in either
// direction.
func RemoveRepeated(curves []curve.Curve, tol float64) []curve.Curve {
	idx := uniqueIndices(curves, tol)
	out := make([]curve.Curve, len(idx))
	for k, i := range idx {
		out[k] = curves[i]
	}
	return out
}

func uniqueIndices(curves []curve.Curve, tol float64) []int {
	var keep []int
	for i, c := range curves {
		if c == nil {
			continue
		}
		dup := slices.ContainsFunc(keep, func(k int) bool {
			return curve.SameCurve(curves[k], c, tol, geom.BulgeTolerance)
		})
		if !dup {
			keep = append(keep, i)
		}
	}
	return keep
}

// IsValidTriangle reports whether three curves close a triangle: exactly
// three distinct endpoints, each shared by two curves.
func IsValidTriangle(a, b, c curve.Curve, tol float64) bool {
	type cluster struct {
		p     r3.Vector
		count int
	}
	var clusters []cluster
	for _, cv := range [...]curve.Curve{a, b, c} {
		for _, p := range [...]r3.Vector{cv.Start(), cv.End()} {
			k := slices.IndexFunc(clusters, func(cl cluster) bool { return geom.Near(cl.p, p, tol) })
			if k < 0 {
				clusters = append(clusters, cluster{p: p, count: 1})
				continue
			}
			clusters[k].count++
		}
	}
	if len(clusters) != 3 {
		return false
	}
	for _, cl := range clusters {
		if cl.count != 2 {
			return false
		}
	}
	return true
}

func countCurves(curves []curve.Curve) int {
	n := 0
	for _, c := range curves {
		if c != nil {
			n++
		}
	}
	return n
}
