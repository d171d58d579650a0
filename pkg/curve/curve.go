// Package curve defines the planar curves handled by the topology engine:
// straight segments and circular arcs in a horizontal plane. Arcs are
// usually described by a bulge, the signed tangent of a quarter of the
// included angle, so a polyline with arcs is a list of (position, bulge)
// vertices.
//
// Curves are immutable values. Every curve owns its parameter domain;
// trimming keeps the parent's parameterization, like a trimmed curve in a
// B-Rep kernel.
package curve

import (
	"errors"
	"math"

	"github.com/chazu/plinth/pkg/geom"
	"github.com/golang/geo/r1"
	"github.com/golang/geo/r3"
)

var (
	// ErrDegenerate is returned for zero-length, non-finite or otherwise
	// unusable curve input.
	ErrDegenerate = errors.New("curve: degenerate geometry")

	// ErrNonPlanar is returned for arcs whose endpoints are at different heights.
	ErrNonPlanar = errors.New("curve: arc endpoints not in a horizontal plane")

	// ErrDisconnected is returned when curves do not chain end to end.
	ErrDisconnected = errors.New("curve: curves are not connected")

	// ErrNotClosed is returned when a closed chain was required.
	ErrNotClosed = errors.New("curve: chain is not closed")
)

// Kind tags the concrete curve type.
type Kind int

const (
	KindLine Kind = iota // straight segment
	KindArc              // circular arc
)

func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindArc:
		return "arc"
	default:
		return "unknown"
	}
}

// Curve is a bounded planar curve. Parameters increase from Start to End.
type Curve interface {
	Kind() Kind
	Start() r3.Vector
	End() r3.Vector

	// Domain is the parameter interval [first, last].
	Domain() r1.Interval
	Eval(t float64) r3.Vector

	// Tangent returns the unit tangent at t in the direction of increasing t.
	Tangent(t float64) r3.Vector

	// Bulge is 0 for lines; for arcs tan(sweep/4), positive when counter-clockwise.
	Bulge() float64
	Length() float64

	// Nearest projects p onto the curve and returns the distance and the
	// parameter of the closest point inside the domain.
	Nearest(p r3.Vector) (dist, t float64)

	// Trim returns the part of the curve between t0 and t1, which must lie
	// inside the domain.
	Trim(t0, t1 float64) (Curve, error)

	// Reverse returns the same point set traversed in the opposite direction.
	Reverse() Curve

	Bounds() geom.Box

	// ParamTolerance converts a distance tolerance into parameter units.
	ParamTolerance(tol float64) float64
}

// FromBulge returns the straight segment or arc from p0 to p1 described by
// bulge.
func FromBulge(p0, p1 r3.Vector, bulge float64) (Curve, error) {
	if math.Abs(bulge) <= geom.BulgeConfusion {
		return NewLine(p0, p1)
	}
	return NewArc(p0, p1, bulge)
}

// Connected reports whether a and b share an endpoint within tol.
func Connected(a, b Curve, tol float64) bool {
	return geom.Near(a.Start(), b.Start(), tol) || geom.Near(a.Start(), b.End(), tol) ||
		geom.Near(a.End(), b.Start(), tol) || geom.Near(a.End(), b.End(), tol)
}

// SameCurve reports whether a and b describe the same edge, in either
// direction.
func SameCurve(a, b Curve, tol, bulgeTol float64) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	if geom.Near(a.Start(), b.Start(), tol) && geom.Near(a.End(), b.End(), tol) &&
		math.Abs(a.Bulge()-b.Bulge()) <= bulgeTol {
		return true
	}
	return geom.Near(a.Start(), b.End(), tol) && geom.Near(a.End(), b.Start(), tol) &&
		math.Abs(a.Bulge()+b.Bulge()) <= bulgeTol
}

// DefaultArcStep is the default angular step used when arcs are sampled.
const DefaultArcStep = 5 * math.Pi / 180

// Sample returns points along c, the endpoints included. Arcs are cut into
// pieces of at most maxStep radians.
func Sample(c Curve, maxStep float64) []r3.Vector {
	a, ok := c.(Arc)
	if !ok {
		return []r3.Vector{c.Start(), c.End()}
	}
	if maxStep <= 0 {
		maxStep = DefaultArcStep
	}
	d := a.Domain()
	n := int(d.Length()/maxStep) + 1
	pts := make([]r3.Vector, 0, n+1)
	for i := 0; i <= n; i++ {
		pts = append(pts, a.Eval(d.Lo+d.Length()*float64(i)/float64(n)))
	}
	return pts
}

func clamp(x float64, d r1.Interval) float64 {
	return d.ClampPoint(x)
}
