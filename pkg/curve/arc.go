package curve

import (
	"fmt"
	"math"

	"github.com/chazu/plinth/pkg/geom"
	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

var _ Curve = Arc{}

// Arc is a circular arc in the horizontal plane through its centre. The
// parameter is the swept angle in radians, measured from ref in the arc's
// sense (+1 counter-clockwise, -1 clockwise).
type Arc struct {
	center r3.Vector
	radius float64
	ref    float64
	sense  float64
	span   r1.Interval
}

// NewArc returns the arc from p0 to p1 with the given bulge. A positive
// bulge turns counter-clockwise, so the arc bulges to the right of the
// chord p0->p1.
func NewArc(p0, p1 r3.Vector, bulge float64) (Arc, error) {
	if !geom.Finite(p0) || !geom.Finite(p1) || math.IsNaN(bulge) || math.IsInf(bulge, 0) {
		return Arc{}, fmt.Errorf("%w: non-finite arc input", ErrDegenerate)
	}
	if math.Abs(bulge) <= geom.BulgeConfusion {
		return Arc{}, fmt.Errorf("%w: arc with zero bulge", ErrDegenerate)
	}
	if math.Abs(p0.Z-p1.Z) > geom.Confusion {
		return Arc{}, ErrNonPlanar
	}
	a, b := geom.XY(p0), geom.XY(p1)
	chord := b.Sub(a)
	c := chord.Norm()
	if c <= geom.Confusion {
		return Arc{}, fmt.Errorf("%w: arc chord of length %g", ErrDegenerate, c)
	}
	n := chord.Mul(1 / c).Ortho()
	mid := a.Add(b).Mul(0.5)
	center := mid.Add(n.Mul(c * (1 - bulge*bulge) / (4 * bulge)))
	sense := 1.0
	if bulge < 0 {
		sense = -1
	}
	return Arc{
		center: geom.At(center, p0.Z),
		radius: c * (1 + bulge*bulge) / (4 * math.Abs(bulge)),
		ref:    geom.Angle(a.Sub(center)),
		sense:  sense,
		span:   r1.Interval{Lo: 0, Hi: 4 * math.Atan(math.Abs(bulge))},
	}, nil
}

// NewArcThreePoints returns the arc from p0 through mid to p1.
func NewArcThreePoints(p0, mid, p1 r3.Vector) (Arc, error) {
	b := BulgeFromThreePoints(p0, mid, p1)
	if b == 0 {
		return Arc{}, fmt.Errorf("%w: collinear arc points", ErrDegenerate)
	}
	return NewArc(p0, p1, b)
}

// MustArc is NewArc for literal geometry; it panics on error.
func MustArc(p0, p1 r3.Vector, bulge float64) Arc {
	a, err := NewArc(p0, p1, bulge)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Arc) Center() r3.Vector { return a.center }
func (a Arc) Radius() float64 { return a.radius }

// CCW reports whether the arc turns counter-clockwise.
func (a Arc) CCW() bool { return a.sense > 0 }

// Sweep returns the included angle in radians.
func (a Arc) Sweep() float64 { return a.span.Length() }

func (a Arc) Kind() Kind { return KindArc }
func (a Arc) Domain() r1.Interval { return a.span }
func (a Arc) Start() r3.Vector { return a.Eval(a.span.Lo) }
func (a Arc) End() r3.Vector { return a.Eval(a.span.Hi) }
func (a Arc) Length() float64 { return a.radius * a.Sweep() }
func (a Arc) Bulge() float64 { return a.sense * math.Tan(a.Sweep()/4) }
func (a Arc) ParamTolerance(tol float64) float64 { return tol / a.radius }

func (a Arc) angle(t float64) float64 {
	return a.ref + a.sense*t
}

func (a Arc) Eval(t float64) r3.Vector {
	s, c := math.Sincos(a.angle(t))
	return a.center.Add(r3.Vector{X: a.radius * c, Y: a.radius * s})
}

func (a Arc) Tangent(t float64) r3.Vector {
	s, c := math.Sincos(a.angle(t))
	return r3.Vector{X: -s * a.sense, Y: c * a.sense}
}

// ParamOfAngle maps a polar angle around the centre to the parameter
// closest to the domain.
func (a Arc) ParamOfAngle(phi float64) float64 {
	base := geom.NormalizeAngle((phi - a.ref) * a.sense)
	best, bestGap := base, math.Inf(1)
	for _, t := range [...]float64{base - 2*math.Pi, base, base + 2*math.Pi} {
		gap := 0.0
		switch {
		case t < a.span.Lo:
			gap = a.span.Lo - t
		case t > a.span.Hi:
			gap = t - a.span.Hi
		}
		if gap < bestGap {
			best, bestGap = t, gap
		}
	}
	return best
}

// Param returns the parameter of the polar angle of p, unclamped.
func (a Arc) Param(p r3.Vector) float64 {
	return a.ParamOfAngle(geom.Angle(geom.XY(p).Sub(geom.XY(a.center))))
}

func (a Arc) Nearest(p r3.Vector) (float64, float64) {
	t := a.Param(p)
	if a.span.Contains(t) {
		return p.Distance(a.Eval(t)), t
	}
	ds, de := p.Distance(a.Start()), p.Distance(a.End())
	if ds <= de {
		return ds, a.span.Lo
	}
	return de, a.span.Hi
}

func (a Arc) Trim(t0, t1 float64) (Curve, error) {
	if t1-t0 <= geom.ParamConfusion {
		return nil, fmt.Errorf("%w: empty trim [%g, %g]", ErrDegenerate, t0, t1)
	}
	ptol := a.ParamTolerance(geom.Confusion)
	if t0 < a.span.Lo-ptol || t1 > a.span.Hi+ptol {
		return nil, fmt.Errorf("%w: trim [%g, %g] outside domain [%g, %g]",
			ErrDegenerate, t0, t1, a.span.Lo, a.span.Hi)
	}
	out := a
	out.span = r1.Interval{Lo: clamp(t0, a.span), Hi: clamp(t1, a.span)}
	return out, nil
}

func (a Arc) Reverse() Curve {
	return Arc{
		center: a.center,
		radius: a.radius,
		ref:    a.angle(a.span.Hi),
		sense:  -a.sense,
		span:   r1.Interval{Lo: 0, Hi: a.Sweep()},
	}
}

func (a Arc) Bounds() geom.Box {
	b := geom.EmptyBox().AddPoint(a.Start()).AddPoint(a.End())
	for k := 0; k < 4; k++ {
		phi := float64(k) * math.Pi / 2
		if t := a.ParamOfAngle(phi); a.span.Contains(t) {
			b = b.AddPoint(a.Eval(t))
		}
	}
	return b
}

// Apex returns the midpoint of the arc.
func (a Arc) Apex() r3.Vector {
	return a.Eval(a.span.Center())
}

func (a Arc) String() string {
	s, e := a.Start(), a.End()
	return fmt.Sprintf("arc(%.4g,%.4g -> %.4g,%.4g bulge %.4g)", s.X, s.Y, e.X, e.Y, a.Bulge())
}

// Apex returns the midpoint of the arc from p0 to p1 with the given bulge,
// or the chord midpoint when the bulge is zero.
func Apex(p0, p1 r3.Vector, bulge float64) r3.Vector {
	a, b := geom.XY(p0), geom.XY(p1)
	chord := b.Sub(a)
	c := chord.Norm()
	mid := geom.Mid(p0, p1)
	if c == 0 {
		return mid
	}
	n := chord.Mul(1 / c).Ortho()
	off := n.Mul(-bulge * c / 2)
	return mid.Add(r3.Vector{X: off.X, Y: off.Y})
}

// BulgeFromThreePoints returns the bulge of the arc from start through mid
// to end. Near-collinear points and degenerate circle fits yield 0.
func BulgeFromThreePoints(start, mid, end r3.Vector) float64 {
	s, m, e := geom.XY(start), geom.XY(mid), geom.XY(end)
	v1, v2 := m.Sub(s), e.Sub(s)
	if v1.Norm() <= geom.Confusion || v2.Norm() <= geom.Confusion || e.Sub(m).Norm() <= geom.Confusion {
		return 0
	}
	if math.Abs(v1.Normalize().Dot(v2.Normalize())) > geom.Collinear {
		return 0
	}
	det := 2 * (s.X*(m.Y-e.Y) + m.X*(e.Y-s.Y) + e.X*(s.Y-m.Y))
	if math.Abs(det) < geom.Confusion {
		return 0
	}
	// Inscribed angle at mid is half of the arc on the far side.
	inscribed := angleBetween(s.Sub(m), e.Sub(m))
	sweep := 2*math.Pi - 2*inscribed
	b := math.Tan(sweep / 4)
	if v2.Cross(v1) > 0 {
		b = -b
	}
	return b
}

func angleBetween(u, v r2.Point) float64 {
	c := u.Dot(v) / (u.Norm() * v.Norm())
	return math.Acos(math.Max(-1, math.Min(1, c)))
}
