package curve

import (
	"fmt"

	"github.com/chazu/plinth/pkg/geom"
	"github.com/golang/geo/r1"
	"github.com/golang/geo/r3"
)

var _ Curve = Line{}

// Line is a straight segment Origin + Dir·t for t in the domain. The
// parameter is arc length.
type Line struct {
	origin r3.Vector
	dir    r3.Vector
	span   r1.Interval
}

// NewLine returns the segment from p0 to p1.
func NewLine(p0, p1 r3.Vector) (Line, error) {
	if !geom.Finite(p0) || !geom.Finite(p1) {
		return Line{}, fmt.Errorf("%w: non-finite line endpoint", ErrDegenerate)
	}
	d := p1.Sub(p0)
	l := d.Norm()
	if l <= geom.Confusion {
		return Line{}, fmt.Errorf("%w: line of length %g", ErrDegenerate, l)
	}
	return Line{origin: p0, dir: d.Mul(1 / l), span: r1.Interval{Lo: 0, Hi: l}}, nil
}

// MustLine is NewLine for literal geometry; it panics on error.
func MustLine(p0, p1 r3.Vector) Line {
	l, err := NewLine(p0, p1)
	if err != nil {
		panic(err)
	}
	return l
}

// Direction returns the unit direction of the line.
func (l Line) Direction() r3.Vector { return l.dir }

func (l Line) Kind() Kind { return KindLine }
func (l Line) Domain() r1.Interval { return l.span }
func (l Line) Eval(t float64) r3.Vector { return l.origin.Add(l.dir.Mul(t)) }
func (l Line) Tangent(float64) r3.Vector { return l.dir }
func (l Line) Start() r3.Vector { return l.Eval(l.span.Lo) }
func (l Line) End() r3.Vector { return l.Eval(l.span.Hi) }
func (l Line) Bulge() float64 { return 0 }
func (l Line) Length() float64 { return l.span.Length() }
func (l Line) ParamTolerance(tol float64) float64 { return tol }

// Param returns the unclamped parameter of the projection of p.
func (l Line) Param(p r3.Vector) float64 {
	return p.Sub(l.origin).Dot(l.dir)
}

func (l Line) Nearest(p r3.Vector) (float64, float64) {
	t := clamp(l.Param(p), l.span)
	return p.Distance(l.Eval(t)), t
}

func (l Line) Trim(t0, t1 float64) (Curve, error) {
	if t1-t0 <= geom.ParamConfusion {
		return nil, fmt.Errorf("%w: empty trim [%g, %g]", ErrDegenerate, t0, t1)
	}
	ptol := geom.Confusion
	if t0 < l.span.Lo-ptol || t1 > l.span.Hi+ptol {
		return nil, fmt.Errorf("%w: trim [%g, %g] outside domain [%g, %g]",
			ErrDegenerate, t0, t1, l.span.Lo, l.span.Hi)
	}
	return Line{origin: l.origin, dir: l.dir, span: r1.Interval{Lo: clamp(t0, l.span), Hi: clamp(t1, l.span)}}, nil
}

func (l Line) Reverse() Curve {
	return Line{origin: l.End(), dir: l.dir.Mul(-1), span: r1.Interval{Lo: 0, Hi: l.span.Length()}}
}

func (l Line) Bounds() geom.Box {
	return geom.EmptyBox().AddPoint(l.Start()).AddPoint(l.End())
}

func (l Line) String() string {
	s, e := l.Start(), l.End()
	return fmt.Sprintf("line(%.4g,%.4g -> %.4g,%.4g)", s.X, s.Y, e.X, e.Y)
}
