package intersect

import (
	"math"

	"github.com/chazu/plinth/pkg/curve"
	"github.com/chazu/plinth/pkg/geom"
	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// part is a common part of two curves: a point with a parameter on each,
// or an overlap given as a parameter range on the first curve.
type part struct {
	overlap bool
	t1, t2  float64
	span    r1.Interval
}

func pointPart(t1, t2 float64) part { return part{t1: t1, t2: t2} }

func (p part) infos(i, j int, a, b curve.Curve, tol float64) []Info {
	if !p.overlap {
		return []Info{{Position: a.Eval(p.t1), Curve1Index: i, Curve2Index: j, Parameter1: p.t1, Parameter2: p.t2, Tolerance: tol}}
	}
	p0, p1 := a.Eval(p.span.Lo), a.Eval(p.span.Hi)
	_, u0 := b.Nearest(p0)
	first := Info{Position: p0, Curve1Index: i, Curve2Index: j, Parameter1: p.span.Lo, Parameter2: u0, Tolerance: tol}
	if geom.Near(p0, p1, tol) {
		return []Info{first}
	}
	_, u1 := b.Nearest(p1)
	return []Info{first, {Position: p1, Curve1Index: i, Curve2Index: j, Parameter1: p.span.Hi, Parameter2: u1, Tolerance: tol}}
}

// commonParts dispatches on the curve kinds. Parameters of the returned
// parts always follow the (a, b) roles.
func commonParts(a, b curve.Curve, o Options) []part {
	switch a := a.(type) {
	case curve.Line:
		switch b := b.(type) {
		case curve.Line:
			return lineLine(a, b, o)
		case curve.Arc:
			return lineArc(a, b, o)
		}
	case curve.Arc:
		switch b := b.(type) {
		case curve.Line:
			return swap(lineArc(b, a, o))
		case curve.Arc:
			return arcArc(a, b, o)
		}
	}
	return nil
}

func swap(parts []part) []part {
	for k, p := range parts {
		parts[k] = pointPart(p.t2, p.t1)
	}
	return parts
}

// within reports whether t lies in d grown by ptol.
func within(d r1.Interval, t, ptol float64) bool {
	return t >= d.Lo-ptol && t <= d.Hi+ptol
}

func lineLine(a, b curve.Line, o Options) []part {
	d1, d2 := a.Direction(), b.Direction()
	cos := d1.Dot(d2)
	if math.Abs(cos) > 1-o.AngularTolerance {
		// Parallel lines never cross; only a collinear overlap counts.
		return collinear(a, b, o.Tolerance)
	}
	w := a.Eval(0).Sub(b.Eval(0))
	d, e := d1.Dot(w), d2.Dot(w)
	den := 1 - cos*cos
	s := (cos*e - d) / den
	u := (e - cos*d) / den
	if !within(a.Domain(), s, o.Tolerance) || !within(b.Domain(), u, o.Tolerance) {
		return nil
	}
	s, u = a.Domain().ClampPoint(s), b.Domain().ClampPoint(u)
	if a.Eval(s).Distance(b.Eval(u)) > o.Tolerance {
		return nil
	}
	return []part{pointPart(s, u)}
}

func collinear(a, b curve.Line, tol float64) []part {
	for _, p := range [...]r3.Vector{b.Start(), b.End()} {
		if p.Distance(a.Eval(a.Param(p))) > tol {
			return nil
		}
	}
	s := r1.IntervalFromPoint(a.Param(b.Start())).AddPoint(a.Param(b.End()))
	lo, hi := math.Max(a.Domain().Lo, s.Lo), math.Min(a.Domain().Hi, s.Hi)
	if hi < lo-tol {
		return nil
	}
	if hi-lo <= tol {
		t := a.Domain().ClampPoint((lo + hi) / 2)
		_, u := b.Nearest(a.Eval(t))
		return []part{pointPart(t, u)}
	}
	return []part{{overlap: true, span: r1.Interval{Lo: lo, Hi: hi}}}
}

// lineArc returns parts with t1 on the line and t2 on the arc.
func lineArc(l curve.Line, c curve.Arc, o Options) []part {
	tol := o.Tolerance
	d := l.Direction()
	z := c.Center().Z
	var roots []float64
	if math.Abs(d.Z) > o.AngularTolerance {
		// The line pierces the arc plane once.
		roots = []float64{(z - l.Eval(0).Z) / d.Z}
	} else {
		if math.Abs(l.Start().Z-z) > tol {
			return nil
		}
		dxy := geom.XY(d)
		f := geom.XY(l.Eval(0)).Sub(geom.XY(c.Center()))
		aa := dxy.Dot(dxy)
		s0 := -f.Dot(dxy) / aa
		h := f.Add(dxy.Mul(s0)).Norm()
		r := c.Radius()
		switch {
		case h > r+tol:
			return nil
		case h >= r-tol:
			roots = []float64{s0}
		default:
			off := math.Sqrt((r*r - h*h) / aa)
			roots = []float64{s0 - off, s0 + off}
		}
	}

	var parts []part
	for _, s := range roots {
		if !within(l.Domain(), s, tol) {
			continue
		}
		s = l.Domain().ClampPoint(s)
		p := l.Eval(s)
		u := c.Param(p)
		if !within(c.Domain(), u, c.ParamTolerance(tol)) {
			continue
		}
		u = c.Domain().ClampPoint(u)
		if p.Distance(c.Eval(u)) > 2*tol {
			continue
		}
		parts = append(parts, pointPart(s, u))
	}
	return parts
}

func arcArc(a, b curve.Arc, o Options) []part {
	tol := o.Tolerance
	if math.Abs(a.Center().Z-b.Center().Z) > tol {
		return nil
	}
	ca, cb := geom.XY(a.Center()), geom.XY(b.Center())
	ra, rb := a.Radius(), b.Radius()
	dv := cb.Sub(ca)
	dist := dv.Norm()
	if dist <= tol {
		if math.Abs(ra-rb) <= tol {
			return coCircular(a, b, tol)
		}
		return nil
	}
	if dist > ra+rb+tol || dist < math.Abs(ra-rb)-tol {
		return nil
	}
	x := (dist*dist + ra*ra - rb*rb) / (2 * dist)
	u := dv.Mul(1 / dist)
	base := ca.Add(u.Mul(x))
	h := math.Sqrt(math.Max(ra*ra-x*x, 0))
	pts := []r2.Point{base}
	if h > tol {
		n := u.Ortho()
		pts = []r2.Point{base.Sub(n.Mul(h)), base.Add(n.Mul(h))}
	}

	var parts []part
	for _, p := range pts {
		p3 := geom.At(p, a.Center().Z)
		ta, tb := a.Param(p3), b.Param(p3)
		if !within(a.Domain(), ta, a.ParamTolerance(tol)) || !within(b.Domain(), tb, b.ParamTolerance(tol)) {
			continue
		}
		ta, tb = a.Domain().ClampPoint(ta), b.Domain().ClampPoint(tb)
		if a.Eval(ta).Distance(b.Eval(tb)) > 2*tol {
			continue
		}
		parts = append(parts, pointPart(ta, tb))
	}
	return parts
}

// coCircular intersects two arcs of the same circle by comparing their
// counter-clockwise angular intervals.
func coCircular(a, b curve.Arc, tol float64) []part {
	atol := a.ParamTolerance(tol)
	s1, l1 := ccwInterval(a)
	s2, l2 := ccwInterval(b)
	var parts []part
	for k := -1; k <= 1; k++ {
		shift := s2 + 2*math.Pi*float64(k)
		lo, hi := math.Max(s1, shift), math.Min(s1+l1, shift+l2)
		if hi < lo-atol {
			continue
		}
		t0, t1 := a.ParamOfAngle(lo), a.ParamOfAngle(hi)
		span := r1.IntervalFromPoint(a.Domain().ClampPoint(t0)).AddPoint(a.Domain().ClampPoint(t1))
		if hi-lo <= atol {
			t := span.Center()
			_, u := b.Nearest(a.Eval(t))
			parts = append(parts, pointPart(t, u))
			continue
		}
		parts = append(parts, part{overlap: true, span: span})
	}
	return parts
}

// ccwInterval returns the start angle in [0, 2π) and the sweep of the arc
// walked counter-clockwise.
func ccwInterval(a curve.Arc) (start, sweep float64) {
	p := a.Start()
	if !a.CCW() {
		p = a.End()
	}
	return geom.Angle(geom.XY(p).Sub(geom.XY(a.Center()))), a.Sweep()
}
