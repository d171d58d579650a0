package kernel

import (
	"fmt"
	"slices"

	"github.com/chazu/plinth/pkg/curve"
	"github.com/chazu/plinth/pkg/geom"
	"github.com/chazu/plinth/pkg/intersect"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// Wire is an ordered chain of curves, head to tail.
type Wire struct {
	curves []curve.Curve
	closed bool
}

// NewWire orders and orients curves into a wire.
func NewWire(curves []curve.Curve, tol float64) (*Wire, error) {
	chain, closed, err := curve.Chain(curves, tol)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDisconnected, err)
	}
	return &Wire{curves: chain, closed: closed}, nil
}

// Curves returns the wire's curves in traversal order.
func (w *Wire) Curves() []curve.Curve { return slices.Clone(w.curves) }

// Closed reports whether the wire returns to its start.
func (w *Wire) Closed() bool { return w.closed }

// Len returns the number of curves.
func (w *Wire) Len() int { return len(w.curves) }

// SignedArea is the enclosed area, positive counter-clockwise. Open wires
// enclose nothing.
func (w *Wire) SignedArea() float64 {
	if !w.closed {
		return 0
	}
	return curve.CurvesSignedArea(w.curves)
}

// Reverse returns the wire traversed the other way.
func (w *Wire) Reverse() *Wire {
	n := len(w.curves)
	out := &Wire{curves: make([]curve.Curve, n), closed: w.closed}
	for i, c := range w.curves {
		out.curves[n-1-i] = c.Reverse()
	}
	return out
}

// Bounds returns the exact bounding box.
func (w *Wire) Bounds() geom.Box {
	b := geom.EmptyBox()
	for _, c := range w.curves {
		b = b.Union(c.Bounds())
	}
	return b
}

// Elevation is the height of the wire's first point.
func (w *Wire) Elevation() float64 {
	if len(w.curves) == 0 {
		return 0
	}
	return w.curves[0].Start().Z
}

// Polygon samples the wire on XY, arcs cut into steps of at most step
// radians. The closing point of a closed wire is not repeated.
func (w *Wire) Polygon(step float64) []r2.Point {
	var pts []r2.Point
	for _, c := range w.curves {
		s := curve.Sample(c, step)
		for _, p := range s[:len(s)-1] {
			pts = append(pts, geom.XY(p))
		}
	}
	if !w.closed && len(w.curves) > 0 {
		pts = append(pts, geom.XY(w.curves[len(w.curves)-1].End()))
	}
	return pts
}

// Vertices returns the wire as a bulge polyline.
func (w *Wire) Vertices(tol float64) ([]curve.Vertex, error) {
	return curve.ToVertices(w.curves, w.closed, tol)
}

// SelfIntersects reports whether the wire crosses itself. Curves may meet
// at shared vertices: a wire that comes back to one of its vertices and
// leaves again on the same side is pinched, not self-intersecting.
func (w *Wire) SelfIntersects(tol float64) bool {
	for _, in := range intersect.Find(w.curves, intersect.Options{Tolerance: tol}) {
		a, b := w.curves[in.Curve1Index], w.curves[in.Curve2Index]
		if sharedEnd(a, b, in, tol) {
			continue
		}
		return true
	}
	return w.crossesAtVertex(tol)
}

// sharedEnd reports whether the event sits on an endpoint common to a and b.
func sharedEnd(a, b curve.Curve, in intersect.Info, tol float64) bool {
	onA := geom.Near(in.Position, a.Start(), tol) || geom.Near(in.Position, a.End(), tol)
	onB := geom.Near(in.Position, b.Start(), tol) || geom.Near(in.Position, b.End(), tol)
	return onA && onB
}

// visit is one pass of the wire through a vertex: the direction back along
// the arriving curve and the direction of the leaving curve.
type visit struct {
	at      r3.Vector
	in, out float64
}

// crossesAtVertex reports whether two passes through the same vertex
// interleave, so that one enters the wedge swept by the other and leaves it.
func (w *Wire) crossesAtVertex(tol float64) bool {
	n := len(w.curves)
	var visits []visit
	for k := 1; k <= n; k++ {
		if k == n && !w.closed {
			break
		}
		prev, next := w.curves[k-1], w.curves[k%n]
		back := prev.Tangent(prev.Domain().Hi).Mul(-1)
		ahead := next.Tangent(next.Domain().Lo)
		visits = append(visits, visit{
			at:  next.Start(),
			in:  geom.Angle(geom.XY(back)),
			out: geom.Angle(geom.XY(ahead)),
		})
	}
	for i := range visits {
		for j := i + 1; j < len(visits); j++ {
			a, b := visits[i], visits[j]
			if !geom.Near(a.at, b.at, tol) {
				continue
			}
			if inWedge(a, b.in) != inWedge(a, b.out) {
				return true
			}
		}
	}
	return false
}

// inWedge reports whether angle x lies strictly inside the wedge swept
// counter-clockwise from v.in to v.out.
func inWedge(v visit, x float64) bool {
	return geom.NormalizeAngle(x-v.in) < geom.NormalizeAngle(v.out-v.in)
}

// CheckFace validates the wires of a face: every wire closed and simple,
// every hole inside the outer wire.
func CheckFace(outer *Wire, holes []*Wire, tol, step float64) error {
	if outer == nil || !outer.Closed() {
		return ErrOpenWire
	}
	if outer.SelfIntersects(tol) {
		return fmt.Errorf("%w: outer wire", ErrSelfIntersecting)
	}
	area := outer.SignedArea()
	if area > -tol*tol && area < tol*tol {
		return fmt.Errorf("%w: outer wire encloses no area", ErrDegenerate)
	}
	poly := outer.Polygon(step)
	for k, h := range holes {
		if h == nil || !h.Closed() {
			return fmt.Errorf("%w: hole %d", ErrOpenWire, k)
		}
		if h.SelfIntersects(tol) {
			return fmt.Errorf("%w: hole %d", ErrSelfIntersecting, k)
		}
		for _, c := range h.curves {
			if !geom.PointInOrOnPolygon(geom.XY(c.Start()), poly, tol) {
				return fmt.Errorf("%w: hole %d", ErrHoleOutside, k)
			}
		}
	}
	return nil
}

// Orient returns the wires wound for a face: outer counter-clockwise and
// holes clockwise.
func Orient(outer *Wire, holes []*Wire) (*Wire, []*Wire) {
	if outer.SignedArea() < 0 {
		outer = outer.Reverse()
	}
	out := make([]*Wire, len(holes))
	for i, h := range holes {
		if h.SignedArea() > 0 {
			h = h.Reverse()
		}
		out[i] = h
	}
	return outer, out
}
