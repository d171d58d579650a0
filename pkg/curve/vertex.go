package curve

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/plinth/pkg/geom"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// Vertex is one point of a polyline with arcs. A non-zero Bulge describes
// the arc from this vertex to the next one.
type Vertex struct {
	Position r3.Vector `json:"position"`
	Bulge    float64   `json:"bulge"`
}

// Equal compares positions within tol and bulge magnitudes within bulgeTol.
func (v Vertex) Equal(o Vertex, tol, bulgeTol float64) bool {
	return geom.Near(v.Position, o.Position, tol) &&
		math.Abs(math.Abs(v.Bulge)-math.Abs(o.Bulge)) <= bulgeTol
}

// FromVertices builds the curves of a vertex sequence. Consecutive
// coincident vertices are merged and zero-length edges skipped. Edges whose
// construction fails are left out; their errors are joined into err while
// the remaining curves are still returned.
func FromVertices(vs []Vertex, closed bool, tol float64) (curves []Curve, err error) {
	pts := compact(vs, closed, tol)
	n := len(pts)
	if n < 2 {
		return nil, nil
	}
	edges := n - 1
	if closed {
		edges = n
	}
	var errs []error
	for i := 0; i < edges; i++ {
		p0, p1 := pts[i], pts[(i+1)%n]
		c, cerr := FromBulge(p0.Position, p1.Position, p0.Bulge)
		if cerr != nil {
			errs = append(errs, fmt.Errorf("edge %d: %w", i, cerr))
			continue
		}
		curves = append(curves, c)
	}
	return curves, errors.Join(errs...)
}

func compact(vs []Vertex, closed bool, tol float64) []Vertex {
	out := make([]Vertex, 0, len(vs))
	for _, v := range vs {
		if k := len(out); k > 0 && geom.Near(out[k-1].Position, v.Position, tol) {
			out[k-1].Bulge = v.Bulge
			continue
		}
		out = append(out, v)
	}
	if closed {
		for len(out) > 1 && geom.Near(out[0].Position, out[len(out)-1].Position, tol) {
			out = out[:len(out)-1]
		}
	}
	return out
}

// ToVertices turns a connected curve sequence back into vertices. Reversed
// arcs carry a negated bulge. Open sequences end with a zero-bulge vertex;
// closed sequences carry the closing edge's bulge on their last vertex.
func ToVertices(curves []Curve, closed bool, tol float64) ([]Vertex, error) {
	chain, isClosed, err := Chain(curves, tol)
	if err != nil {
		return nil, err
	}
	if closed && !isClosed {
		return nil, ErrNotClosed
	}
	vs := make([]Vertex, 0, len(chain)+1)
	for _, c := range chain {
		vs = append(vs, Vertex{Position: c.Start(), Bulge: c.Bulge()})
	}
	if !closed {
		vs = append(vs, Vertex{Position: chain[len(chain)-1].End()})
	}
	return vs, nil
}

// ReverseVertices returns the sequence traversed backwards. Open sequences
// start at the old last vertex; closed ones keep their first vertex.
func ReverseVertices(vs []Vertex, closed bool) []Vertex {
	n := len(vs)
	out := make([]Vertex, n)
	if closed {
		for i := range out {
			out[i] = Vertex{
				Position: vs[(n-i)%n].Position,
				Bulge:    -vs[(2*n-i-1)%n].Bulge,
			}
		}
		return out
	}
	for i := range out {
		out[i].Position = vs[n-1-i].Position
		if i < n-1 {
			out[i].Bulge = -vs[n-2-i].Bulge
		}
	}
	return out
}

// Discretize returns the polyline through vs with every arc cut into steps
// of at most maxStep radians.
func Discretize(vs []Vertex, closed bool, maxStep float64) []r3.Vector {
	n := len(vs)
	if n == 0 {
		return nil
	}
	edges := n - 1
	if closed {
		edges = n
	}
	pts := []r3.Vector{vs[0].Position}
	for i := 0; i < edges; i++ {
		p0, p1 := vs[i], vs[(i+1)%n]
		if c, err := NewArc(p0.Position, p1.Position, p0.Bulge); err == nil {
			s := Sample(c, maxStep)
			pts = append(pts, s[1:]...)
			continue
		}
		pts = append(pts, p1.Position)
	}
	if closed && len(pts) > 1 {
		pts = pts[:len(pts)-1]
	}
	return pts
}

// SignedArea returns the area enclosed by a closed vertex ring, positive for
// counter-clockwise rings. Arcs contribute their circular segments.
func SignedArea(vs []Vertex) float64 {
	n := len(vs)
	ring := make([]r2.Point, n)
	var seg float64
	for i, v := range vs {
		ring[i] = geom.XY(v.Position)
		b := v.Bulge
		if math.Abs(b) <= geom.BulgeConfusion {
			continue
		}
		c := geom.XY(vs[(i+1)%n].Position).Sub(ring[i]).Norm()
		theta := 4 * math.Atan(math.Abs(b))
		r := c * (1 + b*b) / (4 * math.Abs(b))
		seg += math.Copysign(r*r/2*(theta-math.Sin(theta)), b)
	}
	return geom.SignedArea(ring) + seg
}

// CurvesSignedArea is SignedArea for a closed chain of curves.
func CurvesSignedArea(chain []Curve) float64 {
	vs := make([]Vertex, len(chain))
	for i, c := range chain {
		vs[i] = Vertex{Position: c.Start(), Bulge: c.Bulge()}
	}
	return SignedArea(vs)
}

// VerticesEqualUnordered reports whether a and b hold the same vertices in
// any order.
func VerticesEqualUnordered(a, b []Vertex, tol, bulgeTol float64) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
outer:
	for _, v := range a {
		for j, w := range b {
			if !used[j] && v.Equal(w, tol, bulgeTol) {
				used[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}
