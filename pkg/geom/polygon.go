package geom

import (
	"math"

	"github.com/golang/geo/r2"
)

// SignedArea returns the shoelace area of the closed polygon pts. The result
// is positive for counter-clockwise rings. The closing edge is implicit.
func SignedArea(pts []r2.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return sum / 2
}

// IsClockwise reports whether the ring pts winds clockwise.
func IsClockwise(pts []r2.Point) bool {
	return SignedArea(pts) < 0
}

// DistanceToSegment returns the distance from p to the segment ab.
func DistanceToSegment(p, a, b r2.Point) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return p.Sub(a).Norm()
	}
	t := p.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Sub(a.Add(ab.Mul(t))).Norm()
}

// PointOnPolygon reports whether p lies within tol of the boundary of the
// closed ring pts.
func PointOnPolygon(p r2.Point, pts []r2.Point, tol float64) bool {
	for i := range pts {
		if DistanceToSegment(p, pts[i], pts[(i+1)%len(pts)]) <= tol {
			return true
		}
	}
	return false
}

// PointInPolygon is the even-odd ray casting test; points on the boundary
// may land on either side.
func PointInPolygon(p r2.Point, pts []r2.Point) bool {
	inside := false
	n := len(pts)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := pts[i], pts[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// PointInOrOnPolygon reports whether p is inside the ring pts or within tol
// of its boundary.
func PointInOrOnPolygon(p r2.Point, pts []r2.Point, tol float64) bool {
	if len(pts) < 3 {
		return false
	}
	if PointOnPolygon(p, pts, tol) {
		return true
	}
	return PointInPolygon(p, pts)
}

// RemoveAdjacentDuplicates drops consecutive points closer than tol,
// including a closing point equal to the first.
func RemoveAdjacentDuplicates(pts []r2.Point, tol float64) []r2.Point {
	out := make([]r2.Point, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && p.Sub(out[len(out)-1]).Norm() <= tol {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[0].Sub(out[len(out)-1]).Norm() <= tol {
		out = out[:len(out)-1]
	}
	return out
}

// SimplifyPolygon removes duplicate points and the middle point of any
// near-collinear triple from the closed ring pts.
func SimplifyPolygon(pts []r2.Point, tol float64) []r2.Point {
	out := RemoveAdjacentDuplicates(pts, tol)
	for changed := true; changed && len(out) > 3; {
		changed = false
		for i := 0; i < len(out) && len(out) > 3; i++ {
			prev := out[(i+len(out)-1)%len(out)]
			next := out[(i+1)%len(out)]
			d1 := out[i].Sub(prev).Normalize()
			d2 := next.Sub(out[i]).Normalize()
			if d1.Dot(d2) > Collinear {
				out = append(out[:i], out[i+1:]...)
				changed = true
				i--
			}
		}
	}
	return out
}
