package geom

import (
	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// Box is an axis-aligned bounding box split into its XY rectangle and Z span.
type Box struct {
	XY r2.Rect
	Z  r1.Interval
}

// EmptyBox returns a box containing nothing.
func EmptyBox() Box {
	return Box{XY: r2.EmptyRect(), Z: r1.EmptyInterval()}
}

// IsEmpty reports whether the box contains no points.
func (b Box) IsEmpty() bool {
	return b.XY.IsEmpty()
}

// AddPoint returns the smallest box containing b and p.
func (b Box) AddPoint(p r3.Vector) Box {
	return Box{XY: b.XY.AddPoint(XY(p)), Z: b.Z.AddPoint(p.Z)}
}

// Union returns the smallest box containing b and o.
func (b Box) Union(o Box) Box {
	return Box{XY: b.XY.Union(o.XY), Z: b.Z.Union(o.Z)}
}

// Center returns the centre of the box.
func (b Box) Center() r3.Vector {
	return At(b.XY.Center(), b.Z.Center())
}

// Area returns the XY area of the box.
func (b Box) Area() float64 {
	if b.IsEmpty() {
		return 0
	}
	s := b.XY.Size()
	return s.X * s.Y
}

// ContainsXY reports whether the XY projection of p lies in the box grown by tol.
func (b Box) ContainsXY(p r3.Vector, tol float64) bool {
	if b.IsEmpty() {
		return false
	}
	return b.XY.Expanded(r2.Point{X: tol, Y: tol}).ContainsPoint(XY(p))
}

// ContainsBoxXY reports whether o lies inside b (grown by tol) on XY.
func (b Box) ContainsBoxXY(o Box, tol float64) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return false
	}
	return b.XY.Expanded(r2.Point{X: tol, Y: tol}).Contains(o.XY)
}

// Min returns the minimum corner.
func (b Box) Min() r3.Vector {
	return r3.Vector{X: b.XY.X.Lo, Y: b.XY.Y.Lo, Z: b.Z.Lo}
}

// Max returns the maximum corner.
func (b Box) Max() r3.Vector {
	return r3.Vector{X: b.XY.X.Hi, Y: b.XY.Y.Hi, Z: b.Z.Hi}
}
