// Package geom holds the tolerances and small vector helpers shared by the
// curve-network packages. All topology work happens on the XY projection;
// Z is carried through untouched.
package geom

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// Default tolerances, in model units (mm for the authoring tool).
const (
	// Confusion is the distance below which two points are the same point.
	Confusion = 1e-6

	// BulgeConfusion is the bulge magnitude below which an edge is straight.
	BulgeConfusion = 1e-9

	// BulgeTolerance is used when comparing the bulges of two edges.
	BulgeTolerance = 1e-6

	// ParamConfusion is the smallest parameter span a trimmed curve may have.
	ParamConfusion = 1e-9

	// Angular is the tolerance on unit-vector dot products used for
	// parallelism tests.
	Angular = 1e-9

	// Collinear is the |cos| above which three points are treated as collinear
	// by the polygon simplifier and the three-point arc fit.
	Collinear = 0.999
)

// XY projects p onto the XY plane.
func XY(p r3.Vector) r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// At lifts an XY point to height z.
func At(p r2.Point, z float64) r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: z}
}

// Near reports whether a and b are within tol of each other.
func Near(a, b r3.Vector, tol float64) bool {
	return a.Sub(b).Norm2() <= tol*tol
}

// NearXY reports whether the XY projections of a and b are within tol.
func NearXY(a, b r3.Vector, tol float64) bool {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx+dy*dy <= tol*tol
}

// Mid returns the midpoint of a and b.
func Mid(a, b r3.Vector) r3.Vector {
	return a.Add(b).Mul(0.5)
}

// Cross2 returns the Z component of (a-o) x (b-o).
func Cross2(o, a, b r2.Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// Angle returns the polar angle of d in [0, 2π).
func Angle(d r2.Point) float64 {
	a := math.Atan2(d.Y, d.X)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// NormalizeAngle wraps a into [0, 2π).
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// Finite reports whether every component of p is a finite number.
func Finite(p r3.Vector) bool {
	for _, c := range [...]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
