package geom

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

func square(size float64) []r2.Point {
	return []r2.Point{{X: 0, Y: 0}, {X: size, Y: 0}, {X: size, Y: size}, {X: 0, Y: size}}
}

func TestSignedArea(t *testing.T) {
	ccw := square(2)
	if got := SignedArea(ccw); math.Abs(got-4) > 1e-12 {
		t.Errorf("SignedArea(ccw) = %v, want 4", got)
	}
	cw := []r2.Point{ccw[3], ccw[2], ccw[1], ccw[0]}
	if got := SignedArea(cw); math.Abs(got+4) > 1e-12 {
		t.Errorf("SignedArea(cw) = %v, want -4", got)
	}
	if !IsClockwise(cw) || IsClockwise(ccw) {
		t.Error("IsClockwise disagrees with winding")
	}
	if got := SignedArea(ccw[:2]); got != 0 {
		t.Errorf("SignedArea of two points = %v, want 0", got)
	}
}

func TestPointInOrOnPolygon(t *testing.T) {
	poly := square(1)
	tests := []struct {
		name string
		p    r2.Point
		want bool
	}{
		{"inside", r2.Point{X: 0.5, Y: 0.5}, true},
		{"outside", r2.Point{X: 1.5, Y: 0.5}, false},
		{"on vertex", r2.Point{X: 1, Y: 1}, true},
		{"on horizontal edge", r2.Point{X: 0.3, Y: 0}, true},
		{"on vertical edge", r2.Point{X: 1, Y: 0.7}, true},
		{"within tolerance outside", r2.Point{X: 1 + 1e-8, Y: 0.5}, true},
		{"left of polygon", r2.Point{X: -0.5, Y: 0.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointInOrOnPolygon(tt.p, poly, Confusion); got != tt.want {
				t.Errorf("PointInOrOnPolygon(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestPointInPolygonNonConvex(t *testing.T) {
	// L shape; the notch at (1.5, 1.5) is outside.
	l := []r2.Point{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 2}, {X: 0, Y: 2}}
	if PointInPolygon(r2.Point{X: 1.5, Y: 1.5}, l) {
		t.Error("notch point reported inside")
	}
	if !PointInPolygon(r2.Point{X: 0.5, Y: 1.5}, l) {
		t.Error("arm point reported outside")
	}
}

func TestSimplifyPolygon(t *testing.T) {
	pts := []r2.Point{
		{X: 0, Y: 0}, {X: 0.5, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 0},
		{X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0},
	}
	got := SimplifyPolygon(pts, Confusion)
	if len(got) != 4 {
		t.Fatalf("SimplifyPolygon returned %d points, want 4: %v", len(got), got)
	}
	if math.Abs(SignedArea(got)-1) > 1e-12 {
		t.Errorf("area changed by simplification: %v", SignedArea(got))
	}
}

func TestBox(t *testing.T) {
	b := EmptyBox()
	if !b.IsEmpty() {
		t.Fatal("EmptyBox is not empty")
	}
	b = b.AddPoint(r3.Vector{X: 1, Y: 2, Z: 3}).AddPoint(r3.Vector{X: -1, Y: 0, Z: 3})
	if got, want := b.Center(), (r3.Vector{X: 0, Y: 1, Z: 3}); got != want {
		t.Errorf("Center = %v, want %v", got, want)
	}
	if got := b.Area(); got != 4 {
		t.Errorf("Area = %v, want 4", got)
	}
	if !b.ContainsXY(r3.Vector{X: 1 + 1e-9, Y: 1}, Confusion) {
		t.Error("ContainsXY should accept points within tolerance")
	}
	if b.ContainsXY(r3.Vector{X: 2, Y: 1}, Confusion) {
		t.Error("ContainsXY accepted a point outside")
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{-math.Pi / 2, 3 * math.Pi / 2},
		{5 * math.Pi, math.Pi},
	}
	for _, tt := range tests {
		if got := NormalizeAngle(tt.in); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("NormalizeAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
