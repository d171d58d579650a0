package region

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/chazu/plinth/pkg/curve"
	"github.com/chazu/plinth/pkg/geom"
	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func pt(x, y float64) r3.Vector { return r3.Vector{X: x, Y: y} }

func line(x0, y0, x1, y1 float64) curve.Curve {
	return curve.MustLine(pt(x0, y0), pt(x1, y1))
}

func arc(x0, y0, x1, y1, b float64) curve.Curve {
	return curve.MustArc(pt(x0, y0), pt(x1, y1), b)
}

func square(x, y, size float64) []curve.Curve {
	return []curve.Curve{
		line(x, y, x+size, y),
		line(x+size, y, x+size, y+size),
		line(x+size, y+size, x, y+size),
		line(x, y+size, x, y),
	}
}

func polyline(pts ...r3.Vector) []curve.Curve {
	var out []curve.Curve
	for i := range pts {
		out = append(out, curve.MustLine(pts[i], pts[(i+1)%len(pts)]))
	}
	return out
}

func sortedAreas(rs []ClosedRegion) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = r.Area
	}
	slices.Sort(out)
	return out
}

func indexOfArea(t *testing.T, rs []ClosedRegion, area float64) int {
	t.Helper()
	i := slices.IndexFunc(rs, func(r ClosedRegion) bool { return math.Abs(r.Area-area) < 1e-9 })
	if i < 0 {
		t.Fatalf("no region with area %v in %v", area, sortedAreas(rs))
	}
	return i
}

var approx = cmpopts.EquateApprox(0, 1e-9)

// ---------------------------------------------------------------------------
// Identify
// ---------------------------------------------------------------------------

func TestIdentify(t *testing.T) {
	tests := []struct {
		name  string
		in    []curve.Curve
		areas []float64
		// connectivity overrides areas for the connectivity finder, which
		// also reports loops that enclose other loops.
		connectivity []float64
	}{
		{"unit square", square(0, 0, 1), []float64{1}, nil},
		{"two rooms", append(square(0, 0, 1), line(1, 0, 2, 0), line(2, 0, 2, 1), line(2, 1, 1, 1)), []float64{1, 1}, []float64{1, 1, 2}},
		{"square in square", append(square(0, 0, 2), square(0.5, 0.5, 1)...), []float64{1, 4}, nil},
		{"disc", []curve.Curve{arc(-1, 0, 1, 0, 1), arc(1, 0, -1, 0, 1), line(1, 0, 2, 0)}, []float64{math.Pi}, nil},
		{"rounded end", []curve.Curve{line(0, 0, 2, 0), arc(2, 0, 2, 2, 1), line(2, 2, 0, 2), line(0, 2, 0, 0)}, []float64{4 + math.Pi/2}, nil},
		{"open x", []curve.Curve{line(0, 0, 0.5, 0.5), line(0.5, 0.5, 1, 1), line(0, 1, 0.5, 0.5), line(0.5, 0.5, 1, 0)}, nil, nil},
		{"two curves", square(0, 0, 1)[:2], nil, nil},
	}
	for _, strategy := range []Strategy{StrategyFaceTracing, StrategyConnectivity} {
		for _, tt := range tests {
			t.Run(strategy.String()+"/"+tt.name, func(t *testing.T) {
				opts := DefaultOptions()
				opts.Strategy = strategy
				got := Identify(tt.in, opts)
				want := tt.areas
				if strategy == StrategyConnectivity && tt.connectivity != nil {
					want = tt.connectivity
				}
				if diff := cmp.Diff(want, sortedAreas(got), approx, cmpopts.EquateEmpty()); diff != "" {
					t.Errorf("areas mismatch (-want +got):\n%s", diff)
				}
				for _, r := range got {
					n := len(r.BoundaryCurves)
					for i, c := range r.BoundaryCurves {
						if !geom.Near(c.End(), r.BoundaryCurves[(i+1)%n].Start(), 1e-6) {
							t.Errorf("boundary does not close after curve %d", i)
						}
					}
					if !r.IsOuterBoundary {
						t.Errorf("fresh region should be outer")
					}
				}
			})
		}
	}
}

func TestIdentifyUnitSquare(t *testing.T) {
	got := Identify(square(0, 0, 1), DefaultOptions())
	if len(got) != 1 {
		t.Fatalf("got %d regions, want 1", len(got))
	}
	r := got[0]
	if math.Abs(r.Area-1) > 1e-12 || !r.IsClockwise {
		t.Errorf("area %v clockwise %v, want 1 and true", r.Area, r.IsClockwise)
	}
	if !geom.Near(r.CenterPoint, pt(0.5, 0.5), 1e-12) {
		t.Errorf("centre %v", r.CenterPoint)
	}
	if diff := cmp.Diff([]int{0, 1, 2, 3}, slices.Sorted(slices.Values(r.Sources))); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
	if n := AnalyzeNesting(got, DefaultOptions()); len(n) != 0 {
		t.Errorf("single region has nesting %v", n)
	}
}

func TestIdentifyDuplicateCollapse(t *testing.T) {
	in := []curve.Curve{line(0, 0, 1, 0), line(1, 0, 0, 1), line(0, 1, 0, 0), line(1, 0, 0, 0)}
	for _, strategy := range []Strategy{StrategyFaceTracing, StrategyConnectivity} {
		opts := DefaultOptions()
		opts.Strategy = strategy
		got := Identify(in, opts)
		if len(got) != 1 || len(got[0].BoundaryCurves) != 3 {
			t.Fatalf("%v: want one triangle, got %d regions", strategy, len(got))
		}
		if math.Abs(got[0].Area-0.5) > 1e-12 {
			t.Errorf("%v: area %v, want 0.5", strategy, got[0].Area)
		}
	}
}

// touchingColumn is a 4x4 room with its floor edge split at (2,0), where a
// triangular column touches it.
func touchingColumn() []curve.Curve {
	return []curve.Curve{
		line(0, 0, 2, 0), line(2, 0, 4, 0), line(4, 0, 4, 4), line(4, 4, 0, 4), line(0, 4, 0, 0),
		line(2, 0, 3, 1), line(3, 1, 1, 1), line(1, 1, 2, 0),
	}
}

func TestIdentifyBoundaryThroughVertexTwice(t *testing.T) {
	got := Identify(touchingColumn(), DefaultOptions())
	if diff := cmp.Diff([]float64{1, 15}, sortedAreas(got), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("areas mismatch (-want +got):\n%s", diff)
	}
	room := got[indexOfArea(t, got, 15)]
	if len(room.BoundaryCurves) != 8 || len(room.Sources) != 8 {
		t.Errorf("room has %d curves and %d sources, want 8", len(room.BoundaryCurves), len(room.Sources))
	}
	if !ContainsPoint(room, pt(0.5, 0.5), 1e-9) || ContainsPoint(room, pt(2, 0.6), 1e-9) {
		t.Error("room should cover the floor but not the column")
	}
	if n := AnalyzeNesting(got, DefaultOptions()); len(n) != 0 {
		t.Errorf("touching regions should not nest, got %v", n)
	}
}

func TestIdentifyMinArea(t *testing.T) {
	opts := DefaultOptions()
	opts.MinArea = 2
	if got := Identify(square(0, 0, 1), opts); len(got) != 0 {
		t.Errorf("got %d regions below the minimum area", len(got))
	}
}

func TestNewRejectsOpenChain(t *testing.T) {
	_, err := New(square(0, 0, 1)[:3], nil, DefaultOptions())
	if !errors.Is(err, curve.ErrNotClosed) {
		t.Errorf("err = %v, want ErrNotClosed", err)
	}
}

func TestReverse(t *testing.T) {
	r, err := New(square(0, 0, 1), []int{0, 1, 2, 3}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	rev := r.Reverse()
	if rev.IsClockwise == r.IsClockwise || rev.Area != r.Area {
		t.Errorf("reverse changed area or kept winding")
	}
	if math.Abs(curve.CurvesSignedArea(rev.BoundaryCurves)+curve.CurvesSignedArea(r.BoundaryCurves)) > 1e-12 {
		t.Errorf("reversed boundary does not flip the signed area")
	}
	if diff := cmp.Diff([]int{3, 2, 1, 0}, rev.Sources); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
}

func TestVertices(t *testing.T) {
	r, err := New([]curve.Curve{line(0, 0, 2, 0), arc(2, 0, 2, 2, 1), line(2, 2, 0, 2), line(0, 2, 0, 0)}, nil, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	vs, err := r.Vertices(1e-6)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 4 || math.Abs(vs[1].Bulge-1) > 1e-9 {
		t.Errorf("vertices %+v", vs)
	}
}

// ---------------------------------------------------------------------------
// Containment
// ---------------------------------------------------------------------------

func TestContainsPoint(t *testing.T) {
	r, err := New(square(0, 0, 1), nil, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		p    r3.Vector
		want bool
	}{
		{"inside", pt(0.5, 0.5), true},
		{"on edge", pt(1, 0.5), true},
		{"on corner", pt(0, 0), true},
		{"within tolerance", pt(1+1e-7, 0.5), true},
		{"outside", pt(1.5, 0.5), false},
		{"outside box", pt(-3, -3), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsPoint(r, tt.p, 1e-6); got != tt.want {
				t.Errorf("ContainsPoint(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestInteriorPointAvoidsHoles(t *testing.T) {
	outer, err := New(square(0, 0, 4), nil, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	hole, err := New(square(1, 1, 2), nil, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	p, ok := InteriorPoint(outer, 1e-6, hole)
	if !ok {
		t.Fatal("no interior point")
	}
	if !ContainsPoint(outer, p, 0) || ContainsPoint(hole, p, 1e-6) {
		t.Errorf("%v is not inside the ring between outer and hole", p)
	}
}

func TestInteriorPoint(t *testing.T) {
	u := polyline(pt(0, 0), pt(3, 0), pt(3, 3), pt(2, 3), pt(2, 1), pt(1, 1), pt(1, 3), pt(0, 3))
	for _, tc := range []struct {
		name  string
		chain []curve.Curve
	}{
		{"square", square(0, 0, 1)},
		{"u shape", u},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r, err := New(tc.chain, nil, DefaultOptions())
			if err != nil {
				t.Fatal(err)
			}
			p, ok := InteriorPoint(r, 1e-6)
			if !ok {
				t.Fatal("no interior point")
			}
			if !ContainsPoint(r, p, 0) || geom.PointOnPolygon(geom.XY(p), r.Polygon(), 1e-6) {
				t.Errorf("%v is not strictly inside", p)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Nesting
// ---------------------------------------------------------------------------

func TestAnalyzeNestingSquareInSquare(t *testing.T) {
	regions := Identify(append(square(0, 0, 2), square(0.5, 0.5, 1)...), DefaultOptions())
	outer, inner := indexOfArea(t, regions, 4), indexOfArea(t, regions, 1)
	got := AnalyzeNesting(regions, DefaultOptions())
	if diff := cmp.Diff(Nesting{outer: {inner}}, got); diff != "" {
		t.Errorf("nesting mismatch (-want +got):\n%s", diff)
	}
	for o, inners := range got {
		for _, i := range inners {
			if regions[i].Area > regions[o].Area {
				t.Errorf("region %d larger than its container %d", i, o)
			}
			if !ContainsPoint(regions[o], regions[i].CenterPoint, 1e-6) {
				t.Errorf("centre of %d not inside %d", i, o)
			}
		}
	}
}

func TestAnalyzeNestingAdjacent(t *testing.T) {
	rooms := append(square(0, 0, 1), line(1, 0, 2, 0), line(2, 0, 2, 1), line(2, 1, 1, 1))
	regions := Identify(rooms, DefaultOptions())
	if n := AnalyzeNesting(regions, DefaultOptions()); len(n) != 0 {
		t.Errorf("adjacent rooms nest: %v", n)
	}
}

func TestAnalyzeNestingNonConvex(t *testing.T) {
	// The small square's centre lies inside the U, but one corner sticks out
	// of the notch.
	u := polyline(pt(0, 0), pt(3, 0), pt(3, 3), pt(2, 3), pt(2, 1), pt(1, 1), pt(1, 3), pt(0, 3))
	ru, err := New(u, nil, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	rs, err := New(square(0.2, 0.4, 1), nil, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !ContainsPoint(ru, rs.CenterPoint, 1e-6) {
		t.Fatal("test setup: centre should be inside")
	}
	if n := AnalyzeNesting([]ClosedRegion{ru, rs}, DefaultOptions()); len(n) != 0 {
		t.Errorf("partially outside square reported nested: %v", n)
	}
}

func TestClassify(t *testing.T) {
	var in []curve.Curve
	in = append(in, square(0, 0, 6)...)
	in = append(in, square(1, 1, 4)...)
	in = append(in, square(2, 2, 2)...)
	regions := Identify(in, DefaultOptions())
	a, b, c := indexOfArea(t, regions, 36), indexOfArea(t, regions, 16), indexOfArea(t, regions, 4)
	n := AnalyzeNesting(regions, DefaultOptions())

	if !n.Contains(a, b) || !n.Contains(a, c) || !n.Contains(b, c) {
		t.Fatalf("nesting %v misses a containing pair", n)
	}
	if d := []int{n.Depth(a), n.Depth(b), n.Depth(c)}; !slices.Equal(d, []int{0, 1, 2}) {
		t.Errorf("depths %v, want [0 1 2]", d)
	}
	parents := n.Parents(regions)
	if parents[a] != -1 || parents[b] != a || parents[c] != b {
		t.Errorf("parents %v", parents)
	}
	if diff := cmp.Diff([]int{c}, Children(parents, b)); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}

	Classify(regions, n, HoleNested)
	if !regions[a].IsOuterBoundary || regions[b].IsOuterBoundary || regions[c].IsOuterBoundary {
		t.Errorf("nested policy: got %v %v %v", regions[a].IsOuterBoundary, regions[b].IsOuterBoundary, regions[c].IsOuterBoundary)
	}
	Classify(regions, n, HoleEvenOdd)
	if !regions[a].IsOuterBoundary || regions[b].IsOuterBoundary || !regions[c].IsOuterBoundary {
		t.Errorf("even-odd policy: got %v %v %v", regions[a].IsOuterBoundary, regions[b].IsOuterBoundary, regions[c].IsOuterBoundary)
	}
}

func TestAnalyzeNestingTooFew(t *testing.T) {
	if n := AnalyzeNesting(nil, DefaultOptions()); n == nil || len(n) != 0 {
		t.Errorf("want empty non-nil map, got %v", n)
	}
}
