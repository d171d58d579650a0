package pipeline

import (
	"math"
	"slices"
	"testing"

	"github.com/chazu/plinth/pkg/curve"
	"github.com/chazu/plinth/pkg/intersect"
	"github.com/chazu/plinth/pkg/kernel"
	"github.com/chazu/plinth/pkg/kernel/sdfx"
	"github.com/chazu/plinth/pkg/region"
	"github.com/golang/geo/r3"
)

func pt(x, y float64) r3.Vector { return r3.Vector{X: x, Y: y} }

func line(x0, y0, x1, y1 float64) curve.Curve {
	return curve.MustLine(pt(x0, y0), pt(x1, y1))
}

func square(x, y, size float64) []curve.Curve {
	return []curve.Curve{
		line(x, y, x+size, y),
		line(x+size, y, x+size, y+size),
		line(x+size, y+size, x, y+size),
		line(x, y+size, x, y),
	}
}

func newPipeline() *Pipeline {
	return New(sdfx.New(), DefaultOptions())
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func TestUnitSquare(t *testing.T) {
	p := newPipeline()
	res, ok := p.RebuildFaces(square(0, 0, 1))
	if !ok {
		t.Fatal("RebuildFaces failed")
	}
	if len(res.Regions) != 1 || math.Abs(res.Regions[0].Area-1) > 1e-12 {
		t.Fatalf("regions %+v", res.Regions)
	}
	if len(res.Faces) != 1 || len(res.Faces[0].Face.Holes()) != 0 {
		t.Errorf("want one face without holes, got %d faces", len(res.Faces))
	}
	if len(res.Nesting) != 0 {
		t.Errorf("nesting %v", res.Nesting)
	}
}

func TestSquareInSquare(t *testing.T) {
	p := newPipeline()
	in := append(square(0, 0, 2), square(0.5, 0.5, 1)...)
	res, ok := p.RebuildFaces(in)
	if !ok || len(res.Regions) != 2 {
		t.Fatalf("ok=%v regions=%d", ok, len(res.Regions))
	}
	outer := slices.IndexFunc(res.Regions, func(r region.ClosedRegion) bool { return r.Area > 2 })
	inner := 1 - outer
	if !res.Nesting.Contains(outer, inner) {
		t.Errorf("nesting %v does not put %d inside %d", res.Nesting, inner, outer)
	}
	if len(res.Faces) != 1 || len(res.Faces[0].Holes) != 1 {
		t.Errorf("want one face with one hole, got %+v", res.Faces)
	}
	n, ok := p.AnalyzeRegionNesting(res.Regions)
	if !ok || !n.Contains(outer, inner) {
		t.Errorf("AnalyzeRegionNesting = %v, %v", n, ok)
	}
}

func TestCrossingLines(t *testing.T) {
	p := newPipeline()
	x := []curve.Curve{line(0, 0, 1, 1), line(0, 1, 1, 0)}
	infos, ok := p.FindCurvesIntersections(x)
	if !ok || len(infos) != 1 {
		t.Fatalf("got %d intersections (ok=%v), want 1", len(infos), ok)
	}
	frags, ok := p.SplitCurvesAtIntersections(x, infos)
	if !ok || len(frags) != 4 {
		t.Fatalf("got %d fragments (ok=%v), want 4", len(frags), ok)
	}
	regions, ok := p.IdentifyClosedRegionsFromSplitCurves(frags)
	if !ok || len(regions) != 0 {
		t.Errorf("got %d regions (ok=%v), want 0", len(regions), ok)
	}
	if res, ok := p.RebuildFaces(x); ok || len(res.Faces) != 0 {
		t.Errorf("open network rebuilt %d faces", len(res.Faces))
	}
}

func TestTJunction(t *testing.T) {
	p := newPipeline()
	infos, ok := p.FindCurvesIntersections([]curve.Curve{line(0, 0, 4, 0), line(2, 0, 2, 3)})
	if !ok || len(infos) != 1 {
		t.Fatalf("got %d intersections (ok=%v), want 1", len(infos), ok)
	}
	if got := infos[0].Position; math.Abs(got.X-2) > 1e-9 || math.Abs(got.Y) > 1e-9 {
		t.Errorf("intersection at %v, want (2, 0)", got)
	}
}

func TestDuplicateEdgeTriangle(t *testing.T) {
	p := newPipeline()
	in := []curve.Curve{line(0, 0, 1, 0), line(1, 0, 0, 1), line(0, 1, 0, 0), line(1, 0, 0, 0)}
	regions, ok := p.IdentifyClosedRegionsFromSplitCurves(in)
	if !ok || len(regions) != 1 || len(regions[0].BoundaryCurves) != 3 {
		t.Fatalf("want one triangle, got %d regions (ok=%v)", len(regions), ok)
	}
}

// ---------------------------------------------------------------------------
// Walls
// ---------------------------------------------------------------------------

func TestRebuildFacesWalls(t *testing.T) {
	p := newPipeline()
	// A room with an internal wall and a wall poking out of it.
	in := append(square(0, 0, 4), line(2, -1, 2, 5), line(4, 2, 6, 2))
	res, ok := p.RebuildFaces(in)
	if !ok {
		t.Fatal("RebuildFaces failed")
	}
	if len(res.Regions) != 2 || len(res.Faces) != 2 {
		t.Fatalf("got %d regions and %d faces, want 2 and 2", len(res.Regions), len(res.Faces))
	}
	for _, r := range res.Regions {
		if math.Abs(r.Area-8) > 1e-9 {
			t.Errorf("region area %v, want 8", r.Area)
		}
		for _, s := range r.Sources {
			if src := res.Sources[s]; src < 0 || src >= len(in) {
				t.Errorf("fragment %d has source %d", s, src)
			}
		}
	}
	solids := p.ExtrudeRegions([]kernel.Face{res.Faces[0].Face}, 2.5)
	if len(solids) != 1 {
		t.Errorf("got %d solids, want 1", len(solids))
	}
}

func TestRebuildFacesArcs(t *testing.T) {
	p := newPipeline()
	in := []curve.Curve{
		line(0, 0, 2, 0),
		curve.MustArc(pt(2, 0), pt(2, 2), 1),
		line(2, 2, 0, 2),
		line(0, 2, 0, 0),
	}
	res, ok := p.RebuildFaces(in)
	if !ok || len(res.Regions) != 1 {
		t.Fatalf("ok=%v regions=%d", ok, len(res.Regions))
	}
	if want := 4 + math.Pi/2; math.Abs(res.Regions[0].Area-want) > 1e-9 {
		t.Errorf("area %v, want %v", res.Regions[0].Area, want)
	}
	if !res.Faces[0].Face.Contains(pt(2.9, 1)) {
		t.Error("face does not follow the arc")
	}
}

func TestRebuildFacesNilCurves(t *testing.T) {
	p := newPipeline()
	in := append([]curve.Curve{nil}, square(0, 0, 1)...)
	res, ok := p.RebuildFaces(in)
	if !ok {
		t.Fatal("RebuildFaces failed")
	}
	for _, s := range res.Sources {
		if s < 1 || s > 4 {
			t.Errorf("source %d does not index the input", s)
		}
	}
}

// ---------------------------------------------------------------------------
// Invalid input
// ---------------------------------------------------------------------------

func TestInvalidInput(t *testing.T) {
	p := newPipeline()
	if _, ok := p.FindCurvesIntersections([]curve.Curve{line(0, 0, 1, 0), nil}); ok {
		t.Error("nil curve accepted")
	}
	if _, ok := p.FindCurvesIntersections(square(0, 0, 1)[:1]); ok {
		t.Error("single curve accepted")
	}
	bad := []intersect.Info{{Curve1Index: 0, Curve2Index: 5}}
	if _, ok := p.SplitCurvesAtIntersections(square(0, 0, 1), bad); ok {
		t.Error("out of range info accepted")
	}
	if _, ok := p.IdentifyClosedRegionsFromSplitCurves(square(0, 0, 1)[:2]); ok {
		t.Error("two fragments accepted")
	}
	if _, ok := p.AnalyzeRegionNesting(nil); ok {
		t.Error("empty region list accepted")
	}
	if res, ok := p.RebuildFaces(nil); ok || res == nil {
		t.Error("RebuildFaces(nil) should fail with an empty result")
	}
}

func TestSplitShape(t *testing.T) {
	p := newPipeline()
	res, ok := p.RebuildFaces(square(0, 0, 10))
	if !ok {
		t.Fatal("RebuildFaces failed")
	}
	pieces, ok := p.SplitShape(res.Faces[0].Face, []curve.Curve{line(5, -1, 5, 11)})
	if !ok || len(pieces) != 2 {
		t.Fatalf("got %d pieces (ok=%v), want 2", len(pieces), ok)
	}
	if _, ok := p.SplitShape(res.Faces[0].Face, nil); ok {
		t.Error("split without cuts succeeded")
	}
}
