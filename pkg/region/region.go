// Package region turns split curve fragments into closed regions and
// classifies how they nest.
//
// A region keeps its boundary both exactly, as curves, and as a sampled
// polygon used for point containment. Areas and bounds come from the exact
// curves.
package region

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/chazu/plinth/pkg/curve"
	"github.com/chazu/plinth/pkg/geom"
	"github.com/chazu/plinth/pkg/loops"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// DefaultMinArea is the area below which a loop is treated as numerical noise.
const DefaultMinArea = 1e-6

// ErrTooSmall is returned by New for boundaries enclosing less than the
// minimum area.
var ErrTooSmall = errors.New("region: area below minimum")

// Strategy selects the loop finder used by Identify.
type Strategy int

const (
	StrategyFaceTracing  Strategy = iota // half-edge face tracing
	StrategyConnectivity                 // depth-first endpoint connectivity search
)

func (s Strategy) String() string {
	switch s {
	case StrategyFaceTracing:
		return "face-tracing"
	case StrategyConnectivity:
		return "connectivity"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Options configures region identification.
type Options struct {
	Tolerance float64
	MinArea   float64
	Strategy  Strategy
	ArcStep   float64 // max angular step when sampling arcs; 0 means curve.DefaultArcStep
	MaxSteps  int     // passed to the connectivity finder
	Logger    *slog.Logger
}

// DefaultOptions returns the identification defaults.
func DefaultOptions() Options {
	return Options{
		Tolerance: geom.Confusion,
		MinArea:   DefaultMinArea,
		Strategy:  StrategyFaceTracing,
		ArcStep:   curve.DefaultArcStep,
	}
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = geom.Confusion
	}
	if o.MinArea <= 0 {
		o.MinArea = DefaultMinArea
	}
	if o.ArcStep <= 0 {
		o.ArcStep = curve.DefaultArcStep
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

func (o Options) loopOptions() loops.Options {
	return loops.Options{Tolerance: o.Tolerance, MaxSteps: o.MaxSteps, Logger: o.Logger}
}

// ClosedRegion is a closed boundary with its derived measures.
type ClosedRegion struct {
	BoundaryCurves  []curve.Curve `json:"-"`
	Sources         []int         `json:"sources,omitempty"` // fragment index of each boundary curve
	BoundingBox     geom.Box      `json:"-"`
	Area            float64       `json:"area"`
	CenterPoint     r3.Vector     `json:"center"`
	IsClockwise     bool          `json:"clockwise"`
	IsOuterBoundary bool          `json:"outer"`

	polygon []r2.Point
}

// New builds a region from a closed, head-to-tail chain of curves.
func New(chain []curve.Curve, sources []int, opts Options) (ClosedRegion, error) {
	opts = opts.withDefaults()
	if len(chain) == 0 {
		return ClosedRegion{}, curve.ErrNotClosed
	}
	n := len(chain)
	box := geom.EmptyBox()
	var poly []r2.Point
	for i, c := range chain {
		if !geom.Near(c.End(), chain[(i+1)%n].Start(), opts.Tolerance) {
			return ClosedRegion{}, fmt.Errorf("%w: gap after curve %d", curve.ErrNotClosed, i)
		}
		box = box.Union(c.Bounds())
		pts := curve.Sample(c, opts.ArcStep)
		for _, p := range pts[:len(pts)-1] {
			poly = append(poly, geom.XY(p))
		}
	}
	signed := curve.CurvesSignedArea(chain)
	if math.Abs(signed) < opts.MinArea {
		return ClosedRegion{}, fmt.Errorf("%w: %g", ErrTooSmall, math.Abs(signed))
	}
	return ClosedRegion{
		BoundaryCurves:  chain,
		Sources:         sources,
		BoundingBox:     box,
		Area:            math.Abs(signed),
		CenterPoint:     box.Center(),
		IsClockwise:     signed < 0,
		IsOuterBoundary: true,
		polygon:         geom.RemoveAdjacentDuplicates(poly, opts.Tolerance),
	}, nil
}

// Polygon returns the sampled boundary ring.
func (r ClosedRegion) Polygon() []r2.Point { return r.polygon }

// Vertices returns the boundary as a closed bulge polyline.
func (r ClosedRegion) Vertices(tol float64) ([]curve.Vertex, error) {
	return curve.ToVertices(r.BoundaryCurves, true, tol)
}

// Reverse returns the region with its boundary traversed the other way.
func (r ClosedRegion) Reverse() ClosedRegion {
	n := len(r.BoundaryCurves)
	out := r
	out.BoundaryCurves = make([]curve.Curve, n)
	out.polygon = make([]r2.Point, len(r.polygon))
	for i, c := range r.BoundaryCurves {
		out.BoundaryCurves[n-1-i] = c.Reverse()
	}
	if r.Sources != nil {
		out.Sources = make([]int, len(r.Sources))
		for i, s := range r.Sources {
			out.Sources[len(r.Sources)-1-i] = s
		}
	}
	for i, p := range r.polygon {
		out.polygon[len(r.polygon)-1-i] = p
	}
	out.IsClockwise = !r.IsClockwise
	return out
}

// Identify finds the closed regions bounded by fragments, which should
// already be split at their intersections. With face tracing the outer
// complement of every connected component is dropped, so each bounded
// face is reported once, clockwise.
func Identify(fragments []curve.Curve, opts Options) []ClosedRegion {
	opts = opts.withDefaults()
	n := 0
	for _, c := range fragments {
		if c != nil {
			n++
		}
	}
	if n < loops.MinCurves {
		return nil
	}

	var found []loops.Loop
	switch opts.Strategy {
	case StrategyConnectivity:
		found = loops.ClosedCurvesFromUnordered(fragments, opts.loopOptions())
	default:
		found = loops.FindLoops(fragments, opts.loopOptions())
	}

	var regions []ClosedRegion
	for i, l := range found {
		// Traced loops are already head to tail and may pass through a
		// vertex twice; only unordered loops are re-chained.
		chain, sources := l.Curves, l.Sources
		if !l.Closed(opts.Tolerance) {
			var err error
			chain, err = curve.ChainClosed(l.Curves, opts.Tolerance)
			if err != nil {
				opts.Logger.Warn("region: discarding loop that does not close", "loop", i, "err", err)
				continue
			}
			sources = sourcesFor(chain, l)
		}
		if opts.Strategy == StrategyFaceTracing && curve.CurvesSignedArea(chain) > 0 {
			continue
		}
		r, err := New(chain, sources, opts)
		if err != nil {
			opts.Logger.Debug("region: discarding loop", "loop", i, "err", err)
			continue
		}
		regions = append(regions, r)
	}
	opts.Logger.Debug("region: identified regions", "loops", len(found), "regions", len(regions))
	return regions
}

// sourcesFor maps a re-chained loop back to the loop's source indices.
func sourcesFor(chain []curve.Curve, l loops.Loop) []int {
	out := make([]int, len(chain))
	for i, c := range chain {
		out[i] = -1
		for k, lc := range l.Curves {
			if curve.SameCurve(c, lc, geom.Confusion, geom.BulgeTolerance) {
				out[i] = l.Sources[k]
				break
			}
		}
	}
	return out
}

// ContainsPoint reports whether p lies inside r or within tol of its
// boundary, on the XY projection.
func ContainsPoint(r ClosedRegion, p r3.Vector, tol float64) bool {
	if !r.BoundingBox.ContainsXY(p, tol) {
		return false
	}
	return geom.PointInOrOnPolygon(geom.XY(p), r.polygon, tol)
}

// InteriorPoint returns a point strictly inside r and outside every hole.
// The bounding-box centre is used when it qualifies; otherwise horizontal
// scan lines are tried and the middle of the widest inside span wins.
func InteriorPoint(r ClosedRegion, tol float64, holes ...ClosedRegion) (r3.Vector, bool) {
	z := r.BoundingBox.Z.Lo
	if r.BoundingBox.Z.IsEmpty() {
		z = 0
	}
	rings := [][]r2.Point{r.polygon}
	for _, h := range holes {
		rings = append(rings, h.polygon)
	}
	if c := geom.XY(r.CenterPoint); strictlyInside(c, rings, tol) {
		return geom.At(c, z), true
	}
	ys := r.BoundingBox.XY.Y
	for _, f := range []float64{0.5, 0.25, 0.75, 0.125, 0.375, 0.625, 0.875} {
		y := ys.Lo + f*ys.Length()
		var xs []float64
		for _, ring := range rings {
			xs = append(xs, crossings(ring, y)...)
		}
		slices.Sort(xs)
		best, width := 0.0, 0.0
		for k := 0; k+1 < len(xs); k += 2 {
			if w := xs[k+1] - xs[k]; w > width {
				best, width = (xs[k]+xs[k+1])/2, w
			}
		}
		if width > 2*tol {
			return geom.At(r2.Point{X: best, Y: y}, z), true
		}
	}
	return r3.Vector{}, false
}

// strictlyInside applies the even-odd rule over rings and rejects points
// near any boundary.
func strictlyInside(p r2.Point, rings [][]r2.Point, tol float64) bool {
	inside := false
	for _, ring := range rings {
		if geom.PointOnPolygon(p, ring, tol) {
			return false
		}
		if geom.PointInPolygon(p, ring) {
			inside = !inside
		}
	}
	return inside
}

// crossings returns the X coordinates where the horizontal line at y
// crosses the ring pts.
func crossings(pts []r2.Point, y float64) []float64 {
	var xs []float64
	n := len(pts)
	for i := range pts {
		a, b := pts[i], pts[(i+1)%n]
		if (a.Y > y) != (b.Y > y) {
			xs = append(xs, a.X+(y-a.Y)*(b.X-a.X)/(b.Y-a.Y))
		}
	}
	return xs
}
