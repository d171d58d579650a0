// Package assembly builds kernel faces and solids from classified regions,
// and splits existing faces along cut curves.
package assembly

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/chazu/plinth/pkg/curve"
	"github.com/chazu/plinth/pkg/geom"
	"github.com/chazu/plinth/pkg/intersect"
	"github.com/chazu/plinth/pkg/kernel"
	"github.com/chazu/plinth/pkg/region"
)

// Options configures face assembly.
type Options struct {
	Tolerance        float64
	AngularTolerance float64
	MinArea          float64
	ArcStep          float64
	Strategy         region.Strategy
	Logger           *slog.Logger
}

// DefaultOptions returns the assembly defaults.
func DefaultOptions() Options {
	return Options{
		Tolerance:        geom.Confusion,
		AngularTolerance: geom.Angular,
		MinArea:          region.DefaultMinArea,
		ArcStep:          curve.DefaultArcStep,
	}
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = geom.Confusion
	}
	if o.AngularTolerance <= 0 {
		o.AngularTolerance = geom.Angular
	}
	if o.MinArea <= 0 {
		o.MinArea = region.DefaultMinArea
	}
	if o.ArcStep <= 0 {
		o.ArcStep = curve.DefaultArcStep
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Intersect returns the intersection engine options.
func (o Options) Intersect() intersect.Options {
	return intersect.Options{Tolerance: o.Tolerance, AngularTolerance: o.AngularTolerance, Logger: o.Logger}
}

// Region returns the region classifier options.
func (o Options) Region() region.Options {
	return region.Options{
		Tolerance: o.Tolerance,
		MinArea:   o.MinArea,
		Strategy:  o.Strategy,
		ArcStep:   o.ArcStep,
		Logger:    o.Logger,
	}
}

// RegionFace is a face built from an outer region and its holes.
type RegionFace struct {
	Region int   // index of the outer region
	Holes  []int // indices of the hole regions
	Face   kernel.Face
}

// BuildFaces makes one face per outer region. The holes of a face are the
// non-outer regions whose smallest container is that region, so
// IsOuterBoundary must already be set (see region.Classify). Regions the
// kernel rejects are logged and skipped.
func BuildFaces(k kernel.Kernel, regions []region.ClosedRegion, nesting region.Nesting, opts Options) []RegionFace {
	opts = opts.withDefaults()
	parents := nesting.Parents(regions)
	var out []RegionFace
	for i, r := range regions {
		if !r.IsOuterBoundary {
			continue
		}
		outer, err := k.MakeWire(r.BoundaryCurves)
		if err != nil {
			opts.Logger.Warn("assembly: skipping region with bad boundary", "region", i, "err", err)
			continue
		}
		var holes []*kernel.Wire
		var holeIdx []int
		for _, c := range region.Children(parents, i) {
			if regions[c].IsOuterBoundary {
				continue
			}
			w, err := k.MakeWire(regions[c].BoundaryCurves)
			if err != nil {
				opts.Logger.Warn("assembly: skipping hole with bad boundary", "region", i, "hole", c, "err", err)
				continue
			}
			holes = append(holes, w)
			holeIdx = append(holeIdx, c)
		}
		f, err := k.MakeFace(outer, holes)
		if err != nil {
			opts.Logger.Warn("assembly: kernel rejected face", "region", i, "holes", len(holes), "err", err)
			continue
		}
		out = append(out, RegionFace{Region: i, Holes: holeIdx, Face: f})
	}
	return out
}

// Faces returns the kernel faces of built.
func Faces(built []RegionFace) []kernel.Face {
	out := make([]kernel.Face, len(built))
	for i, b := range built {
		out[i] = b.Face
	}
	return out
}

// FacesFromClosedWires groups closed wires into faces without islands:
// working from the largest bounding box down, each unused wire becomes an
// outer boundary and takes every smaller unused wire inside it as a hole.
func FacesFromClosedWires(k kernel.Kernel, wires []*kernel.Wire, opts Options) []kernel.Face {
	opts = opts.withDefaults()
	var order []int
	for i, w := range wires {
		if w == nil || !w.Closed() {
			opts.Logger.Warn("assembly: ignoring open wire", "wire", i)
			continue
		}
		order = append(order, i)
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(wires[b].Bounds().Area(), wires[a].Bounds().Area())
	})

	used := make([]bool, len(wires))
	var faces []kernel.Face
	for n, i := range order {
		if used[i] {
			continue
		}
		used[i] = true
		poly := wires[i].Polygon(opts.ArcStep)
		var holes []*kernel.Wire
		for _, j := range order[n+1:] {
			if used[j] {
				continue
			}
			cs := wires[j].Curves()
			mid := cs[0].Eval(cs[0].Domain().Center())
			if geom.PointInOrOnPolygon(geom.XY(mid), poly, opts.Tolerance) {
				used[j] = true
				holes = append(holes, wires[j])
			}
		}
		f, err := k.MakeFace(wires[i], holes)
		if err != nil {
			opts.Logger.Warn("assembly: kernel rejected face", "wire", i, "holes", len(holes), "err", err)
			continue
		}
		faces = append(faces, f)
	}
	return faces
}

// SplitShape cuts face along cuts. The face boundary and the cuts are
// intersected, split and re-assembled into faces; a candidate is kept when
// its interior point survives a common with the original face. It returns
// false, and no faces, unless at least two pieces result.
func SplitShape(k kernel.Kernel, face kernel.Face, cuts []curve.Curve, opts Options) ([]kernel.Face, bool) {
	opts = opts.withDefaults()
	if face == nil || face.Outer() == nil {
		return nil, false
	}
	curves := face.Outer().Curves()
	for _, h := range face.Holes() {
		curves = append(curves, h.Curves()...)
	}
	for _, c := range cuts {
		if c != nil {
			curves = append(curves, c)
		}
	}

	infos := intersect.Find(curves, opts.Intersect())
	frags := intersect.Split(curves, infos, opts.Intersect())
	regions := region.Identify(frags, opts.Region())
	nesting := region.AnalyzeNesting(regions, opts.Region())
	region.Classify(regions, nesting, region.HoleEvenOdd)

	var pieces []kernel.Face
	for _, b := range BuildFaces(k, regions, nesting, opts) {
		holes := make([]region.ClosedRegion, len(b.Holes))
		for i, h := range b.Holes {
			holes[i] = regions[h]
		}
		p, ok := region.InteriorPoint(regions[b.Region], opts.Tolerance, holes...)
		if !ok {
			opts.Logger.Debug("assembly: no interior point for candidate", "region", b.Region)
			continue
		}
		common, err := k.Boolean(kernel.OpCommon, []kernel.Shape{face}, []kernel.Shape{b.Face}, opts.Tolerance)
		if err != nil {
			opts.Logger.Warn("assembly: common with source face failed", "region", b.Region, "err", err)
			continue
		}
		if common.Contains(p) {
			pieces = append(pieces, b.Face)
		}
	}
	if len(pieces) < 2 {
		opts.Logger.Debug("assembly: cuts do not split the face", "pieces", len(pieces))
		return nil, false
	}
	return pieces, true
}

// ExtrudeFaces extrudes every face by height, skipping failures.
func ExtrudeFaces(k kernel.Kernel, faces []kernel.Face, height float64, opts Options) []kernel.Solid {
	opts = opts.withDefaults()
	var out []kernel.Solid
	for i, f := range faces {
		s, err := k.Extrude(f, height)
		if err != nil {
			opts.Logger.Warn("assembly: extrusion failed", "face", i, "err", err)
			continue
		}
		out = append(out, s)
	}
	return out
}
