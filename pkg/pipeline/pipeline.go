// Package pipeline composes the topology stages: intersection, splitting,
// region identification, nesting and face assembly. Each stage can be
// called on its own for diagnostics; RebuildFaces runs them all.
//
// Every method reports invalid input through its boolean result and never
// panics. Kernel failures on individual regions are logged and skipped.
package pipeline

import (
	"log/slog"

	"github.com/chazu/plinth/pkg/assembly"
	"github.com/chazu/plinth/pkg/curve"
	"github.com/chazu/plinth/pkg/geom"
	"github.com/chazu/plinth/pkg/intersect"
	"github.com/chazu/plinth/pkg/kernel"
	"github.com/chazu/plinth/pkg/loops"
	"github.com/chazu/plinth/pkg/region"
)

// Options configures a Pipeline.
type Options struct {
	Tolerance        float64
	AngularTolerance float64
	MinArea          float64
	ArcStep          float64
	Strategy         region.Strategy
	HolePolicy       region.HolePolicy
	Logger           *slog.Logger
}

// DefaultOptions returns the pipeline defaults: face tracing with even-odd
// holes.
func DefaultOptions() Options {
	return Options{
		Tolerance:        geom.Confusion,
		AngularTolerance: geom.Angular,
		MinArea:          region.DefaultMinArea,
		ArcStep:          curve.DefaultArcStep,
		Strategy:         region.StrategyFaceTracing,
		HolePolicy:       region.HoleEvenOdd,
	}
}

// Pipeline runs the stages against one kernel.
type Pipeline struct {
	k    kernel.Kernel
	opts assembly.Options
	hole region.HolePolicy
	log  *slog.Logger
}

// New returns a pipeline using k.
func New(k kernel.Kernel, opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		k: k,
		opts: assembly.Options{
			Tolerance:        opts.Tolerance,
			AngularTolerance: opts.AngularTolerance,
			MinArea:          opts.MinArea,
			ArcStep:          opts.ArcStep,
			Strategy:         opts.Strategy,
			Logger:           opts.Logger,
		},
		hole: opts.HolePolicy,
		log:  opts.Logger,
	}
}

// Result is the outcome of RebuildFaces.
type Result struct {
	Intersections []intersect.Info
	Fragments     []curve.Curve
	Sources       []int // input index of every fragment
	Regions       []region.ClosedRegion
	Nesting       region.Nesting
	Faces         []assembly.RegionFace
}

func valid(curves []curve.Curve) bool {
	for _, c := range curves {
		if c == nil {
			return false
		}
	}
	return true
}

// FindCurvesIntersections reports every intersection in curves. It fails on
// nil curves or fewer than two curves.
func (p *Pipeline) FindCurvesIntersections(curves []curve.Curve) ([]intersect.Info, bool) {
	if len(curves) < 2 || !valid(curves) {
		p.log.Warn("pipeline: invalid input for intersection", "curves", len(curves))
		return nil, false
	}
	return intersect.Find(curves, p.opts.Intersect()), true
}

// SplitCurvesAtIntersections cuts curves at infos. It fails on nil curves
// or infos that reference curves outside the slice.
func (p *Pipeline) SplitCurvesAtIntersections(curves []curve.Curve, infos []intersect.Info) ([]curve.Curve, bool) {
	if len(curves) == 0 || !valid(curves) {
		return nil, false
	}
	for _, in := range infos {
		if in.Curve1Index < 0 || in.Curve1Index >= len(curves) || in.Curve2Index < 0 || in.Curve2Index >= len(curves) {
			p.log.Warn("pipeline: intersection references a missing curve",
				"curve1", in.Curve1Index, "curve2", in.Curve2Index, "curves", len(curves))
			return nil, false
		}
	}
	return intersect.Split(curves, infos, p.opts.Intersect()), true
}

// IdentifyClosedRegionsFromSplitCurves finds the closed regions bounded by
// fragments. It fails when fewer than three usable fragments are given.
func (p *Pipeline) IdentifyClosedRegionsFromSplitCurves(fragments []curve.Curve) ([]region.ClosedRegion, bool) {
	if len(loops.RemoveRepeated(fragments, p.opts.Tolerance)) < loops.MinCurves {
		return nil, false
	}
	return region.Identify(fragments, p.opts.Region()), true
}

// AnalyzeRegionNesting maps every region to the regions inside it.
func (p *Pipeline) AnalyzeRegionNesting(regions []region.ClosedRegion) (region.Nesting, bool) {
	if len(regions) < 2 {
		return region.Nesting{}, false
	}
	return region.AnalyzeNesting(regions, p.opts.Region()), true
}

// SplitShape cuts face along cuts into at least two faces.
func (p *Pipeline) SplitShape(face kernel.Face, cuts []curve.Curve) ([]kernel.Face, bool) {
	if len(cuts) == 0 {
		return nil, false
	}
	return assembly.SplitShape(p.k, face, cuts, p.opts)
}

// RebuildFaces runs every stage over curves. Partial results are returned
// with false when a stage yields nothing.
func (p *Pipeline) RebuildFaces(curves []curve.Curve) (*Result, bool) {
	res := &Result{Nesting: region.Nesting{}}
	var usable []curve.Curve
	var index []int
	for i, c := range curves {
		if c == nil {
			p.log.Warn("pipeline: skipping nil curve", "index", i)
			continue
		}
		usable = append(usable, c)
		index = append(index, i)
	}
	if len(usable) < loops.MinCurves {
		return res, false
	}
	res.Intersections = intersect.Find(usable, p.opts.Intersect())
	res.Fragments, res.Sources = intersect.SplitWithSources(usable, res.Intersections, p.opts.Intersect())
	for i, s := range res.Sources {
		res.Sources[i] = index[s]
	}
	res.Regions = region.Identify(res.Fragments, p.opts.Region())
	if len(res.Regions) == 0 {
		p.log.Info("pipeline: no closed regions", "curves", len(usable), "fragments", len(res.Fragments))
		return res, false
	}
	res.Nesting = region.AnalyzeNesting(res.Regions, p.opts.Region())
	region.Classify(res.Regions, res.Nesting, p.hole)
	res.Faces = assembly.BuildFaces(p.k, res.Regions, res.Nesting, p.opts)
	p.log.Debug("pipeline: rebuilt faces",
		"curves", len(usable),
		"intersections", len(res.Intersections),
		"fragments", len(res.Fragments),
		"regions", len(res.Regions),
		"faces", len(res.Faces))
	return res, len(res.Faces) > 0
}

// ExtrudeRegions extrudes faces by height.
func (p *Pipeline) ExtrudeRegions(faces []kernel.Face, height float64) []kernel.Solid {
	return assembly.ExtrudeFaces(p.k, faces, height, p.opts)
}

// Kernel returns the kernel the pipeline builds with.
func (p *Pipeline) Kernel() kernel.Kernel { return p.k }
