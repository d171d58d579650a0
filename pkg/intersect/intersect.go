// Package intersect finds the pairwise intersections of a curve set and
// splits the curves at them, producing non-crossing fragments for loop
// finding.
package intersect

import (
	"log/slog"
	"slices"

	"github.com/chazu/plinth/pkg/curve"
	"github.com/chazu/plinth/pkg/geom"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// Info is one intersection event between two curves of the input slice.
// Parameter1 is on curve Curve1Index and Parameter2 on Curve2Index. An
// overlap between two curves is reported as two events at its ends.
type Info struct {
	Position    r3.Vector `json:"position"`
	Curve1Index int       `json:"curve1"`
	Curve2Index int       `json:"curve2"`
	Parameter1  float64   `json:"parameter1"`
	Parameter2  float64   `json:"parameter2"`
	Tolerance   float64   `json:"tolerance"`
}

// Options configures intersection and splitting.
type Options struct {
	Tolerance        float64      // distance under which points coincide
	AngularTolerance float64      // 1-|cos| under which lines are parallel
	Logger           *slog.Logger // nil discards
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{Tolerance: geom.Confusion, AngularTolerance: geom.Angular}
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = geom.Confusion
	}
	if o.AngularTolerance <= 0 {
		o.AngularTolerance = geom.Angular
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Find returns every intersection between pairs of curves, pairs visited in
// ascending (i, j) order and each pair's events ordered by Parameter1.
// Shared endpoints are reported too; the splitter ignores them.
//
// When the closed-form solution finds nothing for a pair, the endpoints of
// each curve are projected onto the other to recover T-junctions.
func Find(curves []curve.Curve, opts Options) []Info {
	opts = opts.withDefaults()
	tol := opts.Tolerance
	boxes := make([]r2.Rect, len(curves))
	for i, c := range curves {
		if c == nil {
			opts.Logger.Warn("intersect: nil curve", "index", i)
			boxes[i] = r2.EmptyRect()
			continue
		}
		boxes[i] = c.Bounds().XY.Expanded(r2.Point{X: tol, Y: tol})
	}

	var out []Info
	for i := range curves {
		if curves[i] == nil {
			continue
		}
		for j := i + 1; j < len(curves); j++ {
			if curves[j] == nil || !boxes[i].Intersects(boxes[j]) {
				continue
			}
			out = append(out, Pair(i, j, curves[i], curves[j], opts)...)
		}
	}
	return out
}

// Pair intersects a single pair of curves reported under indices i and j.
func Pair(i, j int, a, b curve.Curve, opts Options) []Info {
	opts = opts.withDefaults()
	parts := commonParts(a, b, opts)
	var infos []Info
	if len(parts) == 0 {
		infos = endpointContacts(i, j, a, b, opts)
	}
	for _, p := range parts {
		infos = append(infos, p.infos(i, j, a, b, opts.Tolerance)...)
	}
	infos = dedupe(infos, opts.Tolerance)
	slices.SortFunc(infos, func(x, y Info) int {
		switch {
		case x.Parameter1 < y.Parameter1:
			return -1
		case x.Parameter1 > y.Parameter1:
			return 1
		}
		return 0
	})
	return infos
}

// endpointContacts reports endpoints of either curve that lie strictly
// inside the other curve's domain.
func endpointContacts(i, j int, a, b curve.Curve, opts Options) []Info {
	tol := opts.Tolerance
	var out []Info
	for _, ta := range [...]float64{a.Domain().Lo, a.Domain().Hi} {
		p := a.Eval(ta)
		if tb, ok := interiorProjection(p, b, tol); ok {
			out = append(out, Info{Position: p, Curve1Index: i, Curve2Index: j, Parameter1: ta, Parameter2: tb, Tolerance: tol})
		}
	}
	for _, tb := range [...]float64{b.Domain().Lo, b.Domain().Hi} {
		p := b.Eval(tb)
		if ta, ok := interiorProjection(p, a, tol); ok {
			out = append(out, Info{Position: p, Curve1Index: i, Curve2Index: j, Parameter1: ta, Parameter2: tb, Tolerance: tol})
		}
	}
	if len(out) > 0 {
		opts.Logger.Debug("intersect: endpoint contact", "curve1", i, "curve2", j, "count", len(out))
	}
	return out
}

func interiorProjection(p r3.Vector, c curve.Curve, tol float64) (float64, bool) {
	d, t := c.Nearest(p)
	if d > tol {
		return 0, false
	}
	dom, ptol := c.Domain(), c.ParamTolerance(tol)
	return t, t > dom.Lo+ptol && t < dom.Hi-ptol
}

func dedupe(infos []Info, tol float64) []Info {
	out := infos[:0]
	for _, in := range infos {
		dup := false
		for _, kept := range out {
			if geom.Near(in.Position, kept.Position, tol) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, in)
		}
	}
	return out
}
