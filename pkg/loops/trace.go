package loops

import (
	"github.com/chazu/plinth/pkg/curve"
)

// FindLoops enumerates the faces of the planar subdivision formed by
// curves, which must only meet at their endpoints.
//
// Each step leaves a vertex along the half-edge that follows the reverse of
// the arriving half-edge in counter-clockwise order, so a bounded face is
// traced clockwise and every connected component also yields its outer
// complement, traced counter-clockwise. Callers discard complements by
// winding or area. Edges that cannot bound a face (bridges, dangling
// segments) are removed before tracing, and repeated curves are ignored.
func FindLoops(curves []curve.Curve, opts Options) []Loop {
	opts = opts.withDefaults()
	if countCurves(curves) < MinCurves {
		return nil
	}
	unique := make([]curve.Curve, len(curves))
	for _, i := range uniqueIndices(curves, opts.Tolerance) {
		unique[i] = curves[i]
	}
	g := BuildGraph(unique, opts.Tolerance)
	if n := g.removeBridges(); n > 0 {
		opts.Logger.Debug("loops: removed bridge edges", "count", n)
	}

	used := make([]bool, len(g.HalfEdges))
	var loops []Loop
	for start := range g.HalfEdges {
		if used[start] || !g.Live(start) {
			continue
		}
		trace, ok := g.trace(start, used)
		if !ok {
			opts.Logger.Debug("loops: abandoned face trace", "start", start, "length", len(trace))
			continue
		}
		for _, h := range trace {
			used[h] = true
		}
		if !g.acceptable(trace) {
			continue
		}
		loops = append(loops, g.loop(trace))
	}
	return loops
}

// trace follows Next from start until it returns. It gives up on a used
// half-edge, a dead end, or a walk longer than the half-edge table.
func (g *Graph) trace(start int, used []bool) ([]int, bool) {
	var trace []int
	for h := start; ; {
		if used[h] || len(trace) >= len(g.HalfEdges) {
			return trace, false
		}
		trace = append(trace, h)
		h = g.Next(h)
		if h < 0 {
			return trace, false
		}
		if h == start {
			return trace, true
		}
	}
}

// acceptable requires three half-edges, or two arcs.
func (g *Graph) acceptable(trace []int) bool {
	switch {
	case len(trace) >= 3:
		return true
	case len(trace) == 2:
		return g.HalfEdges[trace[0]].Curve.Kind() == curve.KindArc &&
			g.HalfEdges[trace[1]].Curve.Kind() == curve.KindArc &&
			g.HalfEdges[trace[0]].CurveIndex != g.HalfEdges[trace[1]].CurveIndex
	}
	return false
}

func (g *Graph) loop(trace []int) Loop {
	l := Loop{Curves: make([]curve.Curve, len(trace)), Sources: make([]int, len(trace))}
	for i, h := range trace {
		l.Curves[i] = g.HalfEdges[h].Curve
		l.Sources[i] = g.HalfEdges[h].CurveIndex
	}
	return l
}
