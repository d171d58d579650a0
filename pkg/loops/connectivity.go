package loops

import (
	"slices"

	"github.com/chazu/plinth/pkg/curve"
	"github.com/chazu/plinth/pkg/geom"
)

// frame is one pending step of the depth-first search: visit curve with the
// path cut back to depth entries.
type frame struct {
	curve int
	depth int
}

// ClosedCurvesFromUnordered finds closed loops by walking the endpoint
// connectivity graph of curves depth-first. Repeated curves are removed
// first. Two curves close a loop only when both are arcs.
//
// Candidates that also touch the second-to-last curve of the current path
// are skipped, which keeps T-junctions from producing loops that double
// back through a shared vertex.
func ClosedCurvesFromUnordered(curves []curve.Curve, opts Options) []Loop {
	opts = opts.withDefaults()
	tol := opts.Tolerance
	if countCurves(curves) < MinCurves {
		return nil
	}
	keep := uniqueIndices(curves, tol)
	if len(keep) < MinCurves {
		return nil
	}
	cs := make([]curve.Curve, len(keep))
	for k, i := range keep {
		cs[k] = curves[i]
	}
	conn := connections(cs, tol)
	isArc := func(i int) bool { return cs[i].Kind() == curve.KindArc }
	touches := func(a, b int) bool { return slices.Contains(conn[a], b) }

	var paths [][]int
	steps := 0
search:
	for start := range cs {
		if len(conn[start]) == 0 || coveredEarlier(start, conn) {
			continue
		}
		stack := []frame{{curve: start}}
		var path []int
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			path = path[:f.depth]
			if slices.Contains(path, f.curve) {
				continue
			}
			path = append(path, f.curve)
			if steps++; steps > opts.MaxSteps {
				opts.Logger.Warn("loops: connectivity search budget exhausted",
					"steps", opts.MaxSteps, "loops", len(paths))
				break search
			}
			for _, nb := range conn[f.curve] {
				if nb == start {
					if len(path) > 2 || (len(path) == 2 && isArc(start) && isArc(f.curve)) {
						paths = append(paths, slices.Clone(path))
					}
					continue
				}
				if slices.Contains(path, nb) {
					continue
				}
				if len(path) >= 3 && touches(nb, path[len(path)-2]) {
					continue
				}
				stack = append(stack, frame{curve: nb, depth: len(path)})
			}
		}
	}

	var loops []Loop
	var seen [][]int
	for _, p := range paths {
		if !validPath(p, cs, touches, tol) {
			continue
		}
		key := slices.Sorted(slices.Values(p))
		if slices.ContainsFunc(seen, func(s []int) bool { return slices.Equal(s, key) }) {
			continue
		}
		seen = append(seen, key)

		members := make([]curve.Curve, len(p))
		for k, i := range p {
			members[k] = cs[i]
		}
		chain, err := curve.ChainClosed(members, tol)
		if err != nil {
			opts.Logger.Debug("loops: discarding loop that does not chain", "curves", len(p), "err", err)
			continue
		}
		loops = append(loops, Loop{Curves: chain, Sources: sourcesOf(chain, members, p, keep, tol)})
	}
	return loops
}

// connections lists, for every curve, the other curves sharing an endpoint.
func connections(cs []curve.Curve, tol float64) [][]int {
	conn := make([][]int, len(cs))
	for i := range cs {
		for j := i + 1; j < len(cs); j++ {
			if curve.Connected(cs[i], cs[j], tol) {
				conn[i] = append(conn[i], j)
				conn[j] = append(conn[j], i)
			}
		}
	}
	return conn
}

// coveredEarlier reports whether a simple two-connection curve has a simple
// neighbour that was already used as a search root.
func coveredEarlier(i int, conn [][]int) bool {
	if len(conn[i]) != 2 {
		return false
	}
	for _, j := range conn[i] {
		if j < i && len(conn[j]) <= 2 {
			return true
		}
	}
	return false
}

func validPath(p []int, cs []curve.Curve, touches func(a, b int) bool, tol float64) bool {
	n := len(p)
	switch {
	case n < 2:
		return false
	case n == 2:
		return cs[p[0]].Kind() == curve.KindArc && cs[p[1]].Kind() == curve.KindArc
	case n == 3:
		return IsValidTriangle(cs[p[0]], cs[p[1]], cs[p[2]], tol)
	}
	for j := range p {
		if touches(p[j], p[(j-2+n)%n]) {
			return false
		}
	}
	return true
}

// sourcesOf maps each chained curve back to its index in the original input.
func sourcesOf(chain, members []curve.Curve, path, keep []int, tol float64) []int {
	out := make([]int, len(chain))
	for k, c := range chain {
		for m, orig := range members {
			if curve.SameCurve(c, orig, tol, geom.BulgeTolerance) {
				out[k] = keep[path[m]]
				break
			}
		}
	}
	return out
}
