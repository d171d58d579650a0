package region

import (
	"slices"
)

// Nesting maps the index of an outer region to the indices of the regions
// it contains. Every containing pair is listed, so a region two levels down
// appears under both of its ancestors.
type Nesting map[int][]int

// HolePolicy decides which nested regions become holes.
type HolePolicy int

const (
	// HoleNested treats every region contained in another as a hole.
	HoleNested HolePolicy = iota
	// HoleEvenOdd alternates by depth, so an island inside a hole is solid again.
	HoleEvenOdd
)

func (p HolePolicy) String() string {
	if p == HoleEvenOdd {
		return "even-odd"
	}
	return "nested"
}

// AnalyzeNesting tests every ordered pair of regions for containment. The
// inner region's centre and every endpoint of its boundary curves must lie
// inside or on the outer region, and the inner region may not be larger.
func AnalyzeNesting(regions []ClosedRegion, opts Options) Nesting {
	opts = opts.withDefaults()
	nesting := Nesting{}
	if len(regions) < 2 {
		return nesting
	}
	for outer := range regions {
		for inner := range regions {
			if inner == outer || regions[inner].Area > regions[outer].Area {
				continue
			}
			if Inside(regions[inner], regions[outer], opts.Tolerance) {
				nesting[outer] = append(nesting[outer], inner)
			}
		}
	}
	opts.Logger.Debug("region: nesting analysed", "regions", len(regions), "containers", len(nesting))
	return nesting
}

// Inside reports whether inner lies within outer.
func Inside(inner, outer ClosedRegion, tol float64) bool {
	if !outer.BoundingBox.ContainsBoxXY(inner.BoundingBox, tol) {
		return false
	}
	if !ContainsPoint(outer, inner.CenterPoint, tol) {
		return false
	}
	for _, c := range inner.BoundaryCurves {
		if !ContainsPoint(outer, c.Start(), tol) || !ContainsPoint(outer, c.End(), tol) {
			return false
		}
	}
	return true
}

// Contains reports whether outer is recorded as containing inner.
func (n Nesting) Contains(outer, inner int) bool {
	return slices.Contains(n[outer], inner)
}

// Depth returns how many regions contain region i.
func (n Nesting) Depth(i int) int {
	d := 0
	for _, inner := range n {
		if slices.Contains(inner, i) {
			d++
		}
	}
	return d
}

// Parents returns, for every region, the smallest region containing it, or
// -1 for top-level regions.
func (n Nesting) Parents(regions []ClosedRegion) []int {
	parents := make([]int, len(regions))
	for i := range parents {
		parents[i] = -1
	}
	for outer, inners := range n {
		for _, i := range inners {
			p := parents[i]
			if p < 0 || regions[outer].Area < regions[p].Area ||
				(regions[outer].Area == regions[p].Area && outer < p) {
				parents[i] = outer
			}
		}
	}
	return parents
}

// Children returns the regions whose immediate parent is i, ascending.
func Children(parents []int, i int) []int {
	var out []int
	for k, p := range parents {
		if p == i {
			out = append(out, k)
		}
	}
	return out
}

// Classify sets IsOuterBoundary on every region according to policy.
func Classify(regions []ClosedRegion, n Nesting, policy HolePolicy) {
	for i := range regions {
		d := n.Depth(i)
		switch policy {
		case HoleEvenOdd:
			regions[i].IsOuterBoundary = d%2 == 0
		default:
			regions[i].IsOuterBoundary = d == 0
		}
	}
}
