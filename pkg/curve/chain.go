package curve

import (
	"fmt"
	"slices"

	"github.com/chazu/plinth/pkg/geom"
	"github.com/golang/geo/r3"
)

// Chain orders and orients curves into one connected sequence. The first
// curve keeps its position at the head of the chain and is turned toward
// the second when needed. Chain fails with ErrDisconnected when the curves
// leave gaps or branch.
//
// Curves that already run head to tail are returned in their given order,
// even when the sequence passes through one vertex more than once.
func Chain(curves []Curve, tol float64) (chain []Curve, closed bool, err error) {
	if len(curves) == 0 {
		return nil, false, fmt.Errorf("%w: no curves", ErrDisconnected)
	}
	if closed, ok := Ordered(curves, tol); ok {
		return slices.Clone(curves), closed, nil
	}
	used := make([]bool, len(curves))
	head := curves[0]
	if len(curves) > 1 && !touches(head.End(), curves[1], tol) && touches(head.Start(), curves[1], tol) {
		head = head.Reverse()
	}
	used[0] = true
	chain = []Curve{head}

	// Extend forward from the tail, then backward from the head.
	for {
		tail := chain[len(chain)-1].End()
		if len(chain) > 1 && geom.Near(tail, chain[0].Start(), tol) {
			closed = true
			break
		}
		next, err := pick(curves, used, tail, tol)
		if err != nil {
			return nil, false, err
		}
		if next == nil {
			break
		}
		chain = append(chain, next)
	}
	for !closed {
		front := chain[0].Start()
		prev, err := pick(curves, used, front, tol)
		if err != nil {
			return nil, false, err
		}
		if prev == nil {
			break
		}
		// pick orients away from the joint; flip it to end there.
		chain = append([]Curve{prev.Reverse()}, chain...)
	}
	for i, u := range used {
		if !u {
			return nil, false, fmt.Errorf("%w: curve %d is not reachable", ErrDisconnected, i)
		}
	}
	return chain, closed, nil
}

// Ordered reports whether every curve starts where the previous one ends,
// and whether the last one ends at the start of the first.
func Ordered(curves []Curve, tol float64) (closed, ok bool) {
	if len(curves) == 0 {
		return false, false
	}
	for i := 1; i < len(curves); i++ {
		if !geom.Near(curves[i-1].End(), curves[i].Start(), tol) {
			return false, false
		}
	}
	return len(curves) > 1 && geom.Near(curves[len(curves)-1].End(), curves[0].Start(), tol), true
}

// ChainClosed is Chain that also requires the chain to close.
func ChainClosed(curves []Curve, tol float64) ([]Curve, error) {
	chain, closed, err := Chain(curves, tol)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, ErrNotClosed
	}
	return chain, nil
}

// pick finds the single unused curve touching p and returns it oriented to
// start at p. It returns nil when none touches and an error when more than
// one does.
func pick(curves []Curve, used []bool, p r3.Vector, tol float64) (Curve, error) {
	found := -1
	var out Curve
	for i, c := range curves {
		if used[i] {
			continue
		}
		var oriented Curve
		switch {
		case geom.Near(c.Start(), p, tol):
			oriented = c
		case geom.Near(c.End(), p, tol):
			oriented = c.Reverse()
		default:
			continue
		}
		if found >= 0 {
			return nil, fmt.Errorf("%w: curves %d and %d branch at (%.4g, %.4g)",
				ErrDisconnected, found, i, p.X, p.Y)
		}
		found, out = i, oriented
	}
	if found >= 0 {
		used[found] = true
	}
	return out, nil
}

func touches(p r3.Vector, c Curve, tol float64) bool {
	return geom.Near(p, c.Start(), tol) || geom.Near(p, c.End(), tol)
}
