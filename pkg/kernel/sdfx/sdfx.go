// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
//
// Faces are polygon SDFs of their sampled wires with the holes subtracted.
// Solids are extrusions of face SDFs. Both are meshed with marching cubes.
package sdfx

import (
	"fmt"
	"math"
	"slices"

	"github.com/chazu/plinth/pkg/curve"
	"github.com/chazu/plinth/pkg/geom"
	"github.com/chazu/plinth/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// Marching cubes resolution bounds.
const (
	minMeshCells = 16
	maxMeshCells = 200
)

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	Tolerance float64 // distance under which points coincide
	ArcStep   float64 // max angular step when sampling arcs into polygons
}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{Tolerance: geom.Confusion, ArcStep: curve.DefaultArcStep}
}

// face is a planar face at a fixed elevation.
type face struct {
	outer *kernel.Wire
	holes []*kernel.Wire
	z     float64
	s     sdf.SDF2
	tol   float64
}

func (f *face) Outer() *kernel.Wire       { return f.outer }
func (f *face) Holes() []*kernel.Wire     { return f.holes }
func (f *face) Elevation() float64        { return f.z }
func (f *face) Dim() int                  { return 2 }
func (f *face) Contains(p r3.Vector) bool { return contains2(f.s, p, f.tol) }

func (f *face) BoundingBox() (min, max [3]float64) {
	return bounds2(f.s, f.z)
}

// planar is a planar boolean or transform result. It has no wires.
type planar struct {
	s   sdf.SDF2
	z   float64
	tol float64
}

func (p *planar) Dim() int                  { return 2 }
func (p *planar) Contains(q r3.Vector) bool { return contains2(p.s, q, p.tol) }

func (p *planar) BoundingBox() (min, max [3]float64) {
	return bounds2(p.s, p.z)
}

// solid wraps an sdf.SDF3 to implement kernel.Solid.
type solid struct {
	s   sdf.SDF3
	tol float64
}

func (s *solid) Dim() int { return 3 }

func (s *solid) Contains(p r3.Vector) bool {
	return s.s.Evaluate(v3.Vec{X: p.X, Y: p.Y, Z: p.Z}) <= s.tol
}

// BoundingBox returns the axis-aligned bounding box.
func (s *solid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

func contains2(s sdf.SDF2, p r3.Vector, tol float64) bool {
	return s.Evaluate(v2.Vec{X: p.X, Y: p.Y}) <= tol
}

func bounds2(s sdf.SDF2, z float64) (min, max [3]float64) {
	bb := s.BoundingBox()
	return [3]float64{bb.Min.X, bb.Min.Y, z}, [3]float64{bb.Max.X, bb.Max.Y, z}
}

// unwrap2 extracts the planar SDF and elevation of a shape.
func unwrap2(s kernel.Shape) (sdf.SDF2, float64, bool) {
	switch v := s.(type) {
	case *face:
		return v.s, v.z, true
	case *planar:
		return v.s, v.z, true
	}
	return nil, 0, false
}

// unwrap3 extracts the SDF of a solid.
func unwrap3(s kernel.Shape) (sdf.SDF3, bool) {
	if v, ok := s.(*solid); ok {
		return v.s, true
	}
	return nil, false
}

// MakeWire chains curves into a wire.
func (k *SdfxKernel) MakeWire(curves []curve.Curve) (*kernel.Wire, error) {
	return kernel.NewWire(curves, k.Tolerance)
}

// MakeFace builds a face from an outer wire and holes. Wires are re-wound
// so the outer runs counter-clockwise and the holes clockwise.
func (k *SdfxKernel) MakeFace(outer *kernel.Wire, holes []*kernel.Wire) (kernel.Face, error) {
	if err := kernel.CheckFace(outer, holes, k.Tolerance, k.ArcStep); err != nil {
		return nil, err
	}
	outer, holes = kernel.Orient(outer, holes)
	s, err := k.profile(outer, holes)
	if err != nil {
		return nil, err
	}
	return &face{outer: outer, holes: holes, z: outer.Elevation(), s: s, tol: k.Tolerance}, nil
}

// profile is the outer polygon minus the union of the hole polygons.
func (k *SdfxKernel) profile(outer *kernel.Wire, holes []*kernel.Wire) (sdf.SDF2, error) {
	s, err := k.polygon(outer)
	if err != nil {
		return nil, err
	}
	if len(holes) == 0 {
		return s, nil
	}
	hs := make([]sdf.SDF2, 0, len(holes))
	for i, h := range holes {
		p, err := k.polygon(h)
		if err != nil {
			return nil, fmt.Errorf("hole %d: %w", i, err)
		}
		hs = append(hs, p)
	}
	return sdf.Difference2D(s, union2(hs)), nil
}

func (k *SdfxKernel) polygon(w *kernel.Wire) (sdf.SDF2, error) {
	pts := geom.RemoveAdjacentDuplicates(w.Polygon(k.ArcStep), k.Tolerance)
	if len(pts) < 3 {
		return nil, fmt.Errorf("%w: %d polygon points", kernel.ErrDegenerate, len(pts))
	}
	if geom.IsClockwise(pts) {
		slices.Reverse(pts)
	}
	s, err := sdf.Polygon2D(toVec(pts))
	if err != nil {
		return nil, fmt.Errorf("sdfx.Polygon2D: %w", err)
	}
	return s, nil
}

func toVec(pts []r2.Point) []v2.Vec {
	out := make([]v2.Vec, len(pts))
	for i, p := range pts {
		out[i] = v2.Vec{X: p.X, Y: p.Y}
	}
	return out
}

// FixFace re-winds the wires of f and drops holes that enclose no area or
// fall outside the outer wire.
func (k *SdfxKernel) FixFace(f kernel.Face) (kernel.Face, error) {
	outer := f.Outer()
	if outer == nil {
		return nil, kernel.ErrOpenWire
	}
	minArea := k.Tolerance * k.Tolerance
	var holes []*kernel.Wire
	for _, h := range f.Holes() {
		if h == nil || !h.Closed() || math.Abs(h.SignedArea()) <= minArea {
			continue
		}
		if kernel.CheckFace(outer, []*kernel.Wire{h}, k.Tolerance, k.ArcStep) != nil {
			continue
		}
		holes = append(holes, h)
	}
	return k.MakeFace(outer, holes)
}

// Extrude sweeps a face along +Z by height; a negative height sweeps down.
func (k *SdfxKernel) Extrude(f kernel.Face, height float64) (kernel.Solid, error) {
	s, z, ok := unwrap2(f)
	if !ok {
		return nil, kernel.ErrForeignShape
	}
	if math.Abs(height) <= k.Tolerance {
		return nil, fmt.Errorf("%w: extrusion height %g", kernel.ErrDegenerate, height)
	}
	s3 := sdf.Extrude3D(s, math.Abs(height))
	m := sdf.Translate3d(v3.Vec{Z: z + height/2})
	return &solid{s: sdf.Transform3D(s3, m), tol: k.Tolerance}, nil
}

// Boolean combines bases with tools. All shapes must share a dimension.
// Planar results keep the elevation of the first base.
func (k *SdfxKernel) Boolean(op kernel.Op, bases, tools []kernel.Shape, fuzz float64) (kernel.Shape, error) {
	if op == kernel.OpSection {
		return nil, fmt.Errorf("%w: %v", kernel.ErrUnsupported, op)
	}
	if len(bases) == 0 {
		return nil, fmt.Errorf("%w: no base shapes", kernel.ErrDegenerate)
	}
	tol := math.Max(k.Tolerance, fuzz)
	switch bases[0].Dim() {
	case 2:
		b, z, err := collect2(bases)
		if err != nil {
			return nil, err
		}
		if len(tools) == 0 {
			return &planar{s: union2(b), z: z, tol: tol}, nil
		}
		t, _, err := collect2(tools)
		if err != nil {
			return nil, err
		}
		return &planar{s: boolean2(op, union2(b), union2(t)), z: z, tol: tol}, nil
	default:
		b, err := collect3(bases)
		if err != nil {
			return nil, err
		}
		if len(tools) == 0 {
			return &solid{s: union3(b), tol: tol}, nil
		}
		t, err := collect3(tools)
		if err != nil {
			return nil, err
		}
		return &solid{s: boolean3(op, union3(b), union3(t)), tol: tol}, nil
	}
}

func boolean2(op kernel.Op, a, b sdf.SDF2) sdf.SDF2 {
	switch op {
	case kernel.OpCut:
		return sdf.Difference2D(a, b)
	case kernel.OpCommon:
		return sdf.Intersect2D(a, b)
	default:
		return sdf.Union2D(a, b)
	}
}

func boolean3(op kernel.Op, a, b sdf.SDF3) sdf.SDF3 {
	switch op {
	case kernel.OpCut:
		return sdf.Difference3D(a, b)
	case kernel.OpCommon:
		return sdf.Intersect3D(a, b)
	default:
		return sdf.Union3D(a, b)
	}
}

func collect2(shapes []kernel.Shape) ([]sdf.SDF2, float64, error) {
	out := make([]sdf.SDF2, 0, len(shapes))
	var z float64
	for i, s := range shapes {
		s2, sz, ok := unwrap2(s)
		if !ok {
			return nil, 0, fmt.Errorf("%w: shape %d is not planar", kernel.ErrForeignShape, i)
		}
		if i == 0 {
			z = sz
		}
		out = append(out, s2)
	}
	return out, z, nil
}

func collect3(shapes []kernel.Shape) ([]sdf.SDF3, error) {
	out := make([]sdf.SDF3, 0, len(shapes))
	for i, s := range shapes {
		s3, ok := unwrap3(s)
		if !ok {
			return nil, fmt.Errorf("%w: shape %d is not a solid", kernel.ErrForeignShape, i)
		}
		out = append(out, s3)
	}
	return out, nil
}

func union2(s []sdf.SDF2) sdf.SDF2 {
	if len(s) == 1 {
		return s[0]
	}
	return sdf.Union2D(s...)
}

func union3(s []sdf.SDF3) sdf.SDF3 {
	if len(s) == 1 {
		return s[0]
	}
	return sdf.Union3D(s...)
}

// Translate moves a shape by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Shape, x, y, z float64) (kernel.Shape, error) {
	if s3, ok := unwrap3(s); ok {
		m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
		return &solid{s: sdf.Transform3D(s3, m), tol: k.Tolerance}, nil
	}
	s2, sz, ok := unwrap2(s)
	if !ok {
		return nil, kernel.ErrForeignShape
	}
	m := sdf.Translate2d(v2.Vec{X: x, Y: y})
	return &planar{s: sdf.Transform2D(s2, m), z: sz + z, tol: k.Tolerance}, nil
}
