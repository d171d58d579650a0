// Package kernel defines the geometry kernel the topology pipeline builds
// faces and solids with. Implementations (sdfx) provide face construction,
// extrusion, booleans and triangulation behind this interface; curve
// algebra stays in the curve and intersect packages.
package kernel

import (
	"errors"
	"fmt"

	"github.com/chazu/plinth/pkg/curve"
	"github.com/golang/geo/r3"
)

var (
	// ErrDisconnected is returned when edges do not chain into one wire.
	ErrDisconnected = errors.New("kernel: edges do not form a wire")

	// ErrOpenWire is returned when a face boundary does not close.
	ErrOpenWire = errors.New("kernel: wire is not closed")

	// ErrSelfIntersecting is returned when a face boundary crosses itself.
	ErrSelfIntersecting = errors.New("kernel: wire intersects itself")

	// ErrHoleOutside is returned when a hole is not inside the outer wire.
	ErrHoleOutside = errors.New("kernel: hole is not inside the outer wire")

	// ErrDegenerate is returned for faces without area and zero-height extrusions.
	ErrDegenerate = errors.New("kernel: degenerate shape")

	// ErrUnsupported is returned for operations a backend does not provide.
	ErrUnsupported = errors.New("kernel: operation not supported")

	// ErrForeignShape is returned when a shape was built by another backend.
	ErrForeignShape = errors.New("kernel: shape belongs to another kernel")
)

// Op selects a boolean operation.
type Op int

const (
	OpCut     Op = iota // bases minus tools
	OpFuse              // bases plus tools
	OpCommon            // bases intersected with tools
	OpSection           // intersection curves of bases and tools
)

func (o Op) String() string {
	switch o {
	case OpCut:
		return "cut"
	case OpFuse:
		return "fuse"
	case OpCommon:
		return "common"
	case OpSection:
		return "section"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Shape is an opaque handle to a kernel shape.
type Shape interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)

	// Contains reports whether p lies inside the shape or on its boundary.
	// Planar shapes test the XY projection of p.
	Contains(p r3.Vector) bool

	// Dim is 2 for planar shapes and 3 for solids.
	Dim() int
}

// Face is a planar shape bounded by one outer wire and zero or more holes.
// The outer wire runs counter-clockwise and holes clockwise.
type Face interface {
	Shape
	Outer() *Wire
	Holes() []*Wire
	Elevation() float64
}

// Solid is a three-dimensional shape.
type Solid interface {
	Shape
}

// Kernel is the geometry kernel interface.
type Kernel interface {
	// Construction
	MakeWire(curves []curve.Curve) (*Wire, error)
	MakeFace(outer *Wire, holes []*Wire) (Face, error)
	FixFace(f Face) (Face, error)
	Extrude(f Face, height float64) (Solid, error)

	// Boolean operations. fuzz widens the containment tolerance of the
	// result.
	Boolean(op Op, bases, tools []Shape, fuzz float64) (Shape, error)

	// Transforms
	Translate(s Shape, x, y, z float64) (Shape, error)

	// Mesh output. accuracy is the target edge length.
	Triangulate(s Shape, accuracy float64) (*Mesh, error)
}
