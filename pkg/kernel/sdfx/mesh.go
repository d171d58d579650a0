package sdfx

import (
	"math"

	"github.com/chazu/plinth/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// meshCells picks a marching cubes resolution for a shape of the given
// largest extent so that cells are about accuracy wide.
func meshCells(extent, accuracy float64) int {
	if accuracy <= 0 {
		return maxMeshCells
	}
	n := int(math.Ceil(extent / accuracy))
	return min(max(n, minMeshCells), maxMeshCells)
}

// Triangulate converts a shape to a triangle mesh using marching cubes.
// Planar shapes are meshed through a thin slab whose upward-facing
// triangles are flattened back onto the shape's elevation.
func (k *SdfxKernel) Triangulate(s kernel.Shape, accuracy float64) (*kernel.Mesh, error) {
	if s3, ok := unwrap3(s); ok {
		bb := s3.BoundingBox()
		size := bb.Size()
		cells := meshCells(math.Max(size.X, math.Max(size.Y, size.Z)), accuracy)
		return toMesh(s3, cells, nil), nil
	}
	s2, z, ok := unwrap2(s)
	if !ok {
		return nil, kernel.ErrForeignShape
	}
	bb := s2.BoundingBox()
	size := bb.Size()
	extent := math.Max(size.X, size.Y)
	cells := meshCells(extent, accuracy)
	slab := sdf.Extrude3D(s2, 4*extent/float64(cells))
	flat := z
	return toMesh(slab, cells, &flat), nil
}

// toMesh runs marching cubes over s. When flat is set only triangles facing
// +Z are kept, moved to that height.
func toMesh(s sdf.SDF3, cells int, flat *float64) *kernel.Mesh {
	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(s, renderer)

	bb := s.BoundingBox()
	size := bb.Size()
	uv := func(v v3.Vec) (float32, float32) {
		var u, w float64
		if size.X > 0 {
			u = (v.X - bb.Min.X) / size.X
		}
		if size.Y > 0 {
			w = (v.Y - bb.Min.Y) / size.Y
		}
		return float32(u), float32(w)
	}

	m := &kernel.Mesh{}
	for _, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		if flat != nil {
			if n.Z <= 0.5 {
				continue
			}
			n = v3.Vec{Z: 1}
		}
		base := uint32(m.VertexCount())
		for j := 0; j < 3; j++ {
			v := tri[j]
			if flat != nil {
				v.Z = *flat
			}
			u, w := uv(v)
			m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
			m.UVs = append(m.UVs, u, w)
			m.Indices = append(m.Indices, base+uint32(j))
		}
	}
	return m
}
