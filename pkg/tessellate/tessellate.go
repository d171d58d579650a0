// Package tessellate turns a sketch into triangle meshes: the pipeline
// rebuilds the faces bounded by the sketch's curves, each face is extruded
// by the sketch height and the result is triangulated by the kernel. One
// mesh is produced per face.
package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/plinth/pkg/assembly"
	"github.com/chazu/plinth/pkg/geom"
	"github.com/chazu/plinth/pkg/kernel"
	"github.com/chazu/plinth/pkg/pipeline"
	"github.com/chazu/plinth/pkg/region"
	"github.com/chazu/plinth/pkg/sketch"
)

// CellsPerExtent is the number of marching cells requested across the
// largest extent of each shape.
const CellsPerExtent = 64

// Tessellate rebuilds the faces of sk and produces one triangle mesh per
// face. With a zero height the faces are meshed flat at their elevation.
// A sketch that bounds no region yields no meshes and no error. The
// tessellator is read-only and never mutates the sketch.
func Tessellate(sk *sketch.Sketch, p *pipeline.Pipeline) ([]*kernel.Mesh, error) {
	if sk == nil {
		return nil, nil
	}
	res, ok := p.RebuildFaces(sk.Curves())
	if !ok {
		return nil, nil
	}
	return Faces(p.Kernel(), res, Names(sk, res), sk.Settings.Height)
}

// Faces triangulates the faces of res. names gives the mesh name of each
// face; missing names fall back to "region-N".
func Faces(k kernel.Kernel, res *pipeline.Result, names []string, height float64) ([]*kernel.Mesh, error) {
	meshes := make([]*kernel.Mesh, 0, len(res.Faces))
	for i, rf := range res.Faces {
		name := fmt.Sprintf("region-%d", rf.Region)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		mesh, err := faceMesh(k, rf, res.Regions[rf.Region], height)
		if err != nil {
			return nil, fmt.Errorf("tessellate: %s: %w", name, err)
		}
		mesh.Name = name
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

func faceMesh(k kernel.Kernel, rf assembly.RegionFace, r region.ClosedRegion, height float64) (*kernel.Mesh, error) {
	accuracy := accuracyFor(r.BoundingBox, height)
	if height == 0 {
		return k.Triangulate(rf.Face, accuracy)
	}
	solid, err := k.Extrude(rf.Face, height)
	if err != nil {
		return nil, fmt.Errorf("extrude failed: %w", err)
	}
	mesh, err := k.Triangulate(solid, accuracy)
	if err != nil {
		return nil, fmt.Errorf("triangulate failed: %w", err)
	}
	return mesh, nil
}

func accuracyFor(b geom.Box, height float64) float64 {
	if b.IsEmpty() {
		return 0
	}
	size := b.Max().Sub(b.Min())
	extent := math.Max(math.Max(size.X, size.Y), math.Abs(height))
	return extent / CellsPerExtent
}

// Names picks a mesh name for every face of res: the name of the sketch
// entry that draws the whole outer boundary, if there is one.
func Names(sk *sketch.Sketch, res *pipeline.Result) []string {
	owners := sk.Owners()
	names := make([]string, len(res.Faces))
	for i, rf := range res.Faces {
		entry := -1
		for _, frag := range res.Regions[rf.Region].Sources {
			if frag < 0 || frag >= len(res.Sources) {
				entry = -1
				break
			}
			e := owners[res.Sources[frag]]
			if entry >= 0 && e != entry {
				entry = -1
				break
			}
			entry = e
		}
		if entry >= 0 {
			names[i] = sk.Entries[entry].Name
		}
	}
	return names
}
