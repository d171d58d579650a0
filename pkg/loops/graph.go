package loops

import (
	"cmp"
	"math"
	"slices"

	"github.com/chazu/plinth/pkg/curve"
	"github.com/chazu/plinth/pkg/geom"
	"github.com/golang/geo/r3"
)

// HalfEdge is one directed traversal of an input curve. Half-edges 2k and
// 2k+1 are twins.
type HalfEdge struct {
	Curve       curve.Curve // oriented from Start to End
	CurveIndex  int
	Start, End  r3.Vector
	Reversed    bool
	StartVertex int
	EndVertex   int
	Twin        int

	angle     float64 // polar angle of the outgoing tangent
	curvature float64 // signed, positive when turning left
	removed   bool
}

// Vertex is a deduplicated endpoint with its outgoing half-edges sorted by
// angle, counter-clockwise.
type Vertex struct {
	Position r3.Vector
	Outgoing []int
}

// Graph is the half-edge structure over a fragment set.
type Graph struct {
	Vertices  []Vertex
	HalfEdges []HalfEdge
	tol       float64
}

// BuildGraph creates vertices and half-edges for curves. Curves whose two
// ends collapse onto one vertex are skipped.
func BuildGraph(curves []curve.Curve, tol float64) *Graph {
	g := &Graph{tol: tol}
	for i, c := range curves {
		if c == nil {
			continue
		}
		sv, ev := g.vertexAt(c.Start()), g.vertexAt(c.End())
		if sv == ev {
			continue
		}
		fwd := len(g.HalfEdges)
		g.HalfEdges = append(g.HalfEdges,
			newHalfEdge(c, i, false, sv, ev, fwd+1),
			newHalfEdge(c.Reverse(), i, true, ev, sv, fwd))
		g.Vertices[sv].Outgoing = append(g.Vertices[sv].Outgoing, fwd)
		g.Vertices[ev].Outgoing = append(g.Vertices[ev].Outgoing, fwd+1)
	}
	for v := range g.Vertices {
		g.sortOutgoing(v)
	}
	return g
}

func newHalfEdge(c curve.Curve, idx int, reversed bool, sv, ev, twin int) HalfEdge {
	h := HalfEdge{
		Curve:       c,
		CurveIndex:  idx,
		Start:       c.Start(),
		End:         c.End(),
		Reversed:    reversed,
		StartVertex: sv,
		EndVertex:   ev,
		Twin:        twin,
		angle:       geom.Angle(geom.XY(c.Tangent(c.Domain().Lo))),
	}
	if 2*math.Pi-h.angle <= angleEps {
		h.angle = 0
	}
	if a, ok := c.(curve.Arc); ok {
		h.curvature = 1 / a.Radius()
		if !a.CCW() {
			h.curvature = -h.curvature
		}
	}
	return h
}

func (g *Graph) vertexAt(p r3.Vector) int {
	for i, v := range g.Vertices {
		if geom.Near(v.Position, p, g.tol) {
			return i
		}
	}
	g.Vertices = append(g.Vertices, Vertex{Position: p})
	return len(g.Vertices) - 1
}

// angleEps separates genuinely different directions from tangent ties.
const angleEps = 1e-9

func (g *Graph) sortOutgoing(v int) {
	slices.SortStableFunc(g.Vertices[v].Outgoing, func(a, b int) int {
		ha, hb := &g.HalfEdges[a], &g.HalfEdges[b]
		if d := ha.angle - hb.angle; math.Abs(d) > angleEps {
			return cmp.Compare(ha.angle, hb.angle)
		}
		// Same tangent: the sharper left turn lies further counter-clockwise.
		if c := cmp.Compare(ha.curvature, hb.curvature); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
}

// Next returns the half-edge that follows h when tracing a face: the
// outgoing half-edge after h's twin around h's end vertex. It returns -1
// when h's end vertex has no live outgoing half-edges.
func (g *Graph) Next(h int) int {
	e := g.HalfEdges[h]
	out := g.Vertices[e.EndVertex].Outgoing
	pos := slices.Index(out, e.Twin)
	if pos < 0 {
		return -1
	}
	return out[(pos+1)%len(out)]
}

// Live reports whether h survived bridge removal.
func (g *Graph) Live(h int) bool {
	return !g.HalfEdges[h].removed
}

// removeBridges deletes every edge whose removal disconnects the graph.
// Such edges (dangling walls, connectors to islands) can never bound a face.
func (g *Graph) removeBridges() int {
	n := len(g.Vertices)
	disc := make([]int, n)
	low := make([]int, n)
	for i := range disc {
		disc[i] = -1
	}
	var bridges []int
	timer := 0

	type frame struct {
		v, via, next int // via is the half-edge used to enter v
	}
	for root := 0; root < n; root++ {
		if disc[root] >= 0 {
			continue
		}
		disc[root], low[root] = timer, timer
		timer++
		stack := []frame{{v: root, via: -1}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			out := g.Vertices[top.v].Outgoing
			if top.next < len(out) {
				h := out[top.next]
				top.next++
				if top.via >= 0 && h == g.HalfEdges[top.via].Twin {
					continue
				}
				w := g.HalfEdges[h].EndVertex
				if disc[w] < 0 {
					disc[w], low[w] = timer, timer
					timer++
					stack = append(stack, frame{v: w, via: h})
					continue
				}
				low[top.v] = min(low[top.v], disc[w])
				continue
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				continue
			}
			parent := stack[len(stack)-1].v
			low[parent] = min(low[parent], low[top.v])
			if low[top.v] > disc[parent] {
				bridges = append(bridges, top.via)
			}
		}
	}

	for _, h := range bridges {
		g.remove(h)
		g.remove(g.HalfEdges[h].Twin)
	}
	return len(bridges)
}

func (g *Graph) remove(h int) {
	g.HalfEdges[h].removed = true
	v := &g.Vertices[g.HalfEdges[h].StartVertex]
	v.Outgoing = slices.DeleteFunc(v.Outgoing, func(x int) bool { return x == h })
}
