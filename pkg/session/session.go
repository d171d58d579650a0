// Package session runs a sketch source through the whole toolchain in one
// call: the engine builds the sketch, validation checks it, the pipeline
// rebuilds its faces and the result is meshed and drawn. The result types
// carry JSON tags so a front end can consume them directly.
package session

import (
	"bytes"
	"errors"
	"log/slog"

	"github.com/chazu/plinth/pkg/diag"
	"github.com/chazu/plinth/pkg/engine"
	"github.com/chazu/plinth/pkg/kernel"
	"github.com/chazu/plinth/pkg/kernel/sdfx"
	"github.com/chazu/plinth/pkg/pipeline"
	"github.com/chazu/plinth/pkg/region"
	"github.com/chazu/plinth/pkg/sketch"
	"github.com/chazu/plinth/pkg/tessellate"
	"github.com/golang/geo/r3"
)

// colorPalette assigns distinct colours to meshes.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// Options configures a Session.
type Options struct {
	Kernel kernel.Kernel // nil means the sdfx kernel
	SVG    diag.Options
	Logger *slog.Logger
}

// DefaultOptions returns a session over the sdfx kernel with the default
// drawing options.
func DefaultOptions() Options {
	return Options{SVG: diag.DefaultOptions()}
}

// Session evaluates sketch sources. It is safe for concurrent use; a newer
// call supersedes an older one still running in the engine.
type Session struct {
	engine *engine.Engine
	kernel kernel.Kernel
	svg    diag.Options
	log    *slog.Logger
}

// MeshData is one triangle mesh in JSON form.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
}

// Diagnostic is an error or warning tied to a source position or a sketch
// entry. Line and Col are zero when unknown.
type Diagnostic struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Entry   string `json:"entry,omitempty"`
	Message string `json:"message"`
}

// RegionData summarises one closed region. Children lists the regions
// directly inside it.
type RegionData struct {
	Area     float64   `json:"area"`
	Center   r3.Vector `json:"center"`
	Outer    bool      `json:"outer"`
	Children []int     `json:"children,omitempty"`
}

// Result is everything one evaluation produced. Slices are never nil so
// they encode as [] rather than null.
type Result struct {
	Meshes        []MeshData   `json:"meshes"`
	Regions       []RegionData `json:"regions"`
	Intersections int          `json:"intersections"`
	SVG           string       `json:"svg,omitempty"`
	Errors        []Diagnostic `json:"errors"`
	Warnings      []Diagnostic `json:"warnings"`
}

// New returns a session.
func New(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Kernel == nil {
		opts.Kernel = sdfx.New()
	}
	return &Session{
		engine: engine.NewEngine(),
		kernel: opts.Kernel,
		svg:    opts.SVG,
		log:    opts.Logger,
	}
}

func newResult() Result {
	return Result{
		Meshes:   []MeshData{},
		Regions:  []RegionData{},
		Errors:   []Diagnostic{},
		Warnings: []Diagnostic{},
	}
}

// Evaluate runs source through the toolchain. Failures are reported in
// Result.Errors; Evaluate itself never fails. Evaluation stops at the first
// stage that reports errors.
func (s *Session) Evaluate(source string) Result {
	result := newResult()

	ev, err := s.engine.EvaluateAll(source)
	if err != nil {
		s.log.Warn("session: evaluation failed", "err", err)
		result.Errors = append(result.Errors, Diagnostic{Message: err.Error()})
		return result
	}
	for _, w := range ev.Warnings {
		result.Warnings = append(result.Warnings, Diagnostic{
			Line:    w.Line,
			Col:     w.Col,
			Entry:   entryLabel(w.EntryID),
			Message: w.Message,
		})
	}
	if len(ev.Errors) > 0 {
		for _, e := range ev.Errors {
			result.Errors = append(result.Errors, Diagnostic{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}

	sk := ev.Sketch
	vr := sketch.ValidateAll(sk)
	for _, w := range vr.Warnings {
		result.Warnings = append(result.Warnings, Diagnostic{Entry: entryLabel(w.EntryID), Message: w.Message})
	}
	if !vr.OK() {
		for _, e := range vr.Errors {
			result.Errors = append(result.Errors, Diagnostic{Entry: entryLabel(e.EntryID), Message: e.Message})
		}
		return result
	}

	curves := sk.Curves()
	if len(curves) == 0 {
		return result
	}

	p := pipeline.New(s.kernel, s.pipelineOptions(sk.Settings))
	res, ok := p.RebuildFaces(curves)
	result.Intersections = len(res.Intersections)
	parents := res.Nesting.Parents(res.Regions)
	for i, r := range res.Regions {
		result.Regions = append(result.Regions, RegionData{
			Area:     r.Area,
			Center:   r.CenterPoint,
			Outer:    r.IsOuterBoundary,
			Children: region.Children(parents, i),
		})
	}
	if !ok {
		if len(res.Regions) == 0 {
			result.Warnings = append(result.Warnings, Diagnostic{Message: "no closed regions found"})
		} else {
			result.Warnings = append(result.Warnings, Diagnostic{Message: "no faces could be built"})
		}
	} else {
		meshes, err := tessellate.Faces(p.Kernel(), res, tessellate.Names(sk, res), sk.Settings.Height)
		if err != nil {
			s.log.Warn("session: tessellation failed", "err", err)
			result.Errors = append(result.Errors, Diagnostic{Message: "tessellation failed: " + err.Error()})
			return result
		}
		for i, m := range meshes {
			result.Meshes = append(result.Meshes, MeshData{
				Vertices: m.Vertices,
				Normals:  m.Normals,
				Indices:  m.Indices,
				Name:     m.Name,
				Color:    colorPalette[i%len(colorPalette)],
			})
		}
	}

	var buf bytes.Buffer
	switch err := diag.WriteSVG(&buf, diag.FromResult(curves, res), s.svg); {
	case err == nil:
		result.SVG = buf.String()
	case !errors.Is(err, diag.ErrEmpty):
		s.log.Warn("session: drawing failed", "err", err)
		result.Warnings = append(result.Warnings, Diagnostic{Message: "drawing failed: " + err.Error()})
	}

	s.log.Debug("session: evaluated",
		"entries", sk.EntryCount(),
		"curves", len(curves),
		"regions", len(result.Regions),
		"meshes", len(result.Meshes))
	return result
}

func (s *Session) pipelineOptions(st sketch.Settings) pipeline.Options {
	opts := pipeline.DefaultOptions()
	if st.Tolerance > 0 {
		opts.Tolerance = st.Tolerance
	}
	if st.MinArea > 0 {
		opts.MinArea = st.MinArea
	}
	opts.Logger = s.log
	return opts
}

func entryLabel(id sketch.EntryID) string {
	if id.IsZero() {
		return ""
	}
	return id.Short()
}
