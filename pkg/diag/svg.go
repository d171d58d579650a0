// Package diag renders curve networks and the regions found in them as SVG
// for inspection. World Y points up; the drawing flips it for the screen.
package diag

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	svg "github.com/ajstarks/svgo/float"
	"github.com/chazu/plinth/pkg/curve"
	"github.com/chazu/plinth/pkg/geom"
	"github.com/chazu/plinth/pkg/intersect"
	"github.com/chazu/plinth/pkg/pipeline"
	"github.com/chazu/plinth/pkg/region"
)

// ErrEmpty is returned when there is nothing to draw.
var ErrEmpty = errors.New("diag: empty drawing")

// Drawing is what WriteSVG draws.
type Drawing struct {
	Curves        []curve.Curve
	Intersections []intersect.Info
	Regions       []region.ClosedRegion
}

// FromResult collects the input curves and the pipeline output into a
// drawing.
func FromResult(curves []curve.Curve, res *pipeline.Result) Drawing {
	d := Drawing{Curves: curves}
	if res != nil {
		d.Intersections = res.Intersections
		d.Regions = res.Regions
	}
	return d
}

// Style holds the SVG style strings of each layer.
type Style struct {
	Curve        string
	Outer        string
	Hole         string
	Intersection string
	Label        string
}

// DefaultStyle is a light theme readable on white.
var DefaultStyle = Style{
	Curve:        "fill:none;stroke:#222;stroke-width:1.5",
	Outer:        "fill:#9cc3e6;fill-opacity:0.5;stroke:none",
	Hole:         "fill:#ffffff;stroke:#c33;stroke-width:0.5;stroke-dasharray:4 2",
	Intersection: "fill:#c33;stroke:none",
	Label:        "font-family:sans-serif;font-size:10px;fill:#333;text-anchor:middle",
}

// Options configures WriteSVG.
type Options struct {
	Width  float64 // output width in px; height follows the aspect ratio
	Margin float64 // px around the drawing
	Labels bool    // number regions at their centre
	Style  Style
}

// DefaultOptions returns an 800 px wide drawing with labels.
func DefaultOptions() Options {
	return Options{Width: 800, Margin: 20, Labels: true, Style: DefaultStyle}
}

// errWriter keeps the first write error; svgo itself does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return len(p), nil
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}

// view maps world coordinates to pixels.
type view struct {
	box    geom.Box
	scale  float64
	margin float64
	height float64
}

func (v view) x(wx float64) float64 { return v.margin + (wx-v.box.Min().X)*v.scale }
func (v view) y(wy float64) float64 { return v.height - v.margin - (wy-v.box.Min().Y)*v.scale }

// WriteSVG draws d to w: region fills first, holes over them, then the
// curves and the intersection markers.
func WriteSVG(w io.Writer, d Drawing, opts Options) error {
	if opts.Width <= 0 {
		opts.Width = DefaultOptions().Width
	}
	if opts.Style == (Style{}) {
		opts.Style = DefaultStyle
	}

	box := geom.EmptyBox()
	for _, c := range d.Curves {
		if c != nil {
			box = box.Union(c.Bounds())
		}
	}
	for _, r := range d.Regions {
		box = box.Union(r.BoundingBox)
	}
	if box.IsEmpty() {
		return ErrEmpty
	}

	size := box.Max().Sub(box.Min())
	extent := math.Max(size.X, size.Y)
	if extent <= 0 {
		extent = 1
	}
	inner := opts.Width - 2*opts.Margin
	if inner <= 0 {
		inner = opts.Width
	}
	v := view{box: box, scale: inner / extent, margin: opts.Margin}
	width := size.X*v.scale + 2*opts.Margin
	v.height = size.Y*v.scale + 2*opts.Margin

	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	canvas.Start(width, v.height)
	canvas.Title("curve network")

	// Largest first so nested regions stay visible.
	order := make([]int, len(d.Regions))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(d.Regions[b].Area, d.Regions[a].Area)
	})

	canvas.Gid("regions")
	for _, i := range order {
		r := d.Regions[i]
		style := opts.Style.Outer
		if !r.IsOuterBoundary {
			style = opts.Style.Hole
		}
		canvas.Path(pathData(v, r.BoundaryCurves, true), style)
	}
	canvas.Gend()

	canvas.Gid("curves")
	for _, c := range d.Curves {
		if c != nil {
			canvas.Path(pathData(v, []curve.Curve{c}, false), opts.Style.Curve)
		}
	}
	canvas.Gend()

	if len(d.Intersections) > 0 {
		canvas.Gid("intersections")
		for _, in := range d.Intersections {
			canvas.Circle(v.x(in.Position.X), v.y(in.Position.Y), 3, opts.Style.Intersection)
		}
		canvas.Gend()
	}

	if opts.Labels && len(d.Regions) > 0 {
		canvas.Gstyle(opts.Style.Label)
		for i, r := range d.Regions {
			canvas.Text(v.x(r.CenterPoint.X), v.y(r.CenterPoint.Y), fmt.Sprintf("%d", i))
		}
		canvas.Gend()
	}

	canvas.End()
	if ew.err != nil {
		return fmt.Errorf("diag: writing svg: %w", ew.err)
	}
	return nil
}

// pathData builds an SVG path for a chain of curves. Arcs become SVG
// elliptical arc commands.
func pathData(v view, chain []curve.Curve, closed bool) string {
	if len(chain) == 0 {
		return ""
	}
	var b strings.Builder
	p := chain[0].Start()
	fmt.Fprintf(&b, "M%.3f %.3f", v.x(p.X), v.y(p.Y))
	for _, c := range chain {
		end := c.End()
		a, ok := c.(curve.Arc)
		if !ok {
			fmt.Fprintf(&b, " L%.3f %.3f", v.x(end.X), v.y(end.Y))
			continue
		}
		r := a.Radius() * v.scale
		large := 0
		if a.Sweep() > math.Pi {
			large = 1
		}
		// The Y flip turns counter-clockwise into SVG's positive sweep.
		sweep := 0
		if a.CCW() {
			sweep = 1
		}
		fmt.Fprintf(&b, " A%.3f %.3f 0 %d %d %.3f %.3f", r, r, large, sweep, v.x(end.X), v.y(end.Y))
	}
	if closed {
		b.WriteString(" Z")
	}
	return b.String()
}
