package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/plinth/pkg/curve"
	"github.com/chazu/plinth/pkg/sketch"
	"github.com/golang/geo/r3"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(line a b :name "wall")`,
			expect: `(line a b "__kw_name" "wall")`,
		},
		{
			name:   "multiple keywords",
			input:  `(settings :tolerance 0.001 :height 3)`,
			expect: `(settings "__kw_tolerance" 0.001 "__kw_height" 3)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(def wall-height 3)`,
			expect: `(def wall_height 3)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative number preserved",
			input:  `(vec -1 -2)`,
			expect: `(vec -1 -2)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:min-area`,
			expect: `"__kw_min-area"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// mustEval evaluates source and fails the test on any error.
func mustEval(t *testing.T, source string) EvalResult {
	t.Helper()
	res, err := NewEngine().EvaluateAll(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(res.Errors) > 0 {
		t.Fatalf("eval errors: %v", res.Errors)
	}
	if res.Sketch == nil {
		t.Fatal("expected non-nil sketch")
	}
	return res
}

// evalError evaluates source and returns the first eval error message.
func evalError(t *testing.T, source string) string {
	t.Helper()
	sk, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if sk != nil {
		t.Fatal("expected nil sketch on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}
	return evalErrs[0].Message
}

func near(a, b r3.Vector) bool {
	return a.Sub(b).Norm() < 1e-9
}

// ---------------------------------------------------------------------------
// Drawing builtins
// ---------------------------------------------------------------------------

func TestLine(t *testing.T) {
	res := mustEval(t, `(line (vec 0 0) (vec 4 0) :name "wall")`)
	sk := res.Sketch

	if sk.EntryCount() != 1 {
		t.Fatalf("expected 1 entry, got %d", sk.EntryCount())
	}
	wall := sk.Lookup("wall")
	if wall == nil {
		t.Fatal("expected entry named 'wall'")
	}
	if wall.Kind != sketch.EntryLine {
		t.Errorf("expected line entry, got %s", wall.Kind)
	}
	if len(wall.Curves) != 1 {
		t.Fatalf("expected 1 curve, got %d", len(wall.Curves))
	}
	c := wall.Curves[0]
	if !near(c.Start(), r3.Vector{}) || !near(c.End(), r3.Vector{X: 4}) {
		t.Errorf("line endpoints = %v -> %v", c.Start(), c.End())
	}
}

func TestVariableReference(t *testing.T) {
	source := `
(def w 6)
(def origin (vec 0 0))
(line origin (vec w 0))
`
	res := mustEval(t, source)
	curves := res.Sketch.Curves()
	if len(curves) != 1 {
		t.Fatalf("expected 1 curve, got %d", len(curves))
	}
	if got := curves[0].Length(); got != 6 {
		t.Errorf("expected length 6 (from variable), got %g", got)
	}
}

func TestArcBulge(t *testing.T) {
	res := mustEval(t, `(arc (vec 0 0) (vec 2 0) :bulge 1 :name "half")`)
	half := res.Sketch.MustLookup("half")
	if half.Kind != sketch.EntryArc {
		t.Fatalf("expected arc entry, got %s", half.Kind)
	}
	a, ok := half.Curves[0].(curve.Arc)
	if !ok {
		t.Fatalf("expected curve.Arc, got %T", half.Curves[0])
	}
	if math.Abs(a.Radius()-1) > 1e-9 {
		t.Errorf("radius = %g, want 1", a.Radius())
	}
	if !a.CCW() {
		t.Error("positive bulge should be counter-clockwise")
	}
}

func TestArcThrough(t *testing.T) {
	res := mustEval(t, `(arc (vec 0 0) (vec 2 0) :through (vec 1 -1))`)
	c := res.Sketch.Curves()[0]
	a, ok := c.(curve.Arc)
	if !ok {
		t.Fatalf("expected curve.Arc, got %T", c)
	}
	if math.Abs(a.Bulge()-1) > 1e-9 {
		t.Errorf("bulge = %g, want 1", a.Bulge())
	}
	if !near(a.Center(), r3.Vector{X: 1}) {
		t.Errorf("center = %v, want (1, 0)", a.Center())
	}
}

func TestPolyline(t *testing.T) {
	tests := []struct {
		name   string
		source string
		curves int
		closed bool
	}{
		{
			name:   "open inline vertices",
			source: `(polyline (vertex 0 0) (vertex 4 0) (vec 4 3))`,
			curves: 2,
		},
		{
			name:   "closed with flag value",
			source: `(polyline (vec 0 0) (vec 4 0) (vec 4 3) :closed true)`,
			curves: 3,
			closed: true,
		},
		{
			name:   "closed flag last",
			source: `(polyline (vec 0 0) (vec 4 0) (vec 4 3) :closed)`,
			curves: 3,
			closed: true,
		},
		{
			name:   "vertex list",
			source: `(polyline (list (vec 0 0) (vec 1 0) (vec 1 1) (vec 0 1)) :closed true)`,
			curves: 4,
			closed: true,
		},
		{
			name:   "vertex array",
			source: `(polyline [(vec 0 0) (vec 1 0)])`,
			curves: 1,
		},
		{
			name:   "arc vertex",
			source: `(polyline (vertex (vec 0 0) :bulge 1) (vec 2 0) :closed true)`,
			curves: 2,
			closed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustEval(t, tt.source)
			if res.Sketch.EntryCount() != 1 {
				t.Fatalf("expected 1 entry, got %d", res.Sketch.EntryCount())
			}
			e := res.Sketch.Entries[0]
			if len(e.Curves) != tt.curves {
				t.Errorf("curves = %d, want %d", len(e.Curves), tt.curves)
			}
			if e.Closed != tt.closed {
				t.Errorf("closed = %v, want %v", e.Closed, tt.closed)
			}
		})
	}
}

func TestRect(t *testing.T) {
	res := mustEval(t, `(rect (vec 0 0) (vec 4 3) :name "room")`)
	room := res.Sketch.MustLookup("room")
	if !room.Closed || len(room.Curves) != 4 {
		t.Fatalf("expected closed 4-edge entry, got closed=%v curves=%d", room.Closed, len(room.Curves))
	}
	if got := curve.CurvesSignedArea(room.Curves); math.Abs(math.Abs(got)-12) > 1e-9 {
		t.Errorf("area = %g, want 12", got)
	}
}

func TestCircle(t *testing.T) {
	res := mustEval(t, `(circle (vec 1 1) 2 :name "column")`)
	col := res.Sketch.MustLookup("column")
	if len(col.Curves) != 2 {
		t.Fatalf("expected 2 half circles, got %d", len(col.Curves))
	}
	if got := curve.CurvesSignedArea(col.Curves); math.Abs(got-4*math.Pi) > 1e-9 {
		t.Errorf("area = %g, want 4*pi", got)
	}
}

func TestSettings(t *testing.T) {
	res := mustEval(t, `(settings :tolerance 0.001 :min-area 0.5 :height 2700 :units :mm)`)
	st := res.Sketch.Settings
	if st.Tolerance != 0.001 {
		t.Errorf("tolerance = %g, want 0.001", st.Tolerance)
	}
	if st.MinArea != 0.5 {
		t.Errorf("min-area = %g, want 0.5", st.MinArea)
	}
	if st.Height != 2700 {
		t.Errorf("height = %g, want 2700", st.Height)
	}
	if st.Units != "mm" {
		t.Errorf("units = %q, want mm", st.Units)
	}
}

func TestSettingsApplyToLaterEntries(t *testing.T) {
	// With a coarse tolerance the two nearby points merge.
	res := mustEval(t, `
(settings :tolerance 0.1)
(polyline (vec 0 0) (vec 0.05 0) (vec 1 0))
`)
	if got := len(res.Sketch.Curves()); got != 1 {
		t.Errorf("curves = %d, want 1 after merging", got)
	}
}

func TestPartialPolylineWarns(t *testing.T) {
	// The arc edge climbs out of the plane and cannot be built. The
	// straight edge before it still can.
	res := mustEval(t, `(polyline (vec 0 0) (vertex 1 0 :bulge 0.5) (vec 2 0 1) :name "bent")`)
	if len(res.Warnings) == 0 {
		t.Fatal("expected a warning for the unbuildable edge")
	}
	if !strings.Contains(res.Warnings[0].Message, "polyline") {
		t.Errorf("warning = %q", res.Warnings[0].Message)
	}
	if res.Warnings[0].EntryID != res.Sketch.MustLookup("bent").ID {
		t.Error("warning should point at the entry")
	}
}

// ---------------------------------------------------------------------------
// Error reporting
// ---------------------------------------------------------------------------

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		substr string
	}{
		{"vec arity", `(vec 1)`, "coordinates"},
		{"vec type", `(vec 1 "a")`, "expected number"},
		{"line arity", `(line (vec 0 0))`, "exactly 2 points"},
		{"line type", `(line 1 (vec 0 0))`, "expected vec"},
		{"zero line", `(line (vec 1 1) (vec 1 1))`, "degenerate"},
		{"arc without bulge", `(arc (vec 0 0) (vec 1 0))`, ":bulge or :through"},
		{"arc both", `(arc (vec 0 0) (vec 1 0) :bulge 1 :through (vec 0 1))`, "not both"},
		{"arc collinear", `(arc (vec 0 0) (vec 2 0) :through (vec 1 0))`, "collinear"},
		{"polyline short", `(polyline (vec 0 0))`, "at least 2"},
		{"polyline closed type", `(polyline (vec 0 0) (vec 1 0) :closed 3)`, "true or false"},
		{"rect arity", `(rect (vec 0 0))`, "2 corner"},
		{"circle radius", `(circle (vec 0 0) -1)`, "positive"},
		{"settings positional", `(settings 1)`, "keyword arguments only"},
		{"settings type", `(settings :height "tall")`, "expected number"},
		{"name type", `(line (vec 0 0) (vec 1 0) :name 4)`, "expected string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := evalError(t, tt.source)
			if !strings.Contains(msg, tt.substr) {
				t.Errorf("error %q should contain %q", msg, tt.substr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Full example
// ---------------------------------------------------------------------------

func TestFloorPlanExample(t *testing.T) {
	source := `
;; Two rooms and a column.
(settings :height 3 :units :mm)

(def wall-x 4)
(rect (vec 0 0) (vec 8 5) :name "outline")
(line (vec wall-x 0) (vec wall-x 5) :name "partition")
(circle (vec 2 2.5) 0.5 :name "column")
(arc (vec 6 5) (vec 8 3) :through (vec 7.414 4.414) :name "bay")
`
	res := mustEval(t, source)
	sk := res.Sketch

	if sk.EntryCount() != 4 {
		t.Fatalf("expected 4 entries, got %d", sk.EntryCount())
	}
	for _, name := range []string{"outline", "partition", "column", "bay"} {
		if sk.Lookup(name) == nil {
			t.Errorf("missing entry %q", name)
		}
	}
	if got := len(sk.Curves()); got != 4+1+2+1 {
		t.Errorf("curves = %d, want 8", got)
	}
	if sk.Settings.Height != 3 {
		t.Errorf("height = %g, want 3", sk.Settings.Height)
	}
	if errs := sketch.Validate(sk); len(errs) != 0 {
		t.Errorf("sketch should validate, got %v", errs)
	}
}
