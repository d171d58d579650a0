package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/plinth/pkg/curve"
	"github.com/chazu/plinth/pkg/sketch"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/golang/geo/r3"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms sketch source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: min-area -> min_area
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpPoint wraps a position built by `vec`.
type sexpPoint struct {
	p r3.Vector
}

func (v *sexpPoint) SexpString(ps *zygo.PrintState) string {
	if v.p.Z != 0 {
		return fmt.Sprintf("(vec %g %g %g)", v.p.X, v.p.Y, v.p.Z)
	}
	return fmt.Sprintf("(vec %g %g)", v.p.X, v.p.Y)
}
func (v *sexpPoint) Type() *zygo.RegisteredType { return nil }

// sexpVertex wraps a curve.Vertex built by `vertex`.
type sexpVertex struct {
	v curve.Vertex
}

func (v *sexpVertex) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vertex %g %g :bulge %g)", v.v.Position.X, v.v.Position.Y, v.v.Bulge)
}
func (v *sexpVertex) Type() *zygo.RegisteredType { return nil }

// sexpEntryRef wraps a sketch.EntryID returned by the drawing builtins.
type sexpEntryRef struct {
	id   sketch.EntryID
	name string // human-readable name for error messages
}

func (r *sexpEntryRef) SexpString(ps *zygo.PrintState) string {
	if r.name != "" {
		return fmt.Sprintf("(entry %q)", r.name)
	}
	return fmt.Sprintf("(entry %s)", r.id.Short())
}
func (r *sexpEntryRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toBool reads a flag value. A keyword given last with no value counts as
// true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toPoint extracts a position from a vec or a vertex.
func toPoint(s zygo.Sexp) (r3.Vector, error) {
	switch v := s.(type) {
	case *sexpPoint:
		return v.p, nil
	case *sexpVertex:
		return v.v.Position, nil
	}
	return r3.Vector{}, fmt.Errorf("expected vec, got %T (%s)", s, s.SexpString(nil))
}

// toVertex extracts a vertex; a bare vec is a vertex with zero bulge.
func toVertex(s zygo.Sexp) (curve.Vertex, error) {
	switch v := s.(type) {
	case *sexpVertex:
		return v.v, nil
	case *sexpPoint:
		return curve.Vertex{Position: v.p}, nil
	}
	return curve.Vertex{}, fmt.Errorf("expected vertex or vec, got %T (%s)", s, s.SexpString(nil))
}

// toCoords reads "x y [z]" numbers into a position.
func toCoords(args []zygo.Sexp) (r3.Vector, error) {
	if len(args) != 2 && len(args) != 3 {
		return r3.Vector{}, fmt.Errorf("expected 2 or 3 coordinates, got %d", len(args))
	}
	var c [3]float64
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return r3.Vector{}, fmt.Errorf("%c: %w", "xyz"[i], err)
		}
		c[i] = f
	}
	return r3.Vector{X: c[0], Y: c[1], Z: c[2]}, nil
}

// toVertices reads vertices given either inline or as one list or array.
func toVertices(args []zygo.Sexp) ([]curve.Vertex, error) {
	if len(args) == 1 {
		if items, err := sexpListToSlice(args[0]); err == nil {
			args = items
		}
	}
	vs := make([]curve.Vertex, 0, len(args))
	for i, a := range args {
		v, err := toVertex(a)
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %w", i, err)
		}
		vs = append(vs, v)
	}
	return vs, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Sketch builder
// ---------------------------------------------------------------------------

// builder collects entries and warnings while the builtins run.
type builder struct {
	sketch   *sketch.Sketch
	warnings []EvalWarning
}

// add builds an entry from vertices. Edges that fail to build become
// warnings; an entry without any geometry is an error.
func (b *builder) add(form, name string, kind sketch.EntryKind, vs []curve.Vertex, closed bool) (zygo.Sexp, error) {
	e, err := b.sketch.Add(name, kind, vs, closed)
	if e == nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", form, err)
	}
	if err != nil {
		b.warnings = append(b.warnings, EvalWarning{
			Message: fmt.Sprintf("%s: %v", form, err),
			EntryID: e.ID,
		})
	}
	return &sexpEntryRef{id: e.ID, name: name}, nil
}

// optName reads the optional :name keyword.
func optName(form string, pa kwArgs) (string, error) {
	v, ok := pa.kw["name"]
	if !ok {
		return "", nil
	}
	s, err := toString(v)
	if err != nil {
		return "", fmt.Errorf("%s: name: %w", form, err)
	}
	return s, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the sketch DSL builtins into a zygomys
// environment. The builtins add entries to b's sketch during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (vec 1 2) or (vec 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		p, err := toCoords(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec: %w", err)
		}
		return &sexpPoint{p: p}, nil
	})

	// -----------------------------------------------------------------------
	// (vertex (vec 0 0) :bulge 0.5) or (vertex 0 0 :bulge 0.5)
	// -----------------------------------------------------------------------
	env.AddFunction("vertex", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		var v curve.Vertex
		var err error
		switch len(pa.positional) {
		case 1:
			v.Position, err = toPoint(pa.positional[0])
		default:
			v.Position, err = toCoords(pa.positional)
		}
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vertex: %w", err)
		}
		if bv, ok := pa.kw["bulge"]; ok {
			f, err := toFloat64(bv)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vertex: bulge: %w", err)
			}
			v.Bulge = f
		}
		return &sexpVertex{v: v}, nil
	})

	// -----------------------------------------------------------------------
	// (line (vec 0 0) (vec 4 0) :name "wall")
	// -----------------------------------------------------------------------
	env.AddFunction("line", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("line requires exactly 2 points, got %d", len(pa.positional))
		}
		p0, err := toPoint(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: start: %w", err)
		}
		p1, err := toPoint(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: end: %w", err)
		}
		entry, err := optName("line", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		return b.add("line", entry, sketch.EntryLine, []curve.Vertex{{Position: p0}, {Position: p1}}, false)
	})

	// -----------------------------------------------------------------------
	// (arc (vec 0 0) (vec 2 0) :bulge 1)
	// (arc (vec 0 0) (vec 2 0) :through (vec 1 -1))
	// -----------------------------------------------------------------------
	env.AddFunction("arc", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("arc requires exactly 2 points, got %d", len(pa.positional))
		}
		p0, err := toPoint(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("arc: start: %w", err)
		}
		p1, err := toPoint(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("arc: end: %w", err)
		}
		entry, err := optName("arc", pa)
		if err != nil {
			return zygo.SexpNull, err
		}

		bv, hasBulge := pa.kw["bulge"]
		tv, hasThrough := pa.kw["through"]
		var a curve.Arc
		switch {
		case hasBulge && hasThrough:
			return zygo.SexpNull, fmt.Errorf("arc: give either :bulge or :through, not both")
		case hasBulge:
			bulge, err := toFloat64(bv)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("arc: bulge: %w", err)
			}
			a, err = curve.NewArc(p0, p1, bulge)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("arc: %w", err)
			}
		case hasThrough:
			mid, err := toPoint(tv)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("arc: through: %w", err)
			}
			a, err = curve.NewArcThreePoints(p0, mid, p1)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("arc: %w", err)
			}
		default:
			return zygo.SexpNull, fmt.Errorf("arc requires :bulge or :through")
		}

		e := b.sketch.AddCurve(entry, a)
		return &sexpEntryRef{id: e.ID, name: entry}, nil
	})

	// -----------------------------------------------------------------------
	// (polyline (vertex 0 0) (vertex 4 0 :bulge 0.5) (vec 4 3) :closed true)
	// (polyline (list ...) :name "outline" :closed true)
	// -----------------------------------------------------------------------
	env.AddFunction("polyline", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		vs, err := toVertices(pa.positional)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polyline: %w", err)
		}
		if len(vs) < 2 {
			return zygo.SexpNull, fmt.Errorf("polyline requires at least 2 vertices, got %d", len(vs))
		}
		closed := false
		if v, ok := pa.kw["closed"]; ok {
			closed, err = toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polyline: closed: %w", err)
			}
		}
		entry, err := optName("polyline", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		return b.add("polyline", entry, sketch.EntryPolyline, vs, closed)
	})

	// -----------------------------------------------------------------------
	// (rect (vec 0 0) (vec 4 3) :name "room")
	// -----------------------------------------------------------------------
	env.AddFunction("rect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("rect requires 2 corner points, got %d", len(pa.positional))
		}
		c0, err := toPoint(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rect: corner: %w", err)
		}
		c1, err := toPoint(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rect: corner: %w", err)
		}
		entry, err := optName("rect", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		z := c0.Z
		vs := []curve.Vertex{
			{Position: r3.Vector{X: c0.X, Y: c0.Y, Z: z}},
			{Position: r3.Vector{X: c1.X, Y: c0.Y, Z: z}},
			{Position: r3.Vector{X: c1.X, Y: c1.Y, Z: z}},
			{Position: r3.Vector{X: c0.X, Y: c1.Y, Z: z}},
		}
		return b.add("rect", entry, sketch.EntryPolyline, vs, true)
	})

	// -----------------------------------------------------------------------
	// (circle (vec 0 0) 5 :name "column")
	// -----------------------------------------------------------------------
	env.AddFunction("circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("circle requires a center and a radius")
		}
		c, err := toPoint(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: center: %w", err)
		}
		r, err := toFloat64(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: radius: %w", err)
		}
		if !(r > 0) {
			return zygo.SexpNull, fmt.Errorf("circle: radius must be positive, got %g", r)
		}
		entry, err := optName("circle", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		// Two counter-clockwise half circles.
		vs := []curve.Vertex{
			{Position: r3.Vector{X: c.X - r, Y: c.Y, Z: c.Z}, Bulge: 1},
			{Position: r3.Vector{X: c.X + r, Y: c.Y, Z: c.Z}, Bulge: 1},
		}
		return b.add("circle", entry, sketch.EntryPolyline, vs, true)
	})

	// -----------------------------------------------------------------------
	// (settings :tolerance 0.001 :min-area 0.01 :height 2700 :units :mm)
	// -----------------------------------------------------------------------
	env.AddFunction("settings", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("settings takes keyword arguments only")
		}
		st := &b.sketch.Settings
		for _, f := range []struct {
			key string
			dst *float64
		}{
			{"tolerance", &st.Tolerance},
			{"min-area", &st.MinArea},
			{"height", &st.Height},
		} {
			v, ok := pa.kw[f.key]
			if !ok {
				continue
			}
			x, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("settings: %s: %w", f.key, err)
			}
			*f.dst = x
		}
		if v, ok := pa.kw["units"]; ok {
			u, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("settings: units: %w", err)
			}
			st.Units = u
		}
		return zygo.SexpNull, nil
	})
}
