// Package sketch defines the curve network produced by evaluating a sketch
// program: named entries of lines, arcs and polylines plus the settings the
// topology pipeline runs with.
package sketch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/plinth/pkg/curve"
	"github.com/chazu/plinth/pkg/geom"
	"github.com/chazu/plinth/pkg/region"
)

// DefaultUnits is the only length unit sketches are written in today.
const DefaultUnits = "mm"

// EntryID is a content-addressed identifier for sketch entries.
type EntryID string

// NewEntryID derives an ID from the canonical text of an entry.
func NewEntryID(canonical string) EntryID {
	sum := sha256.Sum256([]byte(canonical))
	return EntryID(hex.EncodeToString(sum[:]))
}

// IsZero reports whether the ID is unset.
func (id EntryID) IsZero() bool { return id == "" }

// Short returns the first 8 characters of the ID.
func (id EntryID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

// EntryKind tags the DSL form an entry came from.
type EntryKind int

const (
	EntryLine     EntryKind = iota // single straight segment
	EntryArc                       // single circular arc
	EntryPolyline                  // vertex sequence, possibly closed
)

func (k EntryKind) String() string {
	switch k {
	case EntryLine:
		return "line"
	case EntryArc:
		return "arc"
	case EntryPolyline:
		return "polyline"
	default:
		return "unknown"
	}
}

// Settings are sketch-wide parameters set by the (settings ...) form.
type Settings struct {
	Tolerance float64 `json:"tolerance"` // point coincidence distance
	MinArea   float64 `json:"min_area"`  // smallest region kept
	Height    float64 `json:"height"`    // extrusion height, 0 = flat faces
	Units     string  `json:"units"`     // "mm" (only option for now)
}

// DefaultSettings returns the settings a fresh sketch starts with.
func DefaultSettings() Settings {
	return Settings{
		Tolerance: geom.Confusion,
		MinArea:   region.DefaultMinArea,
		Units:     DefaultUnits,
	}
}

// Entry is one drawn element. Curves holds the geometry built from
// Vertices; edges that could not be built are missing from it.
type Entry struct {
	ID       EntryID        `json:"id"`
	Name     string         `json:"name,omitempty"`
	Kind     EntryKind      `json:"kind"`
	Vertices []curve.Vertex `json:"vertices"`
	Closed   bool           `json:"closed"`
	Curves   []curve.Curve  `json:"-"`
}

// Sketch is the immutable result of one evaluation. Each evaluation
// produces a new sketch.
type Sketch struct {
	Entries   []*Entry       `json:"entries"`
	NameIndex map[string]int `json:"name_index"`
	Settings  Settings       `json:"settings"`
	Version   uint64         `json:"version"`
}

// New creates an empty sketch with default settings.
func New() *Sketch {
	return &Sketch{
		NameIndex: make(map[string]int),
		Settings:  DefaultSettings(),
	}
}

// Add builds the curves of vs and appends them as a new entry. Edges that
// fail to build are reported in err; the entry is added with the rest.
// An entry that yields no curve at all is not added.
func (s *Sketch) Add(name string, kind EntryKind, vs []curve.Vertex, closed bool) (*Entry, error) {
	curves, err := curve.FromVertices(vs, closed, s.Settings.Tolerance)
	if len(curves) == 0 {
		if err == nil {
			err = curve.ErrDegenerate
		}
		return nil, fmt.Errorf("sketch: %s %q: %w", kind, name, err)
	}
	e := &Entry{
		ID:       NewEntryID(canonical(kind, vs, closed)),
		Name:     name,
		Kind:     kind,
		Vertices: vs,
		Closed:   closed,
		Curves:   curves,
	}
	s.AddEntry(e)
	if err != nil {
		return e, fmt.Errorf("sketch: %s %q: %w", kind, name, err)
	}
	return e, nil
}

// AddCurve appends a single curve as its own entry.
func (s *Sketch) AddCurve(name string, c curve.Curve) *Entry {
	kind := EntryLine
	if c.Kind() == curve.KindArc {
		kind = EntryArc
	}
	vs := []curve.Vertex{{Position: c.Start(), Bulge: c.Bulge()}, {Position: c.End()}}
	e := &Entry{
		ID:       NewEntryID(canonical(kind, vs, false)),
		Name:     name,
		Kind:     kind,
		Vertices: vs,
		Curves:   []curve.Curve{c},
	}
	s.AddEntry(e)
	return e
}

// AddEntry appends e. It does not check for duplicates; a repeated name
// points at the latest entry.
func (s *Sketch) AddEntry(e *Entry) {
	s.Entries = append(s.Entries, e)
	if e.Name != "" {
		s.NameIndex[e.Name] = len(s.Entries) - 1
	}
}

// Lookup returns the entry with the given name, or nil.
func (s *Sketch) Lookup(name string) *Entry {
	i, ok := s.NameIndex[name]
	if !ok || i < 0 || i >= len(s.Entries) {
		return nil
	}
	return s.Entries[i]
}

// MustLookup returns the entry with the given name, or panics.
func (s *Sketch) MustLookup(name string) *Entry {
	e := s.Lookup(name)
	if e == nil {
		panic(fmt.Sprintf("sketch: no entry named %q", name))
	}
	return e
}

// Curves returns the curves of all entries in entry order.
func (s *Sketch) Curves() []curve.Curve {
	var out []curve.Curve
	for _, e := range s.Entries {
		out = append(out, e.Curves...)
	}
	return out
}

// Owners maps each index of Curves() to the index of its entry.
func (s *Sketch) Owners() []int {
	var out []int
	for i, e := range s.Entries {
		for range e.Curves {
			out = append(out, i)
		}
	}
	return out
}

// EntryCount returns the number of entries.
func (s *Sketch) EntryCount() int {
	return len(s.Entries)
}

func canonical(kind EntryKind, vs []curve.Vertex, closed bool) string {
	var b strings.Builder
	b.WriteString(kind.String())
	for _, v := range vs {
		b.WriteByte('|')
		for _, f := range [...]float64{v.Position.X, v.Position.Y, v.Position.Z, v.Bulge} {
			b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
			b.WriteByte(',')
		}
	}
	if closed {
		b.WriteString("|closed")
	}
	return b.String()
}
