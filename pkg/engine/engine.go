// Package engine provides the Lisp evaluation engine for sketches. It wraps
// zygomys in a sandboxed environment and produces a sketch.Sketch from user
// source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/plinth/pkg/sketch"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning represents a non-fatal warning produced during evaluation,
// for example an arc edge of a polyline that could not be built.
type EvalWarning struct {
	Line    int            `json:"line"`
	Col     int            `json:"col"`
	Message string         `json:"message"`
	EntryID sketch.EntryID `json:"entry_id,omitempty"`
}

// EvalResult bundles the full output of an evaluation.
type EvalResult struct {
	Sketch   *sketch.Sketch
	Errors   []EvalError
	Warnings []EvalWarning
}

// Engine wraps the zygomys interpreter for sketch evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	// Timeout bounds a single evaluation; zero means EvalTimeout.
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{Timeout: EvalTimeout}
}

// Evaluate takes Lisp source code and produces a new Sketch.
//
// Return semantics:
//   - On success: returns sketch + nil errors + nil error
//   - On parse/eval failure: returns nil sketch + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*sketch.Sketch, []EvalError, error) {
	res, err := e.EvaluateAll(source)
	return res.Sketch, res.Errors, err
}

// EvaluateAll is Evaluate that also returns the warnings collected while
// building the sketch.
func (e *Engine) EvaluateAll(source string) (EvalResult, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	timeout := e.Timeout
	e.mu.Unlock()
	if timeout <= 0 {
		timeout = EvalTimeout
	}

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
		}()

		ch <- e.evaluate(source, gen)
	}()

	r, err := waitWithTimeout(ch, gen, &e.mu, &e.generation, timeout)
	if err != nil {
		return EvalResult{}, err
	}
	return EvalResult{Sketch: r.sketch, Errors: r.errors, Warnings: r.warnings}, r.err
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string, gen uint64) evalResult {
	s := sketch.New()
	s.Version = gen

	// Empty source is a valid program that produces an empty sketch.
	if strings.TrimSpace(source) == "" {
		return evalResult{sketch: s}
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := &builder{sketch: s}
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return evalResult{errors: parseZygomysError(err)}
	}
	if _, err := env.Run(); err != nil {
		return evalResult{errors: parseZygomysError(err)}
	}

	return evalResult{sketch: s, warnings: b.warnings}
}

// linePattern matches zygomys error messages that include "Error on line N: ...".
// The detail may span several lines.
var linePattern = regexp.MustCompile(`(?is)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
