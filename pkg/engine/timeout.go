package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/plinth/pkg/sketch"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when an evaluation runs past its limit.
	ErrTimeout = errors.New("engine: evaluation timed out")

	// ErrSuperseded is returned for an evaluation that finished after a
	// newer one was started.
	ErrSuperseded = errors.New("engine: evaluation superseded by newer request")

	// ErrPanic wraps a panic raised while evaluating user code.
	ErrPanic = errors.New("engine: panic during evaluation")
)

// evalResult is the internal type used to pass evaluation results through
// channels.
type evalResult struct {
	sketch   *sketch.Sketch
	errors   []EvalError
	warnings []EvalWarning
	err      error
}

// waitWithTimeout waits for a result from ch, but returns ErrTimeout if the
// evaluation exceeds timeout. It uses a generation counter to discard stale
// results from previous evaluations.
//
// On timeout, the goroutine may still be running; the generation check
// ensures its result is discarded when it eventually completes.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
	timeout time.Duration,
) (evalResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return evalResult{}, ErrSuperseded
		}
		return res, nil

	case <-timer.C:
		return evalResult{}, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}
