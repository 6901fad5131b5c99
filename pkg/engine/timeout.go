package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chazu/autolasercut/pkg/graph"
)

// DefaultTimeout bounds one evaluation unless WithTimeout says otherwise.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs longer than the engine
	// timeout.
	ErrTimeout = errors.New("engine: evaluation timed out")

	// ErrSuperseded is returned to a caller whose evaluation finished after
	// a newer one had started on the same engine.
	ErrSuperseded = errors.New("engine: evaluation superseded by a newer request")
)

// WithTimeout sets the evaluation time limit. Non-positive values keep
// DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// run is what the sandbox goroutine hands back.
type run struct {
	graph *graph.DesignGraph
	errs  []EvalError
	err   error
}

// start bumps the generation and returns the new value.
func (e *Engine) start() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	return e.generation
}

func (e *Engine) current() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// await blocks until the run tagged gen reports, the timeout fires or ctx
// ends. A sandbox left running after a timeout is abandoned; its result
// lands in the buffered channel and is never read.
func (e *Engine) await(ctx context.Context, ch <-chan run, gen uint64) (*graph.DesignGraph, []EvalError, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		if gen != e.current() {
			return nil, nil, ErrSuperseded
		}
		return r.graph, r.errs, r.err
	case <-timer.C:
		e.log.Warn("evaluation timed out", zap.Duration("timeout", e.timeout), zap.Uint64("generation", gen))
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("engine: %w", ctx.Err())
	}
}
