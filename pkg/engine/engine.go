// Package engine evaluates part scripts. It wraps zygomys in a sandboxed
// environment whose builtins (sheets, placements, finger joints, anchors,
// assemblies) populate a DesignGraph.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/autolasercut/pkg/fingerjoint"
	"github.com/chazu/autolasercut/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
	"go.uber.org/zap"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	minFingerWidth float64
	fingerType     fingerjoint.FingerType
	components     fingerjoint.ComponentPolicy
	timeout        time.Duration
	log            *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMinFingerWidth sets the graph default used by joints that give no
// :min-width. A script's (defaults :min-width ...) still overrides it.
func WithMinFingerWidth(w float64) Option {
	return func(e *Engine) {
		if w > 0 {
			e.minFingerWidth = w
		}
	}
}

// WithJointDefaults sets the finger type and component policy of joints
// that give no :type or :components.
func WithJointDefaults(ft fingerjoint.FingerType, cp fingerjoint.ComponentPolicy) Option {
	return func(e *Engine) {
		e.fingerType = ft
		e.components = cp
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		minFingerWidth: graph.DefaultMinFingerWidth,
		timeout:        DefaultTimeout,
		log:            zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// newGraph returns an empty graph carrying the engine defaults.
func (e *Engine) newGraph() *graph.DesignGraph {
	g := graph.New()
	g.Defaults.MinFingerWidth = e.minFingerWidth
	g.Defaults.FingerType = e.fingerType
	g.Defaults.Components = e.components
	return g
}

// Evaluate is EvaluateContext without cancellation.
func (e *Engine) Evaluate(source string) (*graph.DesignGraph, []EvalError, error) {
	return e.EvaluateContext(context.Background(), source)
}

// EvaluateContext runs source in a fresh zygomys sandbox and returns the
// graph it built.
//
// Return semantics:
//   - On success: returns graph + nil errors + nil error
//   - On parse/eval failure: returns nil graph + eval errors + nil error
//   - On fatal failure: returns nil + nil + error. That covers ErrTimeout,
//     ErrSuperseded, a cancelled ctx and a panic inside a builtin.
func (e *Engine) EvaluateContext(ctx context.Context, source string) (*graph.DesignGraph, []EvalError, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("engine: %w", err)
	}
	gen := e.start()
	ch := make(chan run, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- run{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		g, evalErrs, err := e.evaluate(source)
		ch <- run{graph: g, errs: evalErrs, err: err}
	}()

	return e.await(ctx, ch, gen)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*graph.DesignGraph, []EvalError, error) {
	// Empty source is a valid program that produces an empty graph.
	if strings.TrimSpace(source) == "" {
		return e.newGraph(), nil, nil
	}

	// Create a fresh sandboxed zygomys environment.
	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	g := e.newGraph()
	registerBuiltins(env, newBuilder(g))

	// Load and compile the source string into bytecode.
	err := env.LoadString(preprocessSource(source))
	if err != nil {
		evalErrs := parseZygomysError(err)
		return nil, evalErrs, nil
	}

	// Execute the compiled bytecode.
	_, err = env.Run()
	if err != nil {
		evalErrs := parseZygomysError(err)
		return nil, evalErrs, nil
	}

	e.log.Debug("script evaluated",
		zap.Int("nodes", g.NodeCount()),
		zap.Int("joins", len(g.JoinOrder)),
		zap.Int("roots", len(g.Roots)),
	)
	return g, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// Try to extract line numbers from the error message.
	// zygomys formats parse errors as "Error on line N: <details>\n"
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		detail := strings.TrimSpace(m[2])
		return []EvalError{{
			Line:    line,
			Col:     0,
			Message: detail,
		}}
	}

	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		detail := strings.TrimSpace(m[2])
		return []EvalError{{
			Line:    line,
			Col:     0,
			Message: detail,
		}}
	}

	// Fallback: no line info available.
	return []EvalError{{
		Line:    0,
		Col:     0,
		Message: strings.TrimSpace(msg),
	}}
}
