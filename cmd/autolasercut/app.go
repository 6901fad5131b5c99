package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chazu/autolasercut/pkg/assemble"
	"github.com/chazu/autolasercut/pkg/config"
	"github.com/chazu/autolasercut/pkg/engine"
	"github.com/chazu/autolasercut/pkg/export"
	"github.com/chazu/autolasercut/pkg/graph"
	"github.com/chazu/autolasercut/pkg/kernel"
	"github.com/chazu/autolasercut/pkg/kernel/boxset"
	"github.com/chazu/autolasercut/pkg/kernel/sdfx"
	"github.com/chazu/autolasercut/pkg/report"
)

// App runs the script pipeline: evaluate, validate, assemble, export.
type App struct {
	cfg       *config.Config
	log       *zap.Logger
	engine    *engine.Engine
	kernel    kernel.Kernel
	assembler *assemble.Assembler
}

// Diagnostic is an evaluation or validation finding.
type Diagnostic struct {
	Line    int    `json:"line,omitempty"`
	Col     int    `json:"col,omitempty"`
	Node    string `json:"node,omitempty"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	switch {
	case d.Line > 0:
		return fmt.Sprintf("line %d: %s", d.Line, d.Message)
	case d.Node != "":
		return fmt.Sprintf("%s: %s", d.Node, d.Message)
	}
	return d.Message
}

// EvalResult is the outcome of one pipeline run. Graph and Assembly are
// nil when an earlier stage failed.
type EvalResult struct {
	Graph    *graph.DesignGraph
	Assembly *assemble.Result
	Report   *report.Report
	Errors   []Diagnostic
	Warnings []Diagnostic
}

// OK reports whether the run produced no errors.
func (r *EvalResult) OK() bool {
	return len(r.Errors) == 0
}

// newKernel returns the kernel named by the configuration.
func newKernel(cfg *config.Config) (kernel.Kernel, error) {
	switch cfg.Kernel {
	case config.KernelBoxset:
		return boxset.New(), nil
	case config.KernelSdfx:
		return sdfx.New(sdfx.WithSampleCells(cfg.SampleCells), sdfx.WithMeshCells(cfg.MeshCells)), nil
	}
	return nil, fmt.Errorf("unknown kernel %q", cfg.Kernel)
}

// NewApp wires an engine, kernel and assembler from cfg.
func NewApp(cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	k, err := newKernel(cfg)
	if err != nil {
		return nil, err
	}
	ft, cp := cfg.JointDefaults()
	return &App{
		cfg: cfg,
		log: log,
		engine: engine.NewEngine(
			engine.WithMinFingerWidth(cfg.MinFingerWidth),
			engine.WithJointDefaults(ft, cp),
			engine.WithTimeout(cfg.EvalTimeout),
			engine.WithLogger(log),
		),
		kernel: k,
		assembler: assemble.New(k,
			assemble.WithLogger(log),
			assemble.WithWorkers(cfg.Workers),
			assemble.WithTolerance(cfg.GeneratorTolerance()),
			assemble.WithMaxSegments(cfg.MaxSegments),
		),
	}, nil
}

// Check evaluates and validates source without building any geometry.
func (a *App) Check(ctx context.Context, source string) *EvalResult {
	result := &EvalResult{}

	// Step 1: Evaluate the Lisp source into a design graph.
	g, evalErrs, err := a.engine.EvaluateContext(ctx, source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		a.log.Error("evaluation failed", zap.Error(err))
		result.Errors = append(result.Errors, Diagnostic{Message: err.Error()})
		return result
	}
	for _, e := range evalErrs {
		result.Errors = append(result.Errors, Diagnostic{Line: e.Line, Col: e.Col, Message: e.Message})
	}
	if len(evalErrs) > 0 {
		return result
	}
	result.Graph = g

	// Step 2: Validate the graph.
	v := graph.ValidateAll(g)
	for _, e := range v.Errors {
		result.Errors = append(result.Errors, Diagnostic{Node: nodeName(g, e.NodeID), Message: e.Message})
	}
	for _, w := range v.Warnings {
		result.Warnings = append(result.Warnings, Diagnostic{Node: nodeName(g, w.NodeID), Message: w.Message})
	}
	return result
}

// Evaluate runs Check and then assembles the parts and cuts every joint.
func (a *App) Evaluate(ctx context.Context, source string) *EvalResult {
	result := a.Check(ctx, source)
	if !result.OK() {
		return result
	}

	// Step 3: Build the parts and cut the joints.
	res, err := a.assembler.Assemble(ctx, result.Graph)
	if err != nil {
		a.log.Error("assembly failed", zap.Error(err))
		result.Errors = append(result.Errors, Diagnostic{Message: err.Error()})
		return result
	}
	result.Assembly = res

	// Step 4: Summarise.
	result.Report = report.FromResult(a.kernel, res)
	result.Report.Kernel = a.cfg.Kernel
	for _, w := range result.Warnings {
		result.Report.Warnings = append(result.Report.Warnings, w.String())
	}
	return result
}

// Export writes the assembled parts into dir in the configured formats.
func (a *App) Export(result *EvalResult, dir string) ([]string, error) {
	if result.Assembly == nil {
		return nil, fmt.Errorf("nothing to export")
	}
	ex := export.New(a.kernel, dir, a.cfg.Export,
		export.WithMeshCells(a.cfg.MeshCells),
		export.WithLogger(a.log),
	)
	files, err := ex.Export(result.Assembly.Parts)
	if result.Report != nil {
		result.Report.Files = files
	}
	return files, err
}

func nodeName(g *graph.DesignGraph, id graph.NodeID) string {
	if id.IsZero() {
		return ""
	}
	if n := g.Get(id); n != nil {
		return n.DisplayName()
	}
	return id.Short()
}
