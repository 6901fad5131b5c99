// Package assemble walks a design graph, builds every placed sheet with a
// geometry kernel and cuts the declared finger joints between them. One
// solid is produced per part.
package assemble

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/autolasercut/pkg/align"
	"github.com/chazu/autolasercut/pkg/fingerjoint"
	"github.com/chazu/autolasercut/pkg/graph"
	"github.com/chazu/autolasercut/pkg/kernel"
)

// Part is one built sheet.
type Part struct {
	Name  string
	Node  graph.NodeID
	Solid kernel.Solid

	// Blank is the sheet before any joint was cut.
	Blank kernel.Solid

	// placement maps part-local points to world space.
	placement sdf.M44
}

// World maps a point in the part's own frame to world space.
func (p *Part) World(local graph.Vec3) graph.Vec3 {
	w := p.placement.MulPosition(v3.Vec{X: local.X, Y: local.Y, Z: local.Z})
	return graph.Vec3{X: w.X, Y: w.Y, Z: w.Z}
}

// Anchor is a named point resolved to world space.
type Anchor struct {
	Part  string
	Name  string
	Local graph.Vec3
	World graph.Vec3
}

// Result is the output of Assemble.
type Result struct {
	Parts   []*Part
	Joints  []Joint
	Anchors []Anchor
	Waves   int
}

// Part returns the part with the given name, or nil.
func (r *Result) Part(name string) *Part {
	for _, p := range r.Parts {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Assembler builds parts and cuts joints. It is safe for concurrent use
// when its kernel is.
type Assembler struct {
	k           kernel.Kernel
	log         *zap.Logger
	workers     int
	tol         fingerjoint.Tolerance
	maxSegments int
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.log = l
		}
	}
}

// WithWorkers bounds the number of joints cut at once. Values below one
// mean runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(a *Assembler) { a.workers = n }
}

// WithTolerance sets the generator tolerances.
func WithTolerance(t fingerjoint.Tolerance) Option {
	return func(a *Assembler) { a.tol = t }
}

// WithMaxSegments sets the per-joint segment limit.
func WithMaxSegments(n int) Option {
	return func(a *Assembler) { a.maxSegments = n }
}

// New returns an Assembler backed by k.
func New(k kernel.Kernel, opts ...Option) *Assembler {
	a := &Assembler{
		k:           k,
		log:         zap.NewNop(),
		tol:         fingerjoint.DefaultTolerance,
		maxSegments: fingerjoint.DefaultMaxSegments,
	}
	for _, o := range opts {
		o(a)
	}
	if a.workers < 1 {
		a.workers = runtime.NumCPU()
	}
	return a
}

// Assemble builds every placed part of g and cuts its joints in
// declaration order. The graph is read-only and never mutated.
func (a *Assembler) Assemble(ctx context.Context, g *graph.DesignGraph) (*Result, error) {
	if g == nil {
		return &Result{}, nil
	}

	b := &builder{k: a.k, g: g, byNode: make(map[graph.NodeID]*Part)}
	if len(g.Roots) == 0 {
		// Loose parts: build each one where it was defined.
		for _, n := range g.Parts() {
			if err := b.walk(n, nil); err != nil {
				return nil, fmt.Errorf("assemble: %w", err)
			}
		}
	} else {
		nested := make(map[graph.NodeID]bool)
		for _, n := range g.Nodes {
			for _, c := range n.Children {
				nested[c] = true
			}
		}
		for _, rootID := range g.Roots {
			root := g.Get(rootID)
			if root == nil || nested[rootID] {
				// Nested assemblies are reached through their parent.
				continue
			}
			if err := b.walk(root, nil); err != nil {
				return nil, fmt.Errorf("assemble: error walking root %s: %w", rootID.Short(), err)
			}
		}
	}
	a.log.Info("parts built", zap.Int("parts", len(b.parts)))

	res := &Result{Parts: b.parts}
	joints, waves, err := a.schedule(g, b.byNode)
	if err != nil {
		return nil, err
	}
	res.Waves = len(waves)
	if err := a.run(ctx, waves); err != nil {
		return nil, err
	}
	for _, j := range joints {
		res.Joints = append(res.Joints, j.report)
	}

	for _, n := range g.Anchors() {
		ad := n.Data.(graph.AnchorData)
		p, ok := b.byNode[ad.Part]
		if !ok {
			return nil, fmt.Errorf("assemble: anchor %q: part %s is not placed", ad.Name, ad.Part.Short())
		}
		res.Anchors = append(res.Anchors, Anchor{Part: p.Name, Name: ad.Name, Local: ad.At, World: p.World(ad.At)})
	}
	return res, nil
}

// ---------------------------------------------------------------------------
// Graph walk
// ---------------------------------------------------------------------------

// builder carries the state of one walk.
type builder struct {
	k      kernel.Kernel
	g      *graph.DesignGraph
	parts  []*Part
	byNode map[graph.NodeID]*Part
}

// walk recursively traverses a node and its children. stack holds the
// transforms above n, outermost first.
func (b *builder) walk(n *graph.Node, stack []graph.TransformData) error {
	switch n.Kind {
	case graph.NodePrimitive:
		return b.handlePrimitive(n, stack)

	case graph.NodeTransform:
		td, ok := n.Data.(graph.TransformData)
		if !ok {
			return fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
		}
		stack = append(stack[:len(stack):len(stack)], td)
		return b.handleChildren(n, stack)

	case graph.NodeGroup:
		return b.handleChildren(n, stack)

	case graph.NodeJoin, graph.NodeAnchor:
		// Cut and resolved after every part exists.
		return nil

	default:
		return fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

func (b *builder) handleChildren(n *graph.Node, stack []graph.TransformData) error {
	for _, child := range b.g.Children(n) {
		if err := b.walk(child, stack); err != nil {
			return err
		}
	}
	return nil
}

// handlePrimitive builds the sheet and applies the placements around it,
// innermost first. Each placement aligns, then rotates, then translates.
func (b *builder) handlePrimitive(n *graph.Node, stack []graph.TransformData) error {
	bd, ok := n.Data.(graph.BoardData)
	if !ok {
		return fmt.Errorf("primitive node %s has unsupported data type %T", n.ID.Short(), n.Data)
	}
	name := n.DisplayName()
	if _, dup := b.byNode[n.ID]; dup {
		return fmt.Errorf("part %q is placed more than once", name)
	}

	d := bd.Dimensions
	solid := b.k.Box(d.X, d.Y, d.Z)
	m := sdf.Identity3d()

	for i := len(stack) - 1; i >= 0; i-- {
		td := stack[i]
		if td.Align != "" {
			t, err := align.Parse(td.Align)
			if err != nil {
				return fmt.Errorf("part %q: %w", name, err)
			}
			lo, hi := kernel.Bounds(solid)
			off := t.Offset(lo, hi)
			solid = b.k.Translate(solid, off.X, off.Y, off.Z)
			m = sdf.Translate3d(toV3(off)).Mul(m)
		}
		if r := td.Rotation; r != nil && !r.IsZero() {
			var err error
			if solid, err = b.k.Rotate(solid, r.X, r.Y, r.Z); err != nil {
				return fmt.Errorf("part %q: %w", name, err)
			}
			m = rotation(*r).Mul(m)
		}
		if t := td.Translation; t != nil && !t.IsZero() {
			solid = b.k.Translate(solid, t.X, t.Y, t.Z)
			m = sdf.Translate3d(v3.Vec{X: t.X, Y: t.Y, Z: t.Z}).Mul(m)
		}
	}

	p := &Part{Name: name, Node: n.ID, Solid: solid, Blank: solid, placement: m}
	b.parts = append(b.parts, p)
	b.byNode[n.ID] = p
	return nil
}

// rotation matches kernel.Kernel.Rotate: X first, then Y, then Z.
func rotation(deg graph.Vec3) sdf.M44 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	return sdf.RotateZ(rad(deg.Z)).Mul(sdf.RotateY(rad(deg.Y))).Mul(sdf.RotateX(rad(deg.X)))
}

func toV3(v r3.Vec) v3.Vec {
	return v3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}
