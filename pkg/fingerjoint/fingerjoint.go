// Package fingerjoint cuts interlocking finger joints between two
// intersecting solids.
//
// The shared region of the two parts is sliced along its longest edge
// into equal segments no narrower than a minimum finger width. Segments
// alternate between two buckets; each part loses one bucket, so the
// parts keep complementary fingers and slide together without gaps.
package fingerjoint

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/autolasercut/pkg/kernel"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Kernel is the subset of kernel.Kernel the generator uses.
type Kernel interface {
	Intersection(a, b kernel.Solid) kernel.Solid
	Difference(a, b kernel.Solid) kernel.Solid
	Union(a, b kernel.Solid) kernel.Solid
	Volume(s kernel.Solid) float64
	Centroid(s kernel.Solid) (r3.Vec, error)
	Edges(s kernel.Solid) ([]kernel.Edge, error)
	Split(s kernel.Solid, p kernel.Plane) ([]kernel.Solid, error)
	Components(s kernel.Solid) ([]kernel.Solid, error)
}

// ComponentPolicy decides what happens when the intersection of the two
// parts falls apart into several disjoint volumes.
type ComponentPolicy int

const (
	RejectMultiple ComponentPolicy = iota // fail with MultiComponentError
	EachComponent                         // joint each component on its own
)

func (c ComponentPolicy) String() string {
	switch c {
	case RejectMultiple:
		return "reject"
	case EachComponent:
		return "each"
	default:
		return fmt.Sprintf("ComponentPolicy(%d)", int(c))
	}
}

// ParseComponentPolicy accepts "", "reject" and "each".
func ParseComponentPolicy(s string) (ComponentPolicy, error) {
	switch s {
	case "", "reject":
		return RejectMultiple, nil
	case "each":
		return EachComponent, nil
	}
	return RejectMultiple, fmt.Errorf("fingerjoint: invalid component policy %q (must be reject or each)", s)
}

// Bucket names the two alternating segment groups.
type Bucket int

const (
	BucketA Bucket = iota // segments removed from part A (B with Swap)
	BucketB               // segments removed from part B (A with Swap)
)

func (b Bucket) String() string {
	if b == BucketA {
		return "A"
	}
	return "B"
}

// Outcome classifies a joint.
type Outcome int

const (
	NoContact   Outcome = iota // parts do not overlap; returned unchanged
	Degenerate                 // region too short to cut; one tab
	Interlocked                // fingers cut
)

func (o Outcome) String() string {
	switch o {
	case NoContact:
		return "no-contact"
	case Degenerate:
		return "degenerate"
	case Interlocked:
		return "interlocked"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Tolerance holds the numeric thresholds of the generator.
type Tolerance struct {
	Volume float64 // intersections at or below this volume are no contact
	Length float64 // edges at or below this length are ignored
	Side   float64 // side-test band, as a fraction of the edge length
}

// DefaultTolerance suits millimetre-scale parts.
var DefaultTolerance = Tolerance{Volume: 1e-9, Length: 1e-9, Side: 1e-9}

// DefaultMaxSegments bounds the number of cuts per joint.
const DefaultMaxSegments = 4096

// MaxSegmentsCeiling applies when the configured limit is zero or larger.
const MaxSegmentsCeiling = 1 << 20

// Params describes one joint.
type Params struct {
	MinFingerWidth float64
	Swap           bool
	FingerType     FingerType
	Components     ComponentPolicy
}

func (p Params) validate() error {
	w := p.MinFingerWidth
	if !(w > 0) || math.IsInf(w, 0) {
		return fmt.Errorf("%w: got %g", ErrInvalidWidth, w)
	}
	if p.FingerType < FingerAny || p.FingerType > FingerEven {
		return fmt.Errorf("fingerjoint: unknown finger type %d", int(p.FingerType))
	}
	if p.Components < RejectMultiple || p.Components > EachComponent {
		return fmt.Errorf("fingerjoint: unknown component policy %d", int(p.Components))
	}
	return nil
}

// Segment is one slice of the intersection region.
type Segment struct {
	Index  int // position along the joint axis, from the edge start
	Bucket Bucket
	Solid  kernel.Solid
}

// Plan records how one connected region was cut.
type Plan struct {
	Edge        kernel.Edge
	Axis        r3.Vec
	RawStations int
	Stations    int
	Degenerate  bool
	Buckets     [2][]Segment
}

// Segments returns all segments ordered along the axis.
func (p *Plan) Segments() []Segment {
	out := make([]Segment, 0, len(p.Buckets[0])+len(p.Buckets[1]))
	out = append(out, p.Buckets[BucketA]...)
	out = append(out, p.Buckets[BucketB]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Width returns the segment width along the axis.
func (p *Plan) Width() float64 {
	if p.Degenerate {
		return p.Edge.Length()
	}
	return p.Edge.Length() / float64(p.Stations-1)
}

// Result is the output of Cut.
type Result struct {
	A, B    kernel.Solid
	Outcome Outcome
	Plans   []Plan
}

// Segments returns the segments of bucket b across all plans.
func (r *Result) Segments(b Bucket) []Segment {
	var out []Segment
	for i := range r.Plans {
		out = append(out, r.Plans[i].Buckets[b]...)
	}
	return out
}

// SegmentCount returns the total number of segments.
func (r *Result) SegmentCount() int {
	return len(r.Segments(BucketA)) + len(r.Segments(BucketB))
}

// Generator cuts finger joints with a kernel. It holds no per-call state
// and is safe for concurrent use when its kernel is.
type Generator struct {
	k           Kernel
	log         *zap.Logger
	tol         Tolerance
	maxSegments int
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

// WithTolerance overrides DefaultTolerance.
func WithTolerance(t Tolerance) Option {
	return func(g *Generator) { g.tol = t }
}

// WithMaxSegments overrides DefaultMaxSegments. Zero lifts the limit to
// MaxSegmentsCeiling.
func WithMaxSegments(n int) Option {
	return func(g *Generator) { g.maxSegments = n }
}

// New returns a Generator backed by k.
func New(k Kernel, opts ...Option) *Generator {
	g := &Generator{
		k:           k,
		log:         zap.NewNop(),
		tol:         DefaultTolerance,
		maxSegments: DefaultMaxSegments,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate cuts a joint between a and b and returns the two new parts.
func Generate(k Kernel, a, b kernel.Solid, p Params) (kernel.Solid, kernel.Solid, error) {
	res, err := New(k).Cut(a, b, p)
	if err != nil {
		return nil, nil, err
	}
	return res.A, res.B, nil
}

// Cut computes the joint between a and b. Parts that do not overlap are
// returned unchanged with outcome NoContact. A bucket that receives no
// segment leaves its part as the identical input value.
func (g *Generator) Cut(a, b kernel.Solid, p Params) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	inter := g.k.Intersection(a, b)
	vol := g.k.Volume(inter)
	if vol <= g.tol.Volume {
		g.log.Debug("parts do not touch", zap.Float64("volume", vol))
		return &Result{A: a, B: b, Outcome: NoContact}, nil
	}

	regions, err := g.regions(inter, p.Components)
	if err != nil {
		return nil, err
	}

	res := &Result{Outcome: Degenerate}
	var cuts [2][]kernel.Solid
	for i, region := range regions {
		plan, err := g.plan(region, p)
		if err != nil {
			if len(regions) > 1 {
				return nil, fmt.Errorf("fingerjoint: component %d: %w", i, err)
			}
			return nil, err
		}
		for _, bk := range [2]Bucket{BucketA, BucketB} {
			for _, s := range plan.Buckets[bk] {
				cuts[bk] = append(cuts[bk], s.Solid)
			}
		}
		if !plan.Degenerate {
			res.Outcome = Interlocked
		}
		res.Plans = append(res.Plans, plan)
	}

	fromA, fromB := cuts[BucketA], cuts[BucketB]
	if p.Swap {
		fromA, fromB = fromB, fromA
	}
	res.A = g.subtract(a, fromA)
	res.B = g.subtract(b, fromB)

	g.log.Debug("finger joint cut",
		zap.Stringer("outcome", res.Outcome),
		zap.Int("regions", len(regions)),
		zap.Int("segments", res.SegmentCount()),
		zap.Bool("swap", p.Swap),
	)
	return res, nil
}

// regions applies the component policy to the intersection.
func (g *Generator) regions(inter kernel.Solid, policy ComponentPolicy) ([]kernel.Solid, error) {
	comps, err := g.k.Components(inter)
	if err != nil {
		return nil, fmt.Errorf("fingerjoint: components: %w", err)
	}
	if len(comps) <= 1 {
		return []kernel.Solid{inter}, nil
	}
	var kept []kernel.Solid
	for _, c := range comps {
		if g.k.Volume(c) > g.tol.Volume {
			kept = append(kept, c)
		}
	}
	switch {
	case len(kept) == 0:
		return []kernel.Solid{inter}, nil
	case len(kept) > 1 && policy == RejectMultiple:
		return nil, &MultiComponentError{Count: len(kept)}
	}
	return kept, nil
}

// plan slices one connected region along its dominant edge.
func (g *Generator) plan(region kernel.Solid, p Params) (Plan, error) {
	edges, err := g.k.Edges(region)
	if err != nil {
		return Plan{}, fmt.Errorf("fingerjoint: edges: %w", err)
	}
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Length() > edges[j].Length() })
	if len(edges) == 0 || edges[0].Length() <= g.tol.Length {
		return Plan{}, ErrNoDominantEdge
	}

	edge := edges[0]
	length := edge.Length()
	limit := g.maxSegments
	if limit <= 0 || limit > MaxSegmentsCeiling {
		limit = MaxSegmentsCeiling
	}
	if length/p.MinFingerWidth > float64(limit)+1 {
		return Plan{}, fmt.Errorf("%w: edge %g / width %g exceeds %d",
			ErrTooManySegments, length, p.MinFingerWidth, limit)
	}

	plan := Plan{
		Edge:        edge,
		Axis:        edge.Direction(),
		RawStations: RawStations(length, p.MinFingerWidth),
	}
	plan.Stations = AdjustStations(plan.RawStations, p.FingerType)

	g.log.Debug("dominant edge",
		zap.Float64("length", length),
		zap.Int("raw_stations", plan.RawStations),
		zap.Int("stations", plan.Stations),
		zap.Stringer("finger_type", p.FingerType),
	)

	// Two stations are the region's own ends: nothing to cut.
	if plan.Stations < 3 {
		plan.Degenerate = true
		plan.Buckets[BucketA] = []Segment{{Index: 0, Bucket: BucketA, Solid: region}}
		return plan, nil
	}
	if plan.Stations-1 > limit {
		return Plan{}, fmt.Errorf("%w: %d exceeds %d", ErrTooManySegments, plan.Stations-1, limit)
	}

	stations := floats.Span(make([]float64, plan.Stations), 0, 1)
	band := g.tol.Side * length
	remaining := region
	cur := BucketA
	for i, t := range stations[1 : len(stations)-1] {
		plane := kernel.NewPlane(edge.At(t), plan.Axis)
		pieces, err := g.k.Split(remaining, plane)
		if err != nil {
			return Plan{}, fmt.Errorf("fingerjoint: split at station %d: %w", i+1, err)
		}
		below, above, err := g.sides(pieces, plane, band)
		if err != nil {
			return Plan{}, fmt.Errorf("fingerjoint: split at station %d: %w", i+1, err)
		}
		plan.Buckets[cur] = append(plan.Buckets[cur], Segment{Index: i, Bucket: cur, Solid: below})
		remaining = above
		cur ^= 1
	}
	plan.Buckets[cur] = append(plan.Buckets[cur], Segment{Index: plan.Stations - 2, Bucket: cur, Solid: remaining})
	return plan, nil
}

// sides sorts split pieces into those behind and in front of the plane,
// judged by the local z of each piece's centroid. A piece within band of
// the plane takes the side opposite its sibling when there are exactly
// two pieces; otherwise it is an error.
func (g *Generator) sides(pieces []kernel.Solid, plane kernel.Plane, band float64) (below, above kernel.Solid, err error) {
	if len(pieces) < 2 {
		return nil, nil, fmt.Errorf("%w: %d piece(s)", ErrSplitFailed, len(pieces))
	}
	side := make([]int, len(pieces))
	for i, p := range pieces {
		c, err := g.k.Centroid(p)
		if err != nil {
			return nil, nil, fmt.Errorf("centroid of piece %d: %w", i, err)
		}
		switch z := plane.ToLocal(c).Z; {
		case z > band:
			side[i] = 1
		case z < -band:
			side[i] = -1
		}
	}
	if len(pieces) == 2 {
		switch {
		case side[0] == 0 && side[1] == 0:
			return nil, nil, ErrAmbiguousSide
		case side[0] == 0:
			side[0] = -side[1]
		case side[1] == 0:
			side[1] = -side[0]
		}
	}

	var neg, pos []kernel.Solid
	for i, p := range pieces {
		switch side[i] {
		case -1:
			neg = append(neg, p)
		case 1:
			pos = append(pos, p)
		default:
			return nil, nil, ErrAmbiguousSide
		}
	}
	if len(neg) == 0 || len(pos) == 0 {
		return nil, nil, fmt.Errorf("%w: all pieces on one side", ErrSplitFailed)
	}
	return g.union(neg), g.union(pos), nil
}

func (g *Generator) union(solids []kernel.Solid) kernel.Solid {
	acc := solids[0]
	for _, s := range solids[1:] {
		acc = g.k.Union(acc, s)
	}
	return acc
}

// subtract removes the union of cuts from part.
func (g *Generator) subtract(part kernel.Solid, cuts []kernel.Solid) kernel.Solid {
	if len(cuts) == 0 {
		return part
	}
	return g.k.Difference(part, g.union(cuts))
}
