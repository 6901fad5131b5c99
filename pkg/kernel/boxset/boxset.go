// Package boxset implements kernel.Kernel exactly for solids built from
// axis-aligned boxes. A solid is a set of pairwise-disjoint boxes, so
// booleans, plane splits, volumes and centroids carry no sampling error.
// Rotations are limited to quarter turns and cylinders are not supported.
//
// Sheet-material designs (laser-cut panels placed at right angles) are
// fully representable, which makes this the backend of choice for
// finger-joint planning and for exact tests.
package boxset

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/autolasercut/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*BoxKernel)(nil)

// Solid is a union of pairwise-disjoint axis-aligned boxes.
type Solid struct {
	boxes []Box
}

// FromBoxes builds a solid from possibly overlapping boxes.
func FromBoxes(boxes ...Box) *Solid {
	var acc []Box
	for _, b := range boxes {
		if b.Degenerate() {
			continue
		}
		acc = append(acc, subtractAll([]Box{b}, acc)...)
	}
	return newSolid(acc)
}

func newSolid(boxes []Box) *Solid {
	return &Solid{boxes: coalesce(boxes)}
}

// Boxes returns a copy of the solid's boxes in canonical order.
func (s *Solid) Boxes() []Box {
	return append([]Box(nil), s.boxes...)
}

// Empty reports whether the solid has no volume.
func (s *Solid) Empty() bool {
	return len(s.boxes) == 0
}

// BoundingBox returns the axis-aligned bounding box. An empty solid
// reports a zero box at the origin.
func (s *Solid) BoundingBox() (min, max [3]float64) {
	if len(s.boxes) == 0 {
		return min, max
	}
	bb := s.boxes[0]
	for _, b := range s.boxes[1:] {
		bb = bb.Extend(b)
	}
	return bb.Min, bb.Max
}

// SDF3 converts the solid into an sdfx union of boxes.
func (s *Solid) SDF3() (sdf.SDF3, error) {
	if len(s.boxes) == 0 {
		return nil, kernel.ErrEmpty
	}
	parts := make([]sdf.SDF3, 0, len(s.boxes))
	for _, b := range s.boxes {
		sz := b.Size()
		bx, err := sdf.Box3D(v3.Vec{X: sz[0], Y: sz[1], Z: sz[2]}, 0)
		if err != nil {
			return nil, fmt.Errorf("boxset: %w", err)
		}
		c := b.Center()
		parts = append(parts, sdf.Transform3D(bx, sdf.Translate3d(v3.Vec{X: c.X, Y: c.Y, Z: c.Z})))
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return sdf.Union3D(parts...), nil
}

// BoxKernel implements kernel.Kernel on box sets.
type BoxKernel struct{}

// New returns a new BoxKernel.
func New() *BoxKernel {
	return &BoxKernel{}
}

// Reentrant reports true: box sets are immutable values.
func (k *BoxKernel) Reentrant() bool { return true }

// solidOf extracts this backend's representation from a kernel.Solid.
func solidOf(s kernel.Solid) (*Solid, error) {
	if v, ok := s.(*Solid); ok && v != nil {
		return v, nil
	}
	return nil, fmt.Errorf("boxset: %w: %T", kernel.ErrForeignSolid, s)
}

// unwrap is solidOf for operations without an error result.
func unwrap(s kernel.Solid) *Solid {
	v, err := solidOf(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Box creates a box with its minimum corner at the origin.
func (k *BoxKernel) Box(x, y, z float64) kernel.Solid {
	return FromBoxes(Box{Max: [3]float64{x, y, z}})
}

// Cylinder is not representable as a box set.
func (k *BoxKernel) Cylinder(height, radius float64, segments int) (kernel.Solid, error) {
	return nil, fmt.Errorf("boxset: cylinder: %w", kernel.ErrUnsupported)
}

// Union returns a ∪ b.
func (k *BoxKernel) Union(a, b kernel.Solid) kernel.Solid {
	sa, sb := unwrap(a), unwrap(b)
	out := append([]Box(nil), sa.boxes...)
	out = append(out, subtractAll(sb.boxes, sa.boxes)...)
	return newSolid(out)
}

// Difference returns a − b.
func (k *BoxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return newSolid(subtractAll(unwrap(a).boxes, unwrap(b).boxes))
}

// Intersection returns a ∩ b.
func (k *BoxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	var out []Box
	for _, x := range unwrap(a).boxes {
		for _, y := range unwrap(b).boxes {
			if in, ok := x.Intersect(y); ok {
				out = append(out, in)
			}
		}
	}
	return newSolid(out)
}

// Translate moves a solid by (x, y, z).
func (k *BoxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	src := unwrap(s).boxes
	out := make([]Box, len(src))
	for i, b := range src {
		out[i] = b.Translate([3]float64{x, y, z})
	}
	return newSolid(out)
}

// Rotate rotates a solid about the origin by Euler angles in degrees,
// applied X first, then Y, then Z. Only multiples of 90° are exact;
// anything else returns kernel.ErrUnsupported.
func (k *BoxKernel) Rotate(s kernel.Solid, x, y, z float64) (kernel.Solid, error) {
	m := identity()
	for _, r := range []struct {
		deg  float64
		axis int
	}{{z, 2}, {y, 1}, {x, 0}} {
		q, ok := quarterTurns(r.deg)
		if !ok {
			return nil, fmt.Errorf("boxset: rotate %g° about axis %d: %w", r.deg, r.axis, kernel.ErrUnsupported)
		}
		m = m.mul(axisRotation(r.axis, q))
	}
	in, err := solidOf(s)
	if err != nil {
		return nil, err
	}
	src := in.boxes
	out := make([]Box, len(src))
	for i, b := range src {
		out[i] = NewBox(m.apply(b.Min), m.apply(b.Max))
	}
	return newSolid(out), nil
}

// Volume returns the exact volume.
func (k *BoxKernel) Volume(s kernel.Solid) float64 {
	var v float64
	for _, b := range unwrap(s).boxes {
		v += b.Volume()
	}
	return v
}

// Centroid returns the volume-weighted center.
func (k *BoxKernel) Centroid(s kernel.Solid) (r3.Vec, error) {
	in, err := solidOf(s)
	if err != nil {
		return r3.Vec{}, err
	}
	var sum r3.Vec
	var vol float64
	for _, b := range in.boxes {
		v := b.Volume()
		sum = r3.Add(sum, r3.Scale(v, b.Center()))
		vol += v
	}
	if vol <= 0 {
		return r3.Vec{}, kernel.ErrEmpty
	}
	return r3.Scale(1/vol, sum), nil
}

// Edges returns the edges of every box in canonical box order.
func (k *BoxKernel) Edges(s kernel.Solid) ([]kernel.Edge, error) {
	in, err := solidOf(s)
	if err != nil {
		return nil, err
	}
	src := in.boxes
	if len(src) == 0 {
		return nil, kernel.ErrEmpty
	}
	out := make([]kernel.Edge, 0, 12*len(src))
	for _, b := range src {
		out = append(out, b.edges()...)
	}
	return out, nil
}

// Split cuts a solid with an axis-aligned plane. The result holds the
// non-empty sides, low coordinate side first.
func (k *BoxKernel) Split(s kernel.Solid, p kernel.Plane) ([]kernel.Solid, error) {
	ax, _, ok := p.AxisAligned(eps)
	if !ok {
		return nil, fmt.Errorf("boxset: split by oblique plane %v: %w", p.Normal, kernel.ErrUnsupported)
	}
	in, err := solidOf(s)
	if err != nil {
		return nil, err
	}
	c := kernel.Component(p.Origin, ax)
	var lo, hi []Box
	for _, b := range in.boxes {
		switch {
		case b.Max[ax] <= c+eps:
			lo = append(lo, b)
		case b.Min[ax] >= c-eps:
			hi = append(hi, b)
		default:
			l, h := b.split(ax, c)
			lo = append(lo, l)
			hi = append(hi, h)
		}
	}
	var out []kernel.Solid
	for _, side := range [][]Box{lo, hi} {
		if len(side) > 0 {
			out = append(out, newSolid(side))
		}
	}
	return out, nil
}

// Components groups boxes connected through shared faces.
func (k *BoxKernel) Components(s kernel.Solid) ([]kernel.Solid, error) {
	in, err := solidOf(s)
	if err != nil {
		return nil, err
	}
	src := in.boxes
	parent := make([]int, len(src))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for i := range src {
		for j := i + 1; j < len(src); j++ {
			if src[i].touches(src[j]) {
				parent[find(i)] = find(j)
			}
		}
	}
	groups := make(map[int][]Box)
	var order []int
	for i, b := range src {
		r := find(i)
		if _, seen := groups[r]; !seen {
			order = append(order, r)
		}
		groups[r] = append(groups[r], b)
	}
	out := make([]kernel.Solid, 0, len(order))
	for _, r := range order {
		out = append(out, newSolid(groups[r]))
	}
	return out, nil
}

// ToMesh emits twelve triangles per box.
func (k *BoxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	in, err := solidOf(s)
	if err != nil {
		return nil, err
	}
	m := &kernel.Mesh{}
	for _, b := range in.boxes {
		appendBoxFaces(m, b)
	}
	return m, nil
}

// appendBoxFaces adds the six faces of b with outward normals.
func appendBoxFaces(m *kernel.Mesh, b Box) {
	corner := func(i, j, l int) [3]float32 {
		pick := func(ax, sel int) float32 {
			if sel == 0 {
				return float32(b.Min[ax])
			}
			return float32(b.Max[ax])
		}
		return [3]float32{pick(0, i), pick(1, j), pick(2, l)}
	}
	for ax := 0; ax < 3; ax++ {
		u, v := (ax+1)%3, (ax+2)%3
		for side := 0; side < 2; side++ {
			var n [3]float32
			n[ax] = float32(2*side - 1)
			at := func(a, c int) [3]float32 {
				var sel [3]int
				sel[ax], sel[u], sel[v] = side, a, c
				return corner(sel[0], sel[1], sel[2])
			}
			p00, p10, p11, p01 := at(0, 0), at(1, 0), at(1, 1), at(0, 1)
			if side == 1 {
				m.AppendTriangle(p00, p10, p11, n)
				m.AppendTriangle(p00, p11, p01, n)
			} else {
				m.AppendTriangle(p00, p11, p10, n)
				m.AppendTriangle(p00, p01, p11, n)
			}
		}
	}
}

// subtractAll removes every box in cut from every box in src.
func subtractAll(src, cut []Box) []Box {
	out := append([]Box(nil), src...)
	for _, c := range cut {
		next := out[:0:0]
		for _, b := range out {
			next = append(next, b.Subtract(c)...)
		}
		out = next
	}
	return out
}

// coalesce drops degenerate boxes, merges face-adjacent boxes with equal
// cross-sections, and sorts the result canonically.
func coalesce(boxes []Box) []Box {
	out := make([]Box, 0, len(boxes))
	for _, b := range boxes {
		if !b.Degenerate() {
			out = append(out, b)
		}
	}
	for merged := true; merged; {
		merged = false
		for i := 0; i < len(out) && !merged; i++ {
			for j := i + 1; j < len(out); j++ {
				if m, ok := out[i].merge(out[j]); ok {
					out[i] = m
					out = append(out[:j], out[j+1:]...)
					merged = true
					break
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessBox(out[i], out[j]) })
	return out
}

// ---------------------------------------------------------------------------
// Quarter-turn rotations
// ---------------------------------------------------------------------------

type mat3 [3][3]float64

func identity() mat3 {
	return mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

func (a mat3) mul(b mat3) mat3 {
	var r mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for l := 0; l < 3; l++ {
				r[i][j] += a[i][l] * b[l][j]
			}
		}
	}
	return r
}

func (a mat3) apply(p [3]float64) [3]float64 {
	var r [3]float64
	for i := 0; i < 3; i++ {
		r[i] = a[i][0]*p[0] + a[i][1]*p[1] + a[i][2]*p[2]
	}
	return r
}

// quarterTurns converts degrees to a whole number of quarter turns.
func quarterTurns(deg float64) (int, bool) {
	q := deg / 90
	r := math.Round(q)
	if math.Abs(q-r) > eps {
		return 0, false
	}
	n := int(r) % 4
	if n < 0 {
		n += 4
	}
	return n, true
}

// axisRotation returns the right-handed rotation by q quarter turns.
func axisRotation(axis, q int) mat3 {
	c := [4]float64{1, 0, -1, 0}[q]
	s := [4]float64{0, 1, 0, -1}[q]
	switch axis {
	case 0:
		return mat3{{1, 0, 0}, {0, c, -s}, {0, s, c}}
	case 1:
		return mat3{{c, 0, s}, {0, 1, 0}, {-s, 0, c}}
	}
	return mat3{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
}
