package boxset

import (
	"math"

	"github.com/chazu/autolasercut/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// eps is the coordinate tolerance used for all box comparisons.
const eps = 1e-9

// Box is an axis-aligned box given by its minimum and maximum corners.
type Box struct {
	Min [3]float64
	Max [3]float64
}

// NewBox returns the box spanning the two corners in any order.
func NewBox(a, b [3]float64) Box {
	var bx Box
	for i := 0; i < 3; i++ {
		bx.Min[i] = math.Min(a[i], b[i])
		bx.Max[i] = math.Max(a[i], b[i])
	}
	return bx
}

// Size returns the extent along each axis.
func (b Box) Size() [3]float64 {
	return [3]float64{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// Volume returns the box volume.
func (b Box) Volume() float64 {
	s := b.Size()
	return s[0] * s[1] * s[2]
}

// Center returns the box center.
func (b Box) Center() r3.Vec {
	return r3.Vec{
		X: (b.Min[0] + b.Max[0]) / 2,
		Y: (b.Min[1] + b.Max[1]) / 2,
		Z: (b.Min[2] + b.Max[2]) / 2,
	}
}

// Degenerate reports whether any extent is within tolerance of zero.
func (b Box) Degenerate() bool {
	s := b.Size()
	return s[0] <= eps || s[1] <= eps || s[2] <= eps
}

// Intersect returns the overlap of two boxes and whether it has volume.
func (b Box) Intersect(o Box) (Box, bool) {
	var r Box
	for i := 0; i < 3; i++ {
		r.Min[i] = math.Max(b.Min[i], o.Min[i])
		r.Max[i] = math.Min(b.Max[i], o.Max[i])
	}
	return r, !r.Degenerate()
}

// Subtract returns b minus o as up to six disjoint slabs.
func (b Box) Subtract(o Box) []Box {
	in, ok := b.Intersect(o)
	if !ok {
		return []Box{b}
	}
	var out []Box
	rest := b
	for ax := 0; ax < 3; ax++ {
		if in.Min[ax]-rest.Min[ax] > eps {
			lo := rest
			lo.Max[ax] = in.Min[ax]
			out = append(out, lo)
		}
		if rest.Max[ax]-in.Max[ax] > eps {
			hi := rest
			hi.Min[ax] = in.Max[ax]
			out = append(out, hi)
		}
		rest.Min[ax], rest.Max[ax] = in.Min[ax], in.Max[ax]
	}
	return out
}

// Translate shifts the box by d.
func (b Box) Translate(d [3]float64) Box {
	for i := 0; i < 3; i++ {
		b.Min[i] += d[i]
		b.Max[i] += d[i]
	}
	return b
}

// Extend returns the smallest box enclosing both boxes.
func (b Box) Extend(o Box) Box {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], o.Min[i])
		b.Max[i] = math.Max(b.Max[i], o.Max[i])
	}
	return b
}

// split cuts the box at coordinate c along axis ax.
func (b Box) split(ax int, c float64) (lo, hi Box) {
	lo, hi = b, b
	lo.Max[ax] = c
	hi.Min[ax] = c
	return lo, hi
}

// touches reports whether the boxes share a face patch of positive area.
func (b Box) touches(o Box) bool {
	for k := 0; k < 3; k++ {
		if !near(b.Max[k], o.Min[k]) && !near(o.Max[k], b.Min[k]) {
			continue
		}
		overlap := true
		for j := 0; j < 3; j++ {
			if j == k {
				continue
			}
			if math.Min(b.Max[j], o.Max[j])-math.Max(b.Min[j], o.Min[j]) <= eps {
				overlap = false
				break
			}
		}
		if overlap {
			return true
		}
	}
	return false
}

// merge joins two boxes that abut along one axis with identical
// cross-sections on the other two.
func (b Box) merge(o Box) (Box, bool) {
	for k := 0; k < 3; k++ {
		same := true
		for j := 0; j < 3; j++ {
			if j != k && (!near(b.Min[j], o.Min[j]) || !near(b.Max[j], o.Max[j])) {
				same = false
				break
			}
		}
		if !same {
			continue
		}
		if near(b.Max[k], o.Min[k]) {
			m := b
			m.Max[k] = o.Max[k]
			return m, true
		}
		if near(o.Max[k], b.Min[k]) {
			m := b
			m.Min[k] = o.Min[k]
			return m, true
		}
	}
	return Box{}, false
}

// edges returns the twelve edges of the box.
func (b Box) edges() []kernel.Edge {
	return kernel.BoxEdges(b.Min, b.Max)
}

// lessBox orders boxes by min corner (z, y, x), then max corner.
func lessBox(a, b Box) bool {
	for _, i := range [3]int{2, 1, 0} {
		if !near(a.Min[i], b.Min[i]) {
			return a.Min[i] < b.Min[i]
		}
	}
	for _, i := range [3]int{2, 1, 0} {
		if !near(a.Max[i], b.Max[i]) {
			return a.Max[i] < b.Max[i]
		}
	}
	return false
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= eps
}

