package sdfx

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// voxelGrid is an inside/outside sampling of an SDF over a box.
// Cells are addressed (i, j, l) along x, y, z.
type voxelGrid struct {
	bb     sdf.Box3
	n      [3]int
	step   v3.Vec
	inside []bool
	count  int
}

// sample evaluates s at the center of cells×cells×cells voxels over bb.
func sample(s sdf.SDF3, bb sdf.Box3, cells int) *voxelGrid {
	g := &voxelGrid{bb: bb}
	size := bb.Max.Sub(bb.Min)
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 || cells < 1 {
		return g
	}
	g.n = [3]int{cells, cells, cells}
	g.step = v3.Vec{X: size.X / float64(cells), Y: size.Y / float64(cells), Z: size.Z / float64(cells)}
	g.inside = make([]bool, cells*cells*cells)
	for l := 0; l < g.n[2]; l++ {
		for j := 0; j < g.n[1]; j++ {
			for i := 0; i < g.n[0]; i++ {
				if s.Evaluate(g.center(i, j, l)) < 0 {
					g.inside[g.index(i, j, l)] = true
					g.count++
				}
			}
		}
	}
	return g
}

func (g *voxelGrid) index(i, j, l int) int {
	return (l*g.n[1]+j)*g.n[0] + i
}

func (g *voxelGrid) center(i, j, l int) v3.Vec {
	return v3.Vec{
		X: g.bb.Min.X + (float64(i)+0.5)*g.step.X,
		Y: g.bb.Min.Y + (float64(j)+0.5)*g.step.Y,
		Z: g.bb.Min.Z + (float64(l)+0.5)*g.step.Z,
	}
}

// cellOf returns the voxel containing p, or ok=false outside the grid.
func (g *voxelGrid) cellOf(p v3.Vec) (i, j, l int, ok bool) {
	if g.count == 0 {
		return 0, 0, 0, false
	}
	i = int(math.Floor((p.X - g.bb.Min.X) / g.step.X))
	j = int(math.Floor((p.Y - g.bb.Min.Y) / g.step.Y))
	l = int(math.Floor((p.Z - g.bb.Min.Z) / g.step.Z))
	ok = i >= 0 && j >= 0 && l >= 0 && i < g.n[0] && j < g.n[1] && l < g.n[2]
	return i, j, l, ok
}

func (g *voxelGrid) cellVolume() float64 {
	return g.step.X * g.step.Y * g.step.Z
}

func (g *voxelGrid) volume() float64 {
	return float64(g.count) * g.cellVolume()
}

// centroid returns the mean of inside voxel centers.
func (g *voxelGrid) centroid() (v3.Vec, bool) {
	if g.count == 0 {
		return v3.Vec{}, false
	}
	var sum v3.Vec
	g.each(func(i, j, l int) {
		sum = sum.Add(g.center(i, j, l))
	})
	return sum.MulScalar(1 / float64(g.count)), true
}

// bounds returns the extent of inside voxels.
func (g *voxelGrid) bounds() (sdf.Box3, bool) {
	if g.count == 0 {
		return sdf.Box3{}, false
	}
	lo := [3]int{g.n[0], g.n[1], g.n[2]}
	hi := [3]int{-1, -1, -1}
	g.each(func(i, j, l int) {
		for a, c := range [3]int{i, j, l} {
			if c < lo[a] {
				lo[a] = c
			}
			if c > hi[a] {
				hi[a] = c
			}
		}
	})
	return sdf.Box3{
		Min: v3.Vec{
			X: g.bb.Min.X + float64(lo[0])*g.step.X,
			Y: g.bb.Min.Y + float64(lo[1])*g.step.Y,
			Z: g.bb.Min.Z + float64(lo[2])*g.step.Z,
		},
		Max: v3.Vec{
			X: g.bb.Min.X + float64(hi[0]+1)*g.step.X,
			Y: g.bb.Min.Y + float64(hi[1]+1)*g.step.Y,
			Z: g.bb.Min.Z + float64(hi[2]+1)*g.step.Z,
		},
	}, true
}

func (g *voxelGrid) each(fn func(i, j, l int)) {
	for l := 0; l < g.n[2]; l++ {
		for j := 0; j < g.n[1]; j++ {
			for i := 0; i < g.n[0]; i++ {
				if g.inside[g.index(i, j, l)] {
					fn(i, j, l)
				}
			}
		}
	}
}

// label assigns a component number (1-based) to every inside voxel
// using 6-connectivity. It returns the labels and the component count.
func (g *voxelGrid) label() ([]int, int) {
	labels := make([]int, len(g.inside))
	n := 0
	var queue [][3]int
	g.each(func(i, j, l int) {
		if labels[g.index(i, j, l)] != 0 {
			return
		}
		n++
		labels[g.index(i, j, l)] = n
		queue = append(queue[:0], [3]int{i, j, l})
		for len(queue) > 0 {
			c := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			for _, d := range [6][3]int{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}} {
				x, y, z := c[0]+d[0], c[1]+d[1], c[2]+d[2]
				if x < 0 || y < 0 || z < 0 || x >= g.n[0] || y >= g.n[1] || z >= g.n[2] {
					continue
				}
				idx := g.index(x, y, z)
				if g.inside[idx] && labels[idx] == 0 {
					labels[idx] = n
					queue = append(queue, [3]int{x, y, z})
				}
			}
		}
	})
	return labels, n
}

// maskSDF restricts an SDF to the voxels of one labelled component.
// Points outside the component report a positive distance.
type maskSDF struct {
	s      sdf.SDF3
	grid   *voxelGrid
	labels []int
	id     int
	bb     sdf.Box3
}

func (m *maskSDF) Evaluate(p v3.Vec) float64 {
	d := m.s.Evaluate(p)
	i, j, l, ok := m.grid.cellOf(p)
	if ok && m.labels[m.grid.index(i, j, l)] == m.id {
		return d
	}
	return math.Max(d, m.grid.step.MinComponent()/2)
}

func (m *maskSDF) BoundingBox() sdf.Box3 {
	return m.bb
}

// componentBox returns the voxel extent of component id.
func (g *voxelGrid) componentBox(labels []int, id int) sdf.Box3 {
	sub := &voxelGrid{bb: g.bb, n: g.n, step: g.step, inside: make([]bool, len(g.inside))}
	for idx, lb := range labels {
		if lb == id {
			sub.inside[idx] = true
			sub.count++
		}
	}
	bb, _ := sub.bounds()
	return bb
}
