// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
//
// Signed distance fields carry no boundary representation, so geometric
// queries (volume, centroid, edges, components) are answered from a
// voxel sampling of each solid. Accuracy is governed by the sample
// resolution; see WithSampleCells.
package sdfx

import (
	"fmt"
	"math"
	"sync"

	"github.com/chazu/autolasercut/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

const (
	// DefaultMeshCells controls marching cubes tessellation resolution.
	DefaultMeshCells = 200
	// DefaultSampleCells is the per-axis voxel count for queries.
	DefaultSampleCells = 48
)

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid. bb is tracked
// separately because sdfx reports loose boxes for intersections and cuts.
type sdfxSolid struct {
	s     sdf.SDF3
	bb    sdf.Box3
	cells int

	once sync.Once
	grid *voxelGrid
}

// BoundingBox returns the tracked axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	min = [3]float64{s.bb.Min.X, s.bb.Min.Y, s.bb.Min.Z}
	max = [3]float64{s.bb.Max.X, s.bb.Max.Y, s.bb.Max.Z}
	return min, max
}

// SDF3 exposes the underlying field for export.
func (s *sdfxSolid) SDF3() (sdf.SDF3, error) {
	return s.s, nil
}

// voxels samples the solid once and caches the result.
func (s *sdfxSolid) voxels() *voxelGrid {
	s.once.Do(func() {
		s.grid = sample(s.s, s.bb, s.cells)
	})
	return s.grid
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	meshCells   int
	sampleCells int
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithMeshCells sets the marching cubes resolution for ToMesh.
func WithMeshCells(n int) Option {
	return func(k *SdfxKernel) {
		if n > 0 {
			k.meshCells = n
		}
	}
}

// WithSampleCells sets the per-axis voxel count used by queries.
func WithSampleCells(n int) Option {
	return func(k *SdfxKernel) {
		if n > 0 {
			k.sampleCells = n
		}
	}
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{meshCells: DefaultMeshCells, sampleCells: DefaultSampleCells}
	for _, o := range opts {
		o(k)
	}
	return k
}

// Reentrant reports true: SDFs are immutable and voxel caches are
// filled under sync.Once.
func (k *SdfxKernel) Reentrant() bool { return true }

// solidOf extracts this backend's representation from a kernel.Solid.
func solidOf(s kernel.Solid) (*sdfxSolid, error) {
	if v, ok := s.(*sdfxSolid); ok && v != nil {
		return v, nil
	}
	return nil, fmt.Errorf("sdfx: %w: %T", kernel.ErrForeignSolid, s)
}

// unwrap is solidOf for operations without an error result.
func unwrap(s kernel.Solid) *sdfxSolid {
	v, err := solidOf(s)
	if err != nil {
		panic(err)
	}
	return v
}

// wrap creates a kernel.Solid from an sdf.SDF3 and its tracked box.
func (k *SdfxKernel) wrap(s sdf.SDF3, bb sdf.Box3) kernel.Solid {
	return &sdfxSolid{s: s, bb: bb, cells: k.sampleCells}
}

// Box creates a box with the given dimensions. The resulting solid has its
// minimum corner at the origin (0,0,0) so that placement translations work
// intuitively: (place :at (vec3 10 0 0)) puts the sheet's corner at x=10.
// sdf.Box3D centers the box at the origin, so we translate by half-dimensions.
func (k *SdfxKernel) Box(x, y, z float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	m := sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})
	return k.wrap(sdf.Transform3D(s, m), sdf.Box3{Max: v3.Vec{X: x, Y: y, Z: z}})
}

// Cylinder creates a cylinder with the given height and radius, centered
// on the origin with its axis along Z. The segments parameter is ignored
// since SDF represents smooth surfaces.
func (k *SdfxKernel) Cylinder(height, radius float64, segments int) (kernel.Solid, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: cylinder: %w", err)
	}
	return k.wrap(s, s.BoundingBox()), nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	sa, sb := unwrap(a), unwrap(b)
	return k.wrap(sdf.Union3D(sa.s, sb.s), sa.bb.Extend(sb.bb))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	sa, sb := unwrap(a), unwrap(b)
	return k.wrap(sdf.Difference3D(sa.s, sb.s), sa.bb)
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	sa, sb := unwrap(a), unwrap(b)
	return k.wrap(sdf.Intersect3D(sa.s, sb.s), overlap(sa.bb, sb.bb))
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	src := unwrap(s)
	return k.wrap(sdf.Transform3D(src.s, m), m.MulBox(src.bb))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) (kernel.Solid, error) {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	src, err := solidOf(s)
	if err != nil {
		return nil, err
	}
	return k.wrap(sdf.Transform3D(src.s, m), m.MulBox(src.bb)), nil
}

// Volume estimates the volume from inside voxels.
func (k *SdfxKernel) Volume(s kernel.Solid) float64 {
	return unwrap(s).voxels().volume()
}

// Centroid estimates the center of mass from inside voxels.
func (k *SdfxKernel) Centroid(s kernel.Solid) (r3.Vec, error) {
	src, err := solidOf(s)
	if err != nil {
		return r3.Vec{}, err
	}
	c, ok := src.voxels().centroid()
	if !ok {
		return r3.Vec{}, kernel.ErrEmpty
	}
	return r3.Vec{X: c.X, Y: c.Y, Z: c.Z}, nil
}

// Edges returns the twelve edges of the sampled extent, clamped to the
// tracked bounding box. For the sheet-to-sheet contacts finger joints
// are cut on, the contact region is a box and these are its true edges.
func (k *SdfxKernel) Edges(s kernel.Solid) ([]kernel.Edge, error) {
	src, err := solidOf(s)
	if err != nil {
		return nil, err
	}
	tight, ok := src.voxels().bounds()
	if !ok {
		return nil, kernel.ErrEmpty
	}
	tight = overlap(tight, src.bb)
	return kernel.BoxEdges(
		[3]float64{tight.Min.X, tight.Min.Y, tight.Min.Z},
		[3]float64{tight.Max.X, tight.Max.Y, tight.Max.Z},
	), nil
}

// Split cuts a solid with a plane, keeping both sides. Sides with no
// sampled volume are dropped. Axis-aligned cuts also clip the tracked box.
func (k *SdfxKernel) Split(s kernel.Solid, p kernel.Plane) ([]kernel.Solid, error) {
	src, err := solidOf(s)
	if err != nil {
		return nil, err
	}
	a := v3.Vec{X: p.Origin.X, Y: p.Origin.Y, Z: p.Origin.Z}
	n := v3.Vec{X: p.Normal.X, Y: p.Normal.Y, Z: p.Normal.Z}
	ax, sign, aligned := p.AxisAligned(1e-9)

	var out []kernel.Solid
	for _, dir := range [2]float64{-1, 1} {
		bb := src.bb
		if aligned {
			bb = clip(bb, ax, kernel.Component(p.Origin, ax), dir*sign > 0)
		}
		if bb.Max.X <= bb.Min.X || bb.Max.Y <= bb.Min.Y || bb.Max.Z <= bb.Min.Z {
			continue
		}
		piece := k.wrap(sdf.Cut3D(src.s, a, n.MulScalar(dir)), bb)
		if unwrap(piece).voxels().count > 0 {
			out = append(out, piece)
		}
	}
	return out, nil
}

// Components splits a solid into 6-connected voxel components.
func (k *SdfxKernel) Components(s kernel.Solid) ([]kernel.Solid, error) {
	src, err := solidOf(s)
	if err != nil {
		return nil, err
	}
	g := src.voxels()
	labels, n := g.label()
	if n <= 1 {
		if n == 0 {
			return nil, nil
		}
		return []kernel.Solid{s}, nil
	}
	out := make([]kernel.Solid, 0, n)
	for id := 1; id <= n; id++ {
		bb := overlap(g.componentBox(labels, id), src.bb)
		out = append(out, k.wrap(&maskSDF{s: src.s, grid: g, labels: labels, id: id, bb: bb}, bb))
	}
	return out, nil
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	src, err := solidOf(s)
	if err != nil {
		return nil, err
	}
	sdf3 := src.s

	renderer := render.NewMarchingCubesUniform(k.meshCells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}

// overlap returns the intersection of two boxes. Disjoint boxes give an
// inverted box, which samples as empty.
func overlap(a, b sdf.Box3) sdf.Box3 {
	return sdf.Box3{
		Min: v3.Vec{X: math.Max(a.Min.X, b.Min.X), Y: math.Max(a.Min.Y, b.Min.Y), Z: math.Max(a.Min.Z, b.Min.Z)},
		Max: v3.Vec{X: math.Min(a.Max.X, b.Max.X), Y: math.Min(a.Max.Y, b.Max.Y), Z: math.Min(a.Max.Z, b.Max.Z)},
	}
}

// clip keeps the part of bb above (high) or below c along axis ax.
func clip(bb sdf.Box3, ax int, c float64, high bool) sdf.Box3 {
	lo := [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	hi := [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	if high {
		lo[ax] = math.Max(lo[ax], c)
	} else {
		hi[ax] = math.Min(hi[ax], c)
	}
	return sdf.Box3{
		Min: v3.Vec{X: lo[0], Y: lo[1], Z: lo[2]},
		Max: v3.Vec{X: hi[0], Y: hi[1], Z: hi[2]},
	}
}
