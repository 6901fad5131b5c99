package sdfx

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/autolasercut/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// newKernel returns a kernel with a coarse mesh for fast tests.
func newKernel() *SdfxKernel {
	return New(WithMeshCells(40))
}

func TestBox(t *testing.T) {
	k := newKernel()
	box := k.Box(100, 50, 25)
	mesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	triCount := mesh.TriangleCount()
	if triCount == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != triCount*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), triCount*3)
	}
}

func TestCylinder(t *testing.T) {
	k := newKernel()
	cyl, err := k.Cylinder(50, 10, 32)
	if err != nil {
		t.Fatalf("Cylinder failed: %v", err)
	}
	want := math.Pi * 10 * 10 * 50
	if got := k.Volume(cyl); math.Abs(got-want)/want > 0.05 {
		t.Errorf("cylinder volume = %f, want ~%f", got, want)
	}
}

func TestBoundingBox(t *testing.T) {
	k := newKernel()
	box := k.Box(100, 50, 25)
	min, max := box.BoundingBox()

	const tol = 0.01
	expectMin := [3]float64{0, 0, 0}
	expectMax := [3]float64{100, 50, 25}

	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, max[i], expectMax[i])
		}
	}
}

func TestTranslate(t *testing.T) {
	k := newKernel()
	translated := k.Translate(k.Box(10, 10, 10), 100, 200, 300)
	min, max := translated.BoundingBox()

	const tol = 1e-9
	expectMin := [3]float64{100, 200, 300}
	expectMax := [3]float64{110, 210, 310}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, max[i], expectMax[i])
		}
	}
}

func TestRotate(t *testing.T) {
	k := newKernel()
	box := k.Box(100, 10, 10)

	// A long box along X rotated 90 degrees around Z should extend along Y instead.
	rotated, err := k.Rotate(box, 0, 0, 90)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	min, max := rotated.BoundingBox()

	xExtent := max[0] - min[0]
	yExtent := max[1] - min[1]

	const tol = 1.0
	if math.Abs(xExtent-10) > tol {
		t.Errorf("rotated X extent = %f, expected ~10", xExtent)
	}
	if math.Abs(yExtent-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", yExtent)
	}
}

func TestIntersectionVolume(t *testing.T) {
	k := newKernel()
	a := k.Box(3, 1, 4)
	b := k.Translate(k.Box(1, 3, 4), 1, -1, 0)
	inter := k.Intersection(a, b)

	if got := k.Volume(inter); math.Abs(got-4) > 1e-6 {
		t.Errorf("intersection volume = %f, want 4", got)
	}
	min, max := inter.BoundingBox()
	if min != [3]float64{1, 0, 0} || max != [3]float64{2, 1, 4} {
		t.Errorf("intersection bounds = %v %v, want [1 0 0] [2 1 4]", min, max)
	}

	far := k.Translate(k.Box(1, 1, 1), 50, 50, 50)
	if got := k.Volume(k.Intersection(a, far)); got != 0 {
		t.Errorf("disjoint intersection volume = %f, want 0", got)
	}
}

func TestDifferenceVolume(t *testing.T) {
	k := newKernel()
	a := k.Box(4, 4, 4)
	hole := k.Translate(k.Box(2, 4, 4), 1, 0, 0)
	got := k.Volume(k.Difference(a, hole))
	if math.Abs(got-32)/32 > 0.05 {
		t.Errorf("difference volume = %f, want ~32", got)
	}
}

func TestEdgesOfSlab(t *testing.T) {
	k := newKernel()
	edges, err := k.Edges(k.Box(1, 1, 4))
	if err != nil {
		t.Fatalf("Edges failed: %v", err)
	}
	if len(edges) != 12 {
		t.Fatalf("len(edges) = %d, want 12", len(edges))
	}
	longest := 0.0
	for _, e := range edges {
		longest = math.Max(longest, e.Length())
	}
	if math.Abs(longest-4) > 1e-9 {
		t.Errorf("longest edge = %f, want 4", longest)
	}

	if _, err := k.Edges(k.Intersection(k.Box(1, 1, 1), k.Translate(k.Box(1, 1, 1), 5, 0, 0))); !errors.Is(err, kernel.ErrEmpty) {
		t.Errorf("Edges(empty) error = %v, want ErrEmpty", err)
	}
}

func TestSplitKeepsBothSides(t *testing.T) {
	k := newKernel()
	s := k.Box(1, 1, 4)
	parts, err := k.Split(s, kernel.NewPlane(r3.Vec{X: 0.5, Y: 0.5, Z: 1}, r3.Vec{Z: 1}))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("len(parts) = %d, want 2", len(parts))
	}
	vols := []float64{k.Volume(parts[0]), k.Volume(parts[1])}
	if math.Abs(vols[0]+vols[1]-4) > 1e-6 {
		t.Errorf("split volumes %v do not sum to 4", vols)
	}
	for _, p := range parts {
		c, err := k.Centroid(p)
		if err != nil {
			t.Fatalf("Centroid failed: %v", err)
		}
		if math.Abs(c.Z-0.5) > 1e-6 && math.Abs(c.Z-2.5) > 1e-6 {
			t.Errorf("piece centroid z = %f, want 0.5 or 2.5", c.Z)
		}
	}
}

func TestComponents(t *testing.T) {
	k := newKernel()
	u := k.Union(k.Box(2, 2, 2), k.Translate(k.Box(2, 2, 2), 6, 0, 0))
	comps, err := k.Components(u)
	if err != nil {
		t.Fatalf("Components failed: %v", err)
	}
	if len(comps) != 2 {
		t.Fatalf("len(comps) = %d, want 2", len(comps))
	}
	for i, c := range comps {
		if v := k.Volume(c); math.Abs(v-8)/8 > 0.1 {
			t.Errorf("component %d volume = %f, want ~8", i, v)
		}
	}

	single, err := k.Components(k.Box(1, 1, 1))
	if err != nil || len(single) != 1 {
		t.Errorf("Components(box) = %d, %v; want 1, nil", len(single), err)
	}
}

func TestCentroidEmpty(t *testing.T) {
	k := newKernel()
	empty := k.Intersection(k.Box(1, 1, 1), k.Translate(k.Box(1, 1, 1), 3, 0, 0))
	if _, err := k.Centroid(empty); !errors.Is(err, kernel.ErrEmpty) {
		t.Errorf("Centroid(empty) error = %v, want ErrEmpty", err)
	}
}

type foreignSolid struct{}

func (foreignSolid) BoundingBox() (min, max [3]float64) { return }

func TestForeignSolid(t *testing.T) {
	k := newKernel()
	var f foreignSolid

	if _, err := k.Centroid(f); !errors.Is(err, kernel.ErrForeignSolid) {
		t.Errorf("Centroid error = %v, want ErrForeignSolid", err)
	}
	if _, err := k.Components(f); !errors.Is(err, kernel.ErrForeignSolid) {
		t.Errorf("Components error = %v, want ErrForeignSolid", err)
	}
	if _, err := k.Rotate(f, 90, 0, 0); !errors.Is(err, kernel.ErrForeignSolid) {
		t.Errorf("Rotate error = %v, want ErrForeignSolid", err)
	}

	defer func() {
		err, _ := recover().(error)
		if !errors.Is(err, kernel.ErrForeignSolid) {
			t.Errorf("Volume panicked with %v, want ErrForeignSolid", err)
		}
	}()
	k.Volume(f)
	t.Error("Volume of a foreign solid should panic")
}
