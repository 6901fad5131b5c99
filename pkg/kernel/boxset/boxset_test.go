package boxset

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/autolasercut/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) <= tol
}

// box returns a kernel solid spanning the two corners.
func box(k *BoxKernel, min, max [3]float64) kernel.Solid {
	s := k.Box(max[0]-min[0], max[1]-min[1], max[2]-min[2])
	return k.Translate(s, min[0], min[1], min[2])
}

func TestBoxAtOrigin(t *testing.T) {
	k := New()
	s := k.Box(100, 50, 25)
	min, max := s.BoundingBox()
	if min != [3]float64{0, 0, 0} || max != [3]float64{100, 50, 25} {
		t.Errorf("BoundingBox() = %v %v, want [0 0 0] [100 50 25]", min, max)
	}
	if got := k.Volume(s); !approx(got, 125000) {
		t.Errorf("Volume() = %g, want 125000", got)
	}
}

func TestBooleans(t *testing.T) {
	k := New()
	a := k.Box(4, 4, 4)
	b := box(k, [3]float64{2, 2, 2}, [3]float64{6, 6, 6})

	tests := []struct {
		name string
		got  kernel.Solid
		want float64
	}{
		{"intersection", k.Intersection(a, b), 8},
		{"difference", k.Difference(a, b), 56},
		{"union", k.Union(a, b), 120},
		{"self difference", k.Difference(a, a), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := k.Volume(tt.got); !approx(got, tt.want) {
				t.Errorf("Volume() = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestBoxesStayDisjoint(t *testing.T) {
	k := New()
	a := k.Box(10, 10, 1)
	for i := 0; i < 4; i++ {
		hole := box(k, [3]float64{float64(2 * i), 1, 0}, [3]float64{float64(2*i + 1), 9, 1})
		a = k.Difference(a, hole)
	}
	boxes := unwrap(a).Boxes()
	for i := range boxes {
		for j := i + 1; j < len(boxes); j++ {
			if _, ok := boxes[i].Intersect(boxes[j]); ok {
				t.Fatalf("boxes %v and %v overlap", boxes[i], boxes[j])
			}
		}
	}
	if got := k.Volume(a); !approx(got, 100-4*8) {
		t.Errorf("Volume() = %g, want %g", got, 100.0-32)
	}
}

func TestCoalesceMergesAdjacentBoxes(t *testing.T) {
	s := FromBoxes(
		Box{Max: [3]float64{1, 1, 1}},
		Box{Min: [3]float64{1, 0, 0}, Max: [3]float64{2, 1, 1}},
		Box{Min: [3]float64{2, 0, 0}, Max: [3]float64{3, 1, 1}},
	)
	if got := len(s.Boxes()); got != 1 {
		t.Fatalf("len(Boxes()) = %d, want 1", got)
	}
	if b := s.Boxes()[0]; b.Max != [3]float64{3, 1, 1} {
		t.Errorf("merged box = %v, want max [3 1 1]", b)
	}
}

func TestCentroid(t *testing.T) {
	k := New()
	l := k.Union(k.Box(2, 1, 1), box(k, [3]float64{0, 1, 0}, [3]float64{1, 2, 1}))
	c, err := k.Centroid(l)
	if err != nil {
		t.Fatalf("Centroid() error = %v", err)
	}
	want := r3.Vec{X: (1*2 + 0.5*1) / 3, Y: (0.5*2 + 1.5*1) / 3, Z: 0.5}
	if !approx(c.X, want.X) || !approx(c.Y, want.Y) || !approx(c.Z, want.Z) {
		t.Errorf("Centroid() = %v, want %v", c, want)
	}

	_, err = k.Centroid(k.Box(0, 1, 1))
	if !errors.Is(err, kernel.ErrEmpty) {
		t.Errorf("Centroid(empty) error = %v, want ErrEmpty", err)
	}
}

func TestEdgesDominantIsLongest(t *testing.T) {
	k := New()
	edges, err := k.Edges(k.Box(1, 1, 4))
	if err != nil {
		t.Fatalf("Edges() error = %v", err)
	}
	if len(edges) != 12 {
		t.Fatalf("len(Edges()) = %d, want 12", len(edges))
	}
	var long int
	for _, e := range edges {
		if approx(e.Length(), 4) {
			long++
			if e.Direction() != (r3.Vec{Z: 1}) {
				t.Errorf("long edge direction = %v, want +Z", e.Direction())
			}
		}
	}
	if long != 4 {
		t.Errorf("edges of length 4 = %d, want 4", long)
	}
}

func TestSplit(t *testing.T) {
	k := New()
	s := k.Box(1, 1, 4)

	t.Run("through the middle", func(t *testing.T) {
		parts, err := k.Split(s, kernel.NewPlane(r3.Vec{Z: 1}, r3.Vec{Z: 1}))
		if err != nil {
			t.Fatalf("Split() error = %v", err)
		}
		if len(parts) != 2 {
			t.Fatalf("len(parts) = %d, want 2", len(parts))
		}
		if got := k.Volume(parts[0]); !approx(got, 1) {
			t.Errorf("low side volume = %g, want 1", got)
		}
		if got := k.Volume(parts[1]); !approx(got, 3) {
			t.Errorf("high side volume = %g, want 3", got)
		}
	})

	t.Run("outside the solid", func(t *testing.T) {
		parts, err := k.Split(s, kernel.NewPlane(r3.Vec{Z: 9}, r3.Vec{Z: -1}))
		if err != nil {
			t.Fatalf("Split() error = %v", err)
		}
		if len(parts) != 1 {
			t.Errorf("len(parts) = %d, want 1", len(parts))
		}
	})

	t.Run("oblique plane", func(t *testing.T) {
		_, err := k.Split(s, kernel.NewPlane(r3.Vec{}, r3.Vec{X: 1, Z: 1}))
		if !errors.Is(err, kernel.ErrUnsupported) {
			t.Errorf("Split() error = %v, want ErrUnsupported", err)
		}
	})
}

func TestComponents(t *testing.T) {
	k := New()
	a := k.Box(1, 1, 1)
	b := box(k, [3]float64{1, 0, 0}, [3]float64{2, 2, 1}) // touches a on a face
	c := box(k, [3]float64{5, 5, 5}, [3]float64{6, 6, 6}) // isolated
	d := box(k, [3]float64{2, 2, 0}, [3]float64{3, 3, 1}) // touches b on an edge only

	comps, err := k.Components(k.Union(k.Union(a, b), k.Union(c, d)))
	if err != nil {
		t.Fatalf("Components() error = %v", err)
	}
	if len(comps) != 3 {
		t.Fatalf("len(Components()) = %d, want 3", len(comps))
	}
	var total float64
	for _, s := range comps {
		total += k.Volume(s)
	}
	if !approx(total, 1+2+1+1) {
		t.Errorf("total component volume = %g, want 5", total)
	}
}

func TestRotateQuarterTurns(t *testing.T) {
	k := New()
	s := k.Box(10, 2, 1)

	tests := []struct {
		name     string
		x, y, z  float64
		min, max [3]float64
	}{
		{"z 90", 0, 0, 90, [3]float64{-2, 0, 0}, [3]float64{0, 10, 1}},
		{"x 90", 90, 0, 0, [3]float64{0, -1, 0}, [3]float64{10, 0, 2}},
		{"y -90", 0, -90, 0, [3]float64{-1, 0, 0}, [3]float64{0, 2, 10}},
		{"full turn", 360, 0, 0, [3]float64{0, 0, 0}, [3]float64{10, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := k.Rotate(s, tt.x, tt.y, tt.z)
			if err != nil {
				t.Fatalf("Rotate() error = %v", err)
			}
			min, max := r.BoundingBox()
			for i := 0; i < 3; i++ {
				if !approx(min[i], tt.min[i]) || !approx(max[i], tt.max[i]) {
					t.Fatalf("BoundingBox() = %v %v, want %v %v", min, max, tt.min, tt.max)
				}
			}
		})
	}

	if _, err := k.Rotate(s, 45, 0, 0); !errors.Is(err, kernel.ErrUnsupported) {
		t.Errorf("Rotate(45) error = %v, want ErrUnsupported", err)
	}
}

func TestCylinderUnsupported(t *testing.T) {
	if _, err := New().Cylinder(10, 2, 32); !errors.Is(err, kernel.ErrUnsupported) {
		t.Errorf("Cylinder() error = %v, want ErrUnsupported", err)
	}
}

func TestToMesh(t *testing.T) {
	k := New()
	m, err := k.ToMesh(k.Union(k.Box(1, 1, 1), box(k, [3]float64{3, 0, 0}, [3]float64{4, 1, 1})))
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if got := m.TriangleCount(); got != 24 {
		t.Errorf("TriangleCount() = %d, want 24", got)
	}
	if len(m.Vertices) != len(m.Normals) {
		t.Errorf("vertices length %d != normals length %d", len(m.Vertices), len(m.Normals))
	}
}

func TestSDF3(t *testing.T) {
	k := New()
	s := unwrap(k.Union(k.Box(2, 2, 2), box(k, [3]float64{5, 0, 0}, [3]float64{6, 1, 1})))
	f, err := s.SDF3()
	if err != nil {
		t.Fatalf("SDF3() error = %v", err)
	}
	bb := f.BoundingBox()
	if !approx(bb.Min.X, 0) || !approx(bb.Max.X, 6) {
		t.Errorf("SDF3 bounding box x = [%g, %g], want [0, 6]", bb.Min.X, bb.Max.X)
	}

	if _, err := FromBoxes().SDF3(); !errors.Is(err, kernel.ErrEmpty) {
		t.Errorf("empty SDF3() error = %v, want ErrEmpty", err)
	}
}

type foreignSolid struct{}

func (foreignSolid) BoundingBox() (min, max [3]float64) { return }

func TestForeignSolid(t *testing.T) {
	k := New()
	var f foreignSolid

	if _, err := k.Centroid(f); !errors.Is(err, kernel.ErrForeignSolid) {
		t.Errorf("Centroid error = %v, want ErrForeignSolid", err)
	}
	if _, err := k.Edges(f); !errors.Is(err, kernel.ErrForeignSolid) {
		t.Errorf("Edges error = %v, want ErrForeignSolid", err)
	}
	if _, err := k.Split(f, kernel.NewPlane(r3.Vec{}, r3.Vec{Z: 1})); !errors.Is(err, kernel.ErrForeignSolid) {
		t.Errorf("Split error = %v, want ErrForeignSolid", err)
	}
	if _, err := k.ToMesh(f); !errors.Is(err, kernel.ErrForeignSolid) {
		t.Errorf("ToMesh error = %v, want ErrForeignSolid", err)
	}

	defer func() {
		err, _ := recover().(error)
		if !errors.Is(err, kernel.ErrForeignSolid) {
			t.Errorf("Union panicked with %v, want ErrForeignSolid", err)
		}
	}()
	k.Union(k.Box(1, 1, 1), f)
	t.Error("Union of a foreign solid should panic")
}
