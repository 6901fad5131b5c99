package kernel

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

func TestMeshAppendTriangle(t *testing.T) {
	m := &Mesh{}
	m.AppendTriangle([3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}, [3]float32{0, 0, 1})
	m.AppendTriangle([3]float32{0, 0, 1}, [3]float32{1, 0, 1}, [3]float32{0, 1, 1}, [3]float32{0, 0, -1})

	if got := m.TriangleCount(); got != 2 {
		t.Fatalf("TriangleCount() = %d, want 2", got)
	}
	v, n := m.Triangle(1)
	if v[1] != [3]float32{1, 0, 1} {
		t.Errorf("Triangle(1) vertex 1 = %v, want [1 0 1]", v[1])
	}
	if n != [3]float32{0, 0, -1} {
		t.Errorf("Triangle(1) normal = %v, want [0 0 -1]", n)
	}
}

// --- Edge and plane ---

func TestEdge(t *testing.T) {
	e := Edge{Start: r3.Vec{X: 1, Y: 2, Z: 0}, End: r3.Vec{X: 1, Y: 2, Z: 4}}
	if got := e.Length(); got != 4 {
		t.Errorf("Length() = %g, want 4", got)
	}
	if got := e.At(0.25); got != (r3.Vec{X: 1, Y: 2, Z: 1}) {
		t.Errorf("At(0.25) = %v, want {1 2 1}", got)
	}
	if got := e.Direction(); got != (r3.Vec{Z: 1}) {
		t.Errorf("Direction() = %v, want {0 0 1}", got)
	}
	if got := (Edge{}).Direction(); got != (r3.Vec{}) {
		t.Errorf("zero edge Direction() = %v, want zero", got)
	}
}

func TestPlaneFrameIsOrthonormal(t *testing.T) {
	normals := []r3.Vec{
		{X: 1}, {Y: 1}, {Z: 1}, {Z: -1},
		{X: 1, Y: 1, Z: 1},
		{X: -0.2, Y: 3, Z: 0.5},
	}
	for _, n := range normals {
		p := NewPlane(r3.Vec{}, n)
		for name, d := range map[string]float64{
			"x.y": r3.Dot(p.XDir, p.YDir),
			"x.n": r3.Dot(p.XDir, p.Normal),
			"y.n": r3.Dot(p.YDir, p.Normal),
		} {
			if math.Abs(d) > 1e-12 {
				t.Errorf("normal %v: %s = %g, want 0", n, name, d)
			}
		}
		for name, v := range map[string]r3.Vec{"x": p.XDir, "y": p.YDir, "n": p.Normal} {
			if math.Abs(r3.Norm(v)-1) > 1e-12 {
				t.Errorf("normal %v: |%s| = %g, want 1", n, name, r3.Norm(v))
			}
		}
	}
}

func TestPlaneToLocal(t *testing.T) {
	p := NewPlane(r3.Vec{X: 5, Y: 5, Z: 2}, r3.Vec{Z: 2})
	tests := []struct {
		name  string
		point r3.Vec
		wantZ float64
	}{
		{"above", r3.Vec{X: 0, Y: 0, Z: 3}, 1},
		{"below", r3.Vec{X: 9, Y: 1, Z: 0.5}, -1.5},
		{"on plane", r3.Vec{X: -4, Y: 7, Z: 2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.ToLocal(tt.point).Z
			if math.Abs(got-tt.wantZ) > 1e-12 {
				t.Errorf("ToLocal(%v).Z = %g, want %g", tt.point, got, tt.wantZ)
			}
			if d := p.Distance(tt.point); math.Abs(d-got) > 1e-12 {
				t.Errorf("Distance = %g, ToLocal.Z = %g", d, got)
			}
		})
	}
}

func TestPlaneAxisAligned(t *testing.T) {
	tests := []struct {
		normal   r3.Vec
		wantAxis int
		wantSign float64
		wantOK   bool
	}{
		{r3.Vec{X: 1}, 0, 1, true},
		{r3.Vec{Y: -3}, 1, -1, true},
		{r3.Vec{Z: 1}, 2, 1, true},
		{r3.Vec{X: 1, Y: 1}, 0, 0, false},
	}
	for _, tt := range tests {
		axis, sign, ok := NewPlane(r3.Vec{}, tt.normal).AxisAligned(1e-9)
		if ok != tt.wantOK || (ok && (axis != tt.wantAxis || sign != tt.wantSign)) {
			t.Errorf("AxisAligned(%v) = (%d, %g, %v), want (%d, %g, %v)",
				tt.normal, axis, sign, ok, tt.wantAxis, tt.wantSign, tt.wantOK)
		}
	}
}

type reentrantFlag bool

func (r reentrantFlag) Reentrant() bool { return bool(r) }

func TestIsReentrant(t *testing.T) {
	if !IsReentrant(reentrantFlag(true)) {
		t.Error("IsReentrant(true) = false")
	}
	if IsReentrant(reentrantFlag(false)) {
		t.Error("IsReentrant(false) = true")
	}
	if IsReentrant(struct{}{}) {
		t.Error("IsReentrant(struct{}) = true")
	}
}
