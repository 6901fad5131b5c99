package export

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/deadsy/sdfx/render"
	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/chazu/autolasercut/pkg/assemble"
	"github.com/chazu/autolasercut/pkg/kernel"
	"github.com/chazu/autolasercut/pkg/kernel/boxset"
)

// stlRecordSize is the size of one binary STL triangle record.
const stlRecordSize = 50

func TestSaveSTLRoundTrip(t *testing.T) {
	k := boxset.New()
	m, err := k.ToMesh(k.Translate(k.Box(2, 3, 4), 1, 0, 0))
	if err != nil {
		t.Fatalf("ToMesh: %v", err)
	}

	path := filepath.Join(t.TempDir(), "box.stl")
	if err := SaveSTL(path, m); err != nil {
		t.Fatalf("SaveSTL: %v", err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	n := m.TriangleCount()
	if want := int64(84 + n*stlRecordSize); fi.Size() != want {
		t.Fatalf("got %d bytes, want %d", fi.Size(), want)
	}

	tris, err := render.LoadSTL(path)
	if err != nil {
		t.Fatalf("LoadSTL: %v", err)
	}
	if len(tris) != n {
		t.Fatalf("read %d triangles, want %d", len(tris), n)
	}
	for i, tri := range tris {
		v, _ := m.Triangle(i)
		for j := range v {
			got := [3]float32{float32(tri[j].X), float32(tri[j].Y), float32(tri[j].Z)}
			if got != v[j] {
				t.Fatalf("triangle %d vertex %d = %v, want %v", i, j, got, v[j])
			}
		}
		// Box faces are wound outward, so the derived normal is a unit axis.
		if nl := tri.Normal().Length(); math.Abs(nl-1) > 1e-6 {
			t.Errorf("triangle %d normal length = %f, want 1", i, nl)
		}
	}
}

func TestSaveSTLEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.stl")
	if err := SaveSTL(path, &kernel.Mesh{}); !errors.Is(err, ErrEmptyMesh) {
		t.Errorf("expected ErrEmptyMesh, got %v", err)
	}
	if err := SaveSTL(path, nil); !errors.Is(err, ErrEmptyMesh) {
		t.Errorf("expected ErrEmptyMesh for nil mesh, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("an empty mesh should not create a file")
	}
}

func TestTriangles(t *testing.T) {
	var m kernel.Mesh
	m.AppendTriangle([3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}, [3]float32{})
	tris := Triangles(&m)
	if len(tris) != 1 {
		t.Fatalf("len = %d, want 1", len(tris))
	}
	if n := tris[0].Normal(); n.Z != 1 {
		t.Errorf("normal = %v, want +Z", n)
	}
	if Triangles(nil) != nil {
		t.Error("Triangles(nil) should be nil")
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"front", "front"},
		{"side/left", "side_left"},
		{"lid: top", "lid__top"},
	}
	for _, tt := range tests {
		if got := FileName(tt.in); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSectionFollowsThinnestAxis(t *testing.T) {
	k := boxset.New()
	tests := []struct {
		name  string
		solid kernel.Solid
		area  float64
	}{
		{"flat", k.Box(100, 60, 3), 6000},
		{"standing", k.Translate(k.Box(3, 60, 100), 10, 0, 0), 6000},
		{"on edge", k.Box(100, 3, 60), 6000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sec, err := Section(tt.solid)
			if err != nil {
				t.Fatalf("Section: %v", err)
			}
			bb := sec.BoundingBox()
			sz := bb.Size()
			if math.Abs(sz.X*sz.Y-tt.area) > 1e-6 {
				t.Errorf("section bounds %v cover %f, want %f", bb, sz.X*sz.Y, tt.area)
			}
			if d := sec.Evaluate(bb.Center()); d >= 0 {
				t.Errorf("section centre distance = %f, want inside", d)
			}
			if d := sec.Evaluate(bb.Max.Add(v2.Vec{X: 10, Y: 10})); d <= 0 {
				t.Errorf("distance outside the section = %f, want positive", d)
			}
		})
	}
}

type plainSolid struct{}

func (plainSolid) BoundingBox() (min, max [3]float64) { return }

func TestSectionNeedsSDF(t *testing.T) {
	if _, err := Section(plainSolid{}); !errors.Is(err, ErrNoSDF) {
		t.Errorf("expected ErrNoSDF, got %v", err)
	}
}

func TestExportSTL(t *testing.T) {
	k := boxset.New()
	dir := filepath.Join(t.TempDir(), "out")
	parts := []*assemble.Part{
		{Name: "front", Solid: k.Box(10, 6, 1)},
		{Name: "side/left", Solid: k.Box(6, 6, 1)},
	}

	files, err := New(k, dir, Formats{STL: true}).Export(parts)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	want := []string{filepath.Join(dir, "front.stl"), filepath.Join(dir, "side_left.stl")}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i, f := range files {
		if f != want[i] {
			t.Errorf("file %d = %s, want %s", i, f, want[i])
		}
		fi, err := os.Stat(f)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if fi.Size() != 84+12*stlRecordSize {
			t.Errorf("%s: size %d, want a 12-triangle STL", f, fi.Size())
		}
	}
}

func TestExportSections(t *testing.T) {
	if testing.Short() {
		t.Skip("renders sections")
	}
	k := boxset.New()
	dir := t.TempDir()
	e := New(k, dir, Formats{SVG: true, DXF: true}, WithMeshCells(40))

	files, err := e.ExportPart("tab", k.Difference(k.Box(40, 20, 3), k.Translate(k.Box(10, 10, 3), 15, 10, 0)))
	if err != nil {
		t.Fatalf("ExportPart: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v, want svg and dxf", files)
	}
	svg, err := os.ReadFile(filepath.Join(dir, "tab.svg"))
	if err != nil {
		t.Fatalf("read svg: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Error("svg output has no <svg element")
	}
}

func TestExportSectionsKeepStdoutClean(t *testing.T) {
	if testing.Short() {
		t.Skip("renders sections")
	}
	k := boxset.New()
	e := New(k, t.TempDir(), Formats{SVG: true, DXF: true}, WithMeshCells(20))

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	stdout := os.Stdout
	os.Stdout = w
	_, exportErr := e.ExportPart("plate", k.Box(20, 10, 3))
	os.Stdout = stdout
	w.Close()
	out, _ := io.ReadAll(r)

	if exportErr != nil {
		t.Fatalf("ExportPart: %v", exportErr)
	}
	if len(out) != 0 {
		t.Errorf("export wrote to stdout: %q", out)
	}
}
