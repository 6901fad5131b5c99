package export

import (
	"errors"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/autolasercut/pkg/kernel"
)

// ErrEmptyMesh is returned when a mesh has no triangles to write.
var ErrEmptyMesh = errors.New("export: empty mesh")

// Triangles converts m into sdfx triangles. Stored normals are dropped;
// sdfx derives them from the winding.
func Triangles(m *kernel.Mesh) []*sdf.Triangle3 {
	if m == nil {
		return nil
	}
	out := make([]*sdf.Triangle3, m.TriangleCount())
	for i := range out {
		v, _ := m.Triangle(i)
		var t sdf.Triangle3
		for j := range v {
			t[j] = v3.Vec{X: float64(v[j][0]), Y: float64(v[j][1]), Z: float64(v[j][2])}
		}
		out[i] = &t
	}
	return out
}

// SaveSTL writes m to path as binary STL.
func SaveSTL(path string, m *kernel.Mesh) error {
	if m == nil || m.TriangleCount() == 0 {
		return ErrEmptyMesh
	}
	return render.SaveSTL(path, Triangles(m))
}
