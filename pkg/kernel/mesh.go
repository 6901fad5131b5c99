package kernel

// Mesh is a triangle mesh for preview and STL export.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName"` // which design graph part this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Triangle returns the vertices and the normal of the first vertex of
// triangle i.
func (m *Mesh) Triangle(i int) (v [3][3]float32, n [3]float32) {
	for j := 0; j < 3; j++ {
		idx := int(m.Indices[i*3+j]) * 3
		v[j] = [3]float32{m.Vertices[idx], m.Vertices[idx+1], m.Vertices[idx+2]}
		if j == 0 && idx+2 < len(m.Normals) {
			n = [3]float32{m.Normals[idx], m.Normals[idx+1], m.Normals[idx+2]}
		}
	}
	return v, n
}

// AppendTriangle adds an unindexed triangle with a flat normal.
func (m *Mesh) AppendTriangle(a, b, c, n [3]float32) {
	base := uint32(m.VertexCount())
	for _, v := range [3][3]float32{a, b, c} {
		m.Vertices = append(m.Vertices, v[0], v[1], v[2])
		m.Normals = append(m.Normals, n[0], n[1], n[2])
	}
	m.Indices = append(m.Indices, base, base+1, base+2)
}
