package meshing

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Mesh is an indexed triangle buffer in chunk-local space. Triangles are
// wound counter-clockwise as seen from outside (from the air side). A mesh
// with no vertices and no indices is valid and means the chunk has no
// surface.
type Mesh struct {
	Vertices []mgl32.Vec3
	Indices  []uint32
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no triangles.
func (m *Mesh) IsEmpty() bool {
	return len(m.Indices) == 0
}

// Triangle returns the corners of triangle i.
func (m *Mesh) Triangle(i int) (a, b, c mgl32.Vec3) {
	return m.Vertices[m.Indices[3*i]], m.Vertices[m.Indices[3*i+1]], m.Vertices[m.Indices[3*i+2]]
}

// FaceNormal returns the unnormalised normal cross(b-a, c-a) of triangle i.
func (m *Mesh) FaceNormal(i int) mgl32.Vec3 {
	a, b, c := m.Triangle(i)
	return b.Sub(a).Cross(c.Sub(a))
}

// FaceNormals returns one unit normal per triangle. Degenerate triangles get
// a zero normal.
func (m *Mesh) FaceNormals() []mgl32.Vec3 {
	out := make([]mgl32.Vec3, m.TriangleCount())
	for i := range out {
		n := m.FaceNormal(i)
		if l := n.Len(); l > 0 {
			out[i] = n.Mul(1 / l)
		}
	}
	return out
}

// Translate returns a copy of the mesh with every vertex moved by offset.
// Indices are shared with the receiver.
func (m *Mesh) Translate(offset mgl32.Vec3) *Mesh {
	out := &Mesh{
		Vertices: make([]mgl32.Vec3, len(m.Vertices)),
		Indices:  m.Indices,
	}
	for i, v := range m.Vertices {
		out.Vertices[i] = v.Add(offset)
	}
	return out
}
