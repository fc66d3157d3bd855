package meshing

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// AppendTriangles converts the mesh to sdfx triangles offset by origin
// (usually the chunk's world origin) and appends them to dst.
func (m *Mesh) AppendTriangles(dst []*sdf.Triangle3, origin mgl64.Vec3) []*sdf.Triangle3 {
	toV3 := func(p mgl32.Vec3) v3.Vec {
		return v3.Vec{
			X: origin[0] + float64(p[0]),
			Y: origin[1] + float64(p[1]),
			Z: origin[2] + float64(p[2]),
		}
	}
	for i := 0; i < m.TriangleCount(); i++ {
		a, b, c := m.Triangle(i)
		dst = append(dst, &sdf.Triangle3{toV3(a), toV3(b), toV3(c)})
	}
	return dst
}

// SaveSTL writes triangles to a binary STL file.
func SaveSTL(path string, tris []*sdf.Triangle3) error {
	if err := render.SaveSTL(path, tris); err != nil {
		return fmt.Errorf("meshing: save stl %s: %w", path, err)
	}
	return nil
}
