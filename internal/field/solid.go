package field

import (
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// Compile-time interface check.
var _ sdf.SDF3 = (*Solid)(nil)

// Solid exposes a bounded region of the terrain field as an sdfx SDF3 so the
// sdfx renderers can be used as an independent reference mesher.
type Solid struct {
	Field    *TerrainField
	Edits    []Edit
	Min, Max mgl64.Vec3
}

// Evaluate implements sdf.SDF3.
func (s *Solid) Evaluate(p v3.Vec) float64 {
	return s.Field.Sample(mgl64.Vec3{p.X, p.Y, p.Z}, s.Edits)
}

// BoundingBox implements sdf.SDF3.
func (s *Solid) BoundingBox() sdf.Box3 {
	return sdf.Box3{
		Min: v3.Vec{X: s.Min[0], Y: s.Min[1], Z: s.Min[2]},
		Max: v3.Vec{X: s.Max[0], Y: s.Max[1], Z: s.Max[2]},
	}
}

// ReferenceTriangles renders the solid with sdfx uniform marching cubes,
// using cells cells along the longest box axis.
func (s *Solid) ReferenceTriangles(cells int) []*sdf.Triangle3 {
	return render.ToTriangles(s, render.NewMarchingCubesUniform(cells))
}
