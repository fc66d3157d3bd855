// Package field evaluates the signed-distance terrain field: a procedural
// ground surface with an ordered stack of sphere edits applied on top.
//
// Sign convention everywhere in this package: negative is solid, positive
// is air, zero is the surface.
package field

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SdSphere returns the signed distance from p to a sphere of the given
// radius centred at the origin. Callers pass p already relative to the
// sphere centre.
func SdSphere(p mgl64.Vec3, radius float64) float64 {
	return p.Len() - radius
}

// SdBox returns the signed distance from p to an axis-aligned box centred at
// the origin with the given half extents.
func SdBox(p mgl64.Vec3, halfExtents mgl64.Vec3) float64 {
	qx := math.Abs(p[0]) - halfExtents[0]
	qy := math.Abs(p[1]) - halfExtents[1]
	qz := math.Abs(p[2]) - halfExtents[2]

	outside := mgl64.Vec3{math.Max(qx, 0), math.Max(qy, 0), math.Max(qz, 0)}.Len()
	inside := math.Min(math.Max(qx, math.Max(qy, qz)), 0)
	return outside + inside
}

// OpUnion merges two solids. The more negative density wins, so a union can
// only grow solid volume.
func OpUnion(a, b float64) float64 {
	return math.Min(a, b)
}

// OpSubtraction carves solid b out of a.
func OpSubtraction(a, b float64) float64 {
	return math.Max(a, -b)
}

// OpIntersection keeps only the volume solid in both a and b.
func OpIntersection(a, b float64) float64 {
	return math.Max(a, b)
}
