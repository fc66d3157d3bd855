package field

import (
	"github.com/go-gl/mathgl/mgl64"
)

const (
	MinReachDistance = 0.1
	MaxReachDistance = 64.0

	raycastStep       = 0.05
	raycastRefineIter = 24
)

// RaycastResult stores the first surface crossing along a ray.
type RaycastResult struct {
	Position mgl64.Vec3
	Distance float64
	Hit      bool
}

// Raycast marches from start along direction and returns the first point
// where the field turns solid. The crossing is refined by bisection between
// the last air sample and the first solid one. direction need not be unit
// length.
func (f *TerrainField) Raycast(start, direction mgl64.Vec3, minDist, maxDist float64, edits []Edit) RaycastResult {
	if direction.Len() == 0 {
		return RaycastResult{}
	}
	dir := direction.Normalize()
	steps := int(maxDist / raycastStep)

	prev := minDist
	if f.Sample(start.Add(dir.Mul(prev)), edits) < 0 {
		return RaycastResult{Position: start.Add(dir.Mul(prev)), Distance: prev, Hit: true}
	}

	for i := 1; i <= steps; i++ {
		dist := minDist + float64(i)*raycastStep
		if dist > maxDist {
			dist = maxDist
		}
		if f.Sample(start.Add(dir.Mul(dist)), edits) < 0 {
			lo, hi := prev, dist
			for range raycastRefineIter {
				mid := 0.5 * (lo + hi)
				if f.Sample(start.Add(dir.Mul(mid)), edits) < 0 {
					hi = mid
				} else {
					lo = mid
				}
			}
			return RaycastResult{Position: start.Add(dir.Mul(hi)), Distance: hi, Hit: true}
		}
		prev = dist
		if dist == maxDist {
			break
		}
	}

	return RaycastResult{}
}
