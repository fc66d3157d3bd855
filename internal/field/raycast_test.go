package field

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestRaycastHitsFlatGround(t *testing.T) {
	f := TerrainField{BaseHeight: 5}
	res := f.Raycast(mgl64.Vec3{0, 10, 0}, mgl64.Vec3{0, -1, 0}, MinReachDistance, MaxReachDistance, nil)
	if !res.Hit {
		t.Fatal("expected hit")
	}
	if math.Abs(res.Position[1]-5) > 1e-4 {
		t.Errorf("hit y = %v, want 5", res.Position[1])
	}
	if math.Abs(res.Distance-5) > 1e-4 {
		t.Errorf("distance = %v, want 5", res.Distance)
	}
}

func TestRaycastMissesPointingUp(t *testing.T) {
	f := TerrainField{BaseHeight: 5}
	res := f.Raycast(mgl64.Vec3{0, 10, 0}, mgl64.Vec3{0, 1, 0}, MinReachDistance, 20, nil)
	if res.Hit {
		t.Errorf("unexpected hit at %v", res.Position)
	}
}

func TestRaycastSeesCarvedHole(t *testing.T) {
	f := TerrainField{BaseHeight: 5}
	edits := []Edit{{Center: mgl64.Vec3{0, 5, 0}, Radius: 2, Op: Subtract}}
	res := f.Raycast(mgl64.Vec3{0, 10, 0}, mgl64.Vec3{0, -1, 0}, MinReachDistance, MaxReachDistance, edits)
	if !res.Hit {
		t.Fatal("expected hit")
	}
	if math.Abs(res.Position[1]-3) > 1e-3 {
		t.Errorf("hit y = %v, want bottom of hole at 3", res.Position[1])
	}
}

func TestRaycastZeroDirection(t *testing.T) {
	f := TerrainField{BaseHeight: 5}
	if res := f.Raycast(mgl64.Vec3{}, mgl64.Vec3{}, 0, 10, nil); res.Hit {
		t.Error("zero direction should not hit")
	}
}
