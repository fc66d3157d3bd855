package density

import (
	"errors"
	"testing"

	"sdf-terrain/internal/field"

	"github.com/go-gl/mathgl/mgl64"
)

func TestDimsIndexXFastest(t *testing.T) {
	d := Dims{X: 4, Y: 3, Z: 2}
	if got := d.Index(1, 0, 0); got != 1 {
		t.Errorf("Index(1,0,0) = %d, want 1", got)
	}
	if got := d.Index(0, 1, 0); got != 4 {
		t.Errorf("Index(0,1,0) = %d, want 4", got)
	}
	if got := d.Index(0, 0, 1); got != 12 {
		t.Errorf("Index(0,0,1) = %d, want 12", got)
	}
	if got := d.Index(3, 2, 1); got != d.Volume()-1 {
		t.Errorf("Index(last) = %d, want %d", got, d.Volume()-1)
	}
}

func TestDimsValidate(t *testing.T) {
	for _, d := range []Dims{{0, 1, 1}, {1, -1, 1}, {1, 1, 0}} {
		if err := d.Validate(); !errors.Is(err, ErrInvalidDims) {
			t.Errorf("Validate(%v) = %v, want ErrInvalidDims", d, err)
		}
	}
	if err := Cube(1).Validate(); err != nil {
		t.Errorf("Validate(1x1x1) = %v", err)
	}
}

func TestSampleDensityMatchesField(t *testing.T) {
	f := field.DefaultTerrain()
	edits := []field.Edit{{Center: mgl64.Vec3{2, 8, 2}, Radius: 2, Op: field.Subtract}}
	origin := mgl64.Vec3{-1, 4, 0.5}
	dims := Dims{X: 5, Y: 6, Z: 7}
	const voxel = 0.5

	g, err := SampleDensity(origin, dims, voxel, &f, edits)
	if err != nil {
		t.Fatalf("SampleDensity: %v", err)
	}
	if len(g.Values) != dims.Volume() {
		t.Fatalf("len = %d, want %d", len(g.Values), dims.Volume())
	}
	for z := 0; z < dims.Z; z++ {
		for y := 0; y < dims.Y; y++ {
			for x := 0; x < dims.X; x++ {
				p := mgl64.Vec3{
					origin[0] + float64(float64(x)*voxel),
					origin[1] + float64(float64(y)*voxel),
					origin[2] + float64(float64(z)*voxel),
				}
				want := float32(f.Sample(p, edits))
				if got := g.At(x, y, z); got != want {
					t.Fatalf("grid(%d,%d,%d) = %v, want %v", x, y, z, got, want)
				}
			}
		}
	}
}

func TestSampleLatticeSharedPlane(t *testing.T) {
	f := field.DefaultTerrain()
	f.Detail = field.Detail{Seed: 9, Octaves: 3, Scale: 0.07, Amplitude: 1, Persistence: 0.5, Lacunarity: 2}
	edits := []field.Edit{{Center: mgl64.Vec3{5.3, 8.1, 2.2}, Radius: 2.7, Op: field.Subtract}}
	const n = 9
	const voxel = 0.3
	dims := Cube(n)

	a, err := SampleLattice([3]int{0, 0, 0}, dims, voxel, &f, edits)
	if err != nil {
		t.Fatal(err)
	}
	b, err := SampleLattice([3]int{n - 1, 0, 0}, dims, voxel, &f, edits)
	if err != nil {
		t.Fatal(err)
	}
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			if a.At(n-1, y, z) != b.At(0, y, z) {
				t.Fatalf("shared plane differs at (y=%d,z=%d): %v vs %v", y, z, a.At(n-1, y, z), b.At(0, y, z))
			}
		}
	}
}

func TestSampleDensityDeterministic(t *testing.T) {
	f := field.DefaultTerrain()
	edits := []field.Edit{
		{Center: mgl64.Vec3{3, 8, 3}, Radius: 2, Op: field.Subtract},
		{Center: mgl64.Vec3{4, 9, 3}, Radius: 1, Op: field.Add},
	}
	a, _ := SampleDensity(mgl64.Vec3{}, Cube(12), 0.5, &f, edits)
	b, _ := SampleDensity(mgl64.Vec3{}, Cube(12), 0.5, &f, edits)
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			t.Fatalf("sample %d differs: %v vs %v", i, a.Values[i], b.Values[i])
		}
	}
}

func TestSampleRejectsBadInput(t *testing.T) {
	f := field.DefaultTerrain()
	if _, err := SampleDensity(mgl64.Vec3{}, Dims{X: 0, Y: 4, Z: 4}, 1, &f, nil); !errors.Is(err, ErrInvalidDims) {
		t.Errorf("zero dims error = %v", err)
	}
	if _, err := SampleLattice([3]int{}, Cube(4), 0, &f, nil); !errors.Is(err, ErrInvalidVoxelSize) {
		t.Errorf("zero voxel error = %v", err)
	}
	if _, err := SampleLattice([3]int{}, Cube(4), -2, &f, nil); !errors.Is(err, ErrInvalidVoxelSize) {
		t.Errorf("negative voxel error = %v", err)
	}
}

func TestNewGridLengthMismatch(t *testing.T) {
	if _, err := NewGrid(Cube(2), make([]float32, 7)); !errors.Is(err, ErrInvalidDims) {
		t.Errorf("NewGrid mismatch error = %v", err)
	}
	g, err := NewGrid(Cube(2), make([]float32, 8))
	if err != nil || g.Dims != Cube(2) {
		t.Errorf("NewGrid = %v, %v", g, err)
	}
}

func TestGridAtPanicsOutOfRange(t *testing.T) {
	g, _ := NewGrid(Cube(2), make([]float32, 8))
	defer func() {
		if recover() == nil {
			t.Error("At(2,0,0) did not panic")
		}
	}()
	g.At(2, 0, 0)
}

func TestGridUniform(t *testing.T) {
	f := field.TerrainField{BaseHeight: -100}
	g, _ := SampleDensity(mgl64.Vec3{}, Cube(6), 1, &f, nil)
	if !g.Uniform() {
		t.Error("all-air grid should be uniform")
	}
	f.BaseHeight = 2.5
	g, _ = SampleDensity(mgl64.Vec3{}, Cube(6), 1, &f, nil)
	if g.Uniform() {
		t.Error("grid crossing the ground should not be uniform")
	}
}

func BenchmarkSampleLattice(b *testing.B) {
	f := field.DefaultTerrain()
	edits := []field.Edit{{Center: mgl64.Vec3{8, 8, 8}, Radius: 4, Op: field.Subtract}}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = SampleLattice([3]int{}, Cube(33), 0.5, &f, edits)
	}
}
