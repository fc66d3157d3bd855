package density

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"sdf-terrain/internal/field"
	"sdf-terrain/internal/profiling"

	"github.com/go-gl/mathgl/mgl64"
)

// SampleDensity evaluates f at origin + (x,y,z)*voxelSize for every lattice
// point of a dims-sized grid.
func SampleDensity(origin mgl64.Vec3, dims Dims, voxelSize float64, f *field.TerrainField, edits []field.Edit) (*Grid, error) {
	if err := checkArgs(dims, voxelSize); err != nil {
		return nil, err
	}
	defer profiling.Track("density.SampleDensity")()

	// The explicit conversion keeps the product from being fused into an
	// FMA, so positions round the same way on every architecture.
	pos := func(axis, i int) float64 {
		return origin[axis] + float64(float64(i)*voxelSize)
	}
	return sample(dims, pos, f, edits), nil
}

// SampleLattice evaluates f at (base + (x,y,z)) * voxelSize. Positions come
// straight from integer lattice indices, so two chunks that share a lattice
// plane compute bit-identical samples on it.
func SampleLattice(base [3]int, dims Dims, voxelSize float64, f *field.TerrainField, edits []field.Edit) (*Grid, error) {
	if err := checkArgs(dims, voxelSize); err != nil {
		return nil, err
	}
	defer profiling.Track("density.SampleLattice")()

	pos := func(axis, i int) float64 {
		return float64(base[axis]+i) * voxelSize
	}
	return sample(dims, pos, f, edits), nil
}

func checkArgs(dims Dims, voxelSize float64) error {
	if err := dims.Validate(); err != nil {
		return err
	}
	if !(voxelSize > 0) || math.IsInf(voxelSize, 0) {
		return fmt.Errorf("density: voxel size %v: %w", voxelSize, ErrInvalidVoxelSize)
	}
	return nil
}

// sample fills a grid slab by slab along z. Every sample is independent, so
// slabs are spread over up to NumCPU goroutines.
func sample(dims Dims, pos func(axis, i int) float64, f *field.TerrainField, edits []field.Edit) *Grid {
	values := make([]float32, dims.Volume())

	xs := make([]float64, dims.X)
	for i := range xs {
		xs[i] = pos(0, i)
	}
	ys := make([]float64, dims.Y)
	for i := range ys {
		ys[i] = pos(1, i)
	}

	workers := min(max(runtime.NumCPU(), 1), dims.Z)
	slabs := make(chan int, dims.Z)
	for z := 0; z < dims.Z; z++ {
		slabs <- z
	}
	close(slabs)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for z := range slabs {
				wz := pos(2, z)
				for y := 0; y < dims.Y; y++ {
					row := dims.Index(0, y, z)
					for x := 0; x < dims.X; x++ {
						values[row+x] = float32(f.Sample(mgl64.Vec3{xs[x], ys[y], wz}, edits))
					}
				}
			}
		}()
	}
	wg.Wait()

	return &Grid{Dims: dims, Values: values}
}
