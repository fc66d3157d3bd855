package world

import (
	"errors"
	"fmt"
	"math"

	"sdf-terrain/internal/density"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidLayout is returned by Layout.Validate.
var ErrInvalidLayout = errors.New("invalid chunk layout")

// ChunkCoord is the integer coordinate of a chunk.
type ChunkCoord struct {
	X, Y, Z int
}

// Add offsets the coordinate.
func (c ChunkCoord) Add(dx, dy, dz int) ChunkCoord {
	return ChunkCoord{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Layout fixes how chunk coordinates map onto the world sample lattice.
// Chunk c covers lattice indices [c*(R-1), c*(R-1)+R-1] on each axis, so
// neighbours share exactly one sample layer.
type Layout struct {
	// Resolution is the number of samples per axis a chunk owns (R).
	Resolution int
	VoxelSize  float64
	// Apron samples one extra layer on the positive side of every axis so
	// border quads can be closed without talking to the neighbour.
	Apron bool
}

// DefaultLayout is 17 samples (16 cells) per axis at one world unit per
// voxel, with aprons.
func DefaultLayout() Layout {
	return Layout{Resolution: 17, VoxelSize: 1, Apron: true}
}

// Validate checks that the layout describes at least one cell per chunk.
func (l Layout) Validate() error {
	if l.Resolution < 2 {
		return fmt.Errorf("world: resolution %d: %w", l.Resolution, ErrInvalidLayout)
	}
	if !(l.VoxelSize > 0) || math.IsInf(l.VoxelSize, 0) {
		return fmt.Errorf("world: voxel size %v: %w", l.VoxelSize, ErrInvalidLayout)
	}
	return nil
}

// Stride is the lattice distance between neighbouring chunk origins.
func (l Layout) Stride() int {
	return l.Resolution - 1
}

// LatticeBase is the integer lattice index of the chunk's first sample.
func (l Layout) LatticeBase(c ChunkCoord) [3]int {
	s := l.Stride()
	return [3]int{c.X * s, c.Y * s, c.Z * s}
}

// Origin is the world position of the chunk's first sample. It is derived
// from the integer coordinate alone, never accumulated from neighbours.
func (l Layout) Origin(c ChunkCoord) mgl64.Vec3 {
	return l.latticePoint(l.LatticeBase(c))
}

func (l Layout) latticePoint(idx [3]int) mgl64.Vec3 {
	return mgl64.Vec3{
		float64(idx[0]) * l.VoxelSize,
		float64(idx[1]) * l.VoxelSize,
		float64(idx[2]) * l.VoxelSize,
	}
}

// Bounds is the world box spanned by the chunk's own samples.
func (l Layout) Bounds(c ChunkCoord) (min, max mgl64.Vec3) {
	base := l.LatticeBase(c)
	s := l.Stride()
	return l.latticePoint(base), l.latticePoint([3]int{base[0] + s, base[1] + s, base[2] + s})
}

// ExpandedBounds grows Bounds by one voxel on every side. Any edit that can
// change a sample the chunk reads, apron included, touches this box.
func (l Layout) ExpandedBounds(c ChunkCoord) (min, max mgl64.Vec3) {
	min, max = l.Bounds(c)
	v := mgl64.Vec3{l.VoxelSize, l.VoxelSize, l.VoxelSize}
	return min.Sub(v), max.Add(v)
}

// ChunkAt returns the chunk whose cells contain world point p. Points on a
// shared layer belong to the chunk on the positive side.
func (l Layout) ChunkAt(p mgl64.Vec3) ChunkCoord {
	s := l.Stride()
	idx := func(v float64) int {
		return floorDiv(int(math.Floor(v/l.VoxelSize)), s)
	}
	return ChunkCoord{X: idx(p[0]), Y: idx(p[1]), Z: idx(p[2])}
}

// SampleDims is the density grid size sampled per chunk.
func (l Layout) SampleDims() density.Dims {
	if l.Apron {
		return density.Cube(l.Resolution + 1)
	}
	return density.Cube(l.Resolution)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
