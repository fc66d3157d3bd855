// Package density samples the terrain field over a chunk's voxel lattice.
package density

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDims is returned when any axis of a resolution is < 1.
	ErrInvalidDims = errors.New("invalid grid dimensions")
	// ErrInvalidVoxelSize is returned for a non-positive or non-finite voxel size.
	ErrInvalidVoxelSize = errors.New("invalid voxel size")
)

// Dims is a sample resolution per axis.
type Dims struct {
	X, Y, Z int
}

// Cube returns Dims with n samples on every axis.
func Cube(n int) Dims {
	return Dims{X: n, Y: n, Z: n}
}

// Validate reports ErrInvalidDims for empty or negative axes.
func (d Dims) Validate() error {
	if d.X < 1 || d.Y < 1 || d.Z < 1 {
		return fmt.Errorf("density: %dx%dx%d: %w", d.X, d.Y, d.Z, ErrInvalidDims)
	}
	return nil
}

// Volume is the number of samples.
func (d Dims) Volume() int {
	return d.X * d.Y * d.Z
}

// Cells returns the cell resolution, one less than the sample resolution on
// each axis.
func (d Dims) Cells() Dims {
	return Dims{X: d.X - 1, Y: d.Y - 1, Z: d.Z - 1}
}

// Index flattens (x, y, z) with x varying fastest.
func (d Dims) Index(x, y, z int) int {
	return x + d.X*(y+d.Y*z)
}

// Contains reports whether (x, y, z) addresses a sample.
func (d Dims) Contains(x, y, z int) bool {
	return x >= 0 && x < d.X && y >= 0 && y < d.Y && z >= 0 && z < d.Z
}

// Grid is a dense block of density samples owned by a single chunk. A grid
// is never mutated after sampling; a rebuild produces a new one.
type Grid struct {
	Dims   Dims
	Values []float32
}

// NewGrid wraps values as a grid, checking the length against dims.
func NewGrid(dims Dims, values []float32) (*Grid, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}
	if len(values) != dims.Volume() {
		return nil, fmt.Errorf("density: %d values for %dx%dx%d grid: %w",
			len(values), dims.X, dims.Y, dims.Z, ErrInvalidDims)
	}
	return &Grid{Dims: dims, Values: values}, nil
}

// At returns the sample at (x, y, z). Out-of-range coordinates panic.
func (g *Grid) At(x, y, z int) float32 {
	if !g.Dims.Contains(x, y, z) {
		panic(fmt.Sprintf("density: sample (%d,%d,%d) outside %dx%dx%d grid", x, y, z, g.Dims.X, g.Dims.Y, g.Dims.Z))
	}
	return g.Values[g.Dims.Index(x, y, z)]
}

// Uniform reports whether every sample is on the same side of the surface,
// in which case no mesh can come out of the grid.
func (g *Grid) Uniform() bool {
	if len(g.Values) == 0 {
		return true
	}
	solid := g.Values[0] < 0
	for _, v := range g.Values[1:] {
		if (v < 0) != solid {
			return false
		}
	}
	return true
}
