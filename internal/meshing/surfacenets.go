// Package meshing extracts triangle meshes from chunk density grids with
// Surface Nets: one vertex per cell that straddles the surface, one quad per
// lattice edge whose endpoints disagree in sign.
package meshing

import (
	"errors"
	"fmt"
	"math"

	"sdf-terrain/internal/density"
	"sdf-terrain/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrInvalidDims is returned when a sample resolution axis is < 1.
	ErrInvalidDims = errors.New("invalid sample dimensions")
	// ErrLengthMismatch is returned when the density array does not hold
	// exactly dims.X*dims.Y*dims.Z samples.
	ErrLengthMismatch = errors.New("density length does not match dimensions")
	// ErrInvalidVoxelSize is returned for a non-positive or non-finite voxel size.
	ErrInvalidVoxelSize = errors.New("invalid voxel size")
)

// crossingEpsilon keeps edge weights finite at exact-zero samples.
const crossingEpsilon = 1e-6

// noVertex marks a cell with no surface vertex.
const noVertex = ^uint32(0)

// cornerOffsets lists the 8 cell corners; bit 0 is x, bit 1 is y, bit 2 is z.
var cornerOffsets = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
}

// cellEdges lists the 12 cell edges as corner pairs.
var cellEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7}, // x
	{0, 2}, {1, 3}, {4, 6}, {5, 7}, // y
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // z
}

// Options tunes extraction for chunked worlds.
type Options struct {
	// Apron marks the last cell layer on each axis as belonging to the
	// positive-side neighbour. Vertices are still placed there, so they
	// coincide with the neighbour's first-layer vertices, but quads are
	// emitted only for edges whose start lies outside the apron. Chunks
	// sampled with one extra layer and meshed with Apron set tile the world
	// with every quad emitted exactly once.
	Apron bool
}

// solid is the single inside test used for both cell classification and
// edge crossings. Zero counts as air.
func solid(d float32) bool {
	return d < 0
}

// BuildMesh extracts the surface from a flat x-fastest density array of
// dims samples (dims-1 cells per axis) with vertices in chunk-local space.
func BuildMesh(values []float32, dims density.Dims, voxelSize float32) (*Mesh, error) {
	return Extract(values, dims, voxelSize, Options{})
}

// ExtractGrid is Extract over a sampled grid.
func ExtractGrid(g *density.Grid, voxelSize float32, opts Options) (*Mesh, error) {
	if g == nil {
		return nil, fmt.Errorf("meshing: nil grid: %w", ErrInvalidDims)
	}
	return Extract(g.Values, g.Dims, voxelSize, opts)
}

// Extract runs Surface Nets in two passes: place a vertex in every active
// cell, then connect vertices around every sign-changing edge.
//
// Features thinner than about 1.5 voxels cannot be represented with one
// vertex per cell; a sphere of radius under one voxel may come out with a
// few triangles facing inward.
func Extract(values []float32, dims density.Dims, voxelSize float32, opts Options) (*Mesh, error) {
	if dims.X < 1 || dims.Y < 1 || dims.Z < 1 {
		return nil, fmt.Errorf("meshing: %dx%dx%d: %w", dims.X, dims.Y, dims.Z, ErrInvalidDims)
	}
	if len(values) != dims.Volume() {
		return nil, fmt.Errorf("meshing: %d samples for %dx%dx%d: %w", len(values), dims.X, dims.Y, dims.Z, ErrLengthMismatch)
	}
	if !(voxelSize > 0) || math.IsInf(float64(voxelSize), 0) {
		return nil, fmt.Errorf("meshing: voxel size %v: %w", voxelSize, ErrInvalidVoxelSize)
	}
	defer profiling.Track("meshing.Extract")()

	cells := dims.Cells()
	if cells.X < 1 || cells.Y < 1 || cells.Z < 1 {
		return &Mesh{}, nil
	}

	nets := &surfaceNets{
		values:     values,
		dims:       dims,
		cells:      cells,
		voxelSize:  voxelSize,
		apron:      opts.Apron,
		cellVertex: make([]uint32, cells.Volume()),
		mesh:       &Mesh{},
	}
	nets.placeVertices()
	nets.emitQuads()
	return nets.mesh, nil
}

type surfaceNets struct {
	values    []float32
	dims      density.Dims
	cells     density.Dims
	voxelSize float32
	apron     bool

	// cellVertex maps a flattened cell index to its vertex, or noVertex.
	cellVertex []uint32
	mesh       *Mesh
}

func (s *surfaceNets) sample(x, y, z int) float32 {
	return s.values[s.dims.Index(x, y, z)]
}

// placeVertices puts one vertex in each cell whose corners are not all on
// the same side: the average of the weighted zero crossings on its edges.
func (s *surfaceNets) placeVertices() {
	var corners [8]float32
	for z := 0; z < s.cells.Z; z++ {
		for y := 0; y < s.cells.Y; y++ {
			for x := 0; x < s.cells.X; x++ {
				cell := s.cells.Index(x, y, z)

				var mask uint8
				for i, o := range cornerOffsets {
					corners[i] = s.sample(x+o[0], y+o[1], z+o[2])
					if solid(corners[i]) {
						mask |= 1 << i
					}
				}
				if mask == 0 || mask == 0xFF {
					s.cellVertex[cell] = noVertex
					continue
				}

				local := cellCrossingMean(&corners)
				v := mgl32.Vec3{
					(float32(x) + local[0]) * s.voxelSize,
					(float32(y) + local[1]) * s.voxelSize,
					(float32(z) + local[2]) * s.voxelSize,
				}
				s.cellVertex[cell] = uint32(len(s.mesh.Vertices))
				s.mesh.Vertices = append(s.mesh.Vertices, v)
			}
		}
	}
}

// cellCrossingMean averages, in cell-local [0,1]^3 coordinates, the points
// where the surface crosses the cell's sign-changing edges. Each endpoint is
// weighted by 1/(|d|+eps), pulling the crossing toward the endpoint nearer
// the surface.
func cellCrossingMean(corners *[8]float32) mgl32.Vec3 {
	var sum mgl32.Vec3
	var n float32
	for _, e := range cellEdges {
		da, db := corners[e[0]], corners[e[1]]
		if solid(da) == solid(db) {
			continue
		}
		wa := 1 / (abs32(da) + crossingEpsilon)
		wb := 1 / (abs32(db) + crossingEpsilon)
		pa := cornerOffsets[e[0]]
		pb := cornerOffsets[e[1]]
		for axis := 0; axis < 3; axis++ {
			sum[axis] += (float32(pa[axis])*wa + float32(pb[axis])*wb) / (wa + wb)
		}
		n++
	}
	return sum.Mul(1 / n)
}

// emitQuads walks every lattice edge parallel to each axis. Where the
// endpoints disagree in sign, the four cells around the edge form a quad.
func (s *surfaceNets) emitQuads() {
	cells := [3]int{s.cells.X, s.cells.Y, s.cells.Z}
	for k := 0; k < 3; k++ {
		u := (k + 1) % 3
		v := (k + 2) % 3

		// An edge along k starting at lattice point a touches cells
		// a, a-u, a-v and a-u-v, so a[u] and a[v] start at 1.
		var lo, hi [3]int
		lo[k], hi[k] = 0, cells[k]-1
		if s.apron {
			hi[k] = cells[k] - 2
		}
		lo[u], hi[u] = 1, cells[u]-1
		lo[v], hi[v] = 1, cells[v]-1

		var a [3]int
		for a[2] = lo[2]; a[2] <= hi[2]; a[2]++ {
			for a[1] = lo[1]; a[1] <= hi[1]; a[1]++ {
				for a[0] = lo[0]; a[0] <= hi[0]; a[0]++ {
					s.emitEdge(a, k, u, v)
				}
			}
		}
	}
}

func (s *surfaceNets) emitEdge(a [3]int, k, u, v int) {
	b := a
	b[k]++
	da := s.sample(a[0], a[1], a[2])
	db := s.sample(b[0], b[1], b[2])
	if solid(da) == solid(db) {
		return
	}

	// Cells around the edge, counter-clockwise when looking down -k
	// (u x v == k for the cyclic axis order).
	c00 := s.cellAt(a, u, -1, v, -1)
	c10 := s.cellAt(a, u, 0, v, -1)
	c11 := s.cellAt(a, u, 0, v, 0)
	c01 := s.cellAt(a, u, -1, v, 0)
	if c00 == noVertex || c10 == noVertex || c11 == noVertex || c01 == noVertex {
		return
	}

	// Density grows toward the air side. If a is solid the outward normal
	// points along +k and the ring above already winds the right way.
	var q [4]uint32
	if solid(da) {
		q = [4]uint32{c00, c10, c11, c01}
	} else {
		q = [4]uint32{c00, c01, c11, c10}
	}

	g := s.edgeGradient(a, b, k, u, v)
	s.appendQuad(q, g)
}

// cellAt returns the vertex of the cell at a offset by du along u and dv
// along v.
func (s *surfaceNets) cellAt(a [3]int, u, du, v, dv int) uint32 {
	c := a
	c[u] += du
	c[v] += dv
	return s.cellVertex[s.cells.Index(c[0], c[1], c[2])]
}

// edgeGradient estimates the density gradient at the midpoint of edge a-b:
// a forward difference along the edge and centred differences across it,
// averaged over both endpoints. All stencil points lie inside the grid
// because a[u] and a[v] are at least 1 and at most cells-1.
func (s *surfaceNets) edgeGradient(a, b [3]int, k, u, v int) mgl32.Vec3 {
	var g mgl32.Vec3
	g[k] = s.sample(b[0], b[1], b[2]) - s.sample(a[0], a[1], a[2])
	for _, axis := range [2]int{u, v} {
		var sum float32
		for _, p := range [2][3]int{a, b} {
			hi, lo := p, p
			hi[axis]++
			lo[axis]--
			sum += s.sample(hi[0], hi[1], hi[2]) - s.sample(lo[0], lo[1], lo[2])
		}
		g[axis] = sum / 4
	}
	return g
}

// appendQuad splits the ring q into two triangles. The winding is already
// fixed by q; only the diagonal is chosen here, picking the split whose
// worse triangle lines up best with the gradient.
func (s *surfaceNets) appendQuad(q [4]uint32, g mgl32.Vec3) {
	vs := s.mesh.Vertices
	p0, p1, p2, p3 := vs[q[0]], vs[q[1]], vs[q[2]], vs[q[3]]

	scoreA := min(alignment(p0, p1, p2, g), alignment(p0, p2, p3, g))
	scoreB := min(alignment(p0, p1, p3, g), alignment(p1, p2, p3, g))

	if scoreA >= scoreB {
		s.mesh.Indices = append(s.mesh.Indices, q[0], q[1], q[2], q[0], q[2], q[3])
	} else {
		s.mesh.Indices = append(s.mesh.Indices, q[0], q[1], q[3], q[1], q[2], q[3])
	}
}

// alignment is the cosine-like agreement between the triangle normal and g,
// scaled by |g|. Degenerate triangles score 0.
func alignment(a, b, c, g mgl32.Vec3) float32 {
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Len()
	if l == 0 {
		return 0
	}
	return n.Dot(g) / l
}

func abs32(f float32) float32 {
	return float32(math.Abs(float64(f)))
}
