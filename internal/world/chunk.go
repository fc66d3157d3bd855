package world

import (
	"sync"

	"sdf-terrain/internal/density"
	"sdf-terrain/internal/meshing"
)

// Chunk holds the current density grid and mesh of one chunk. Both are
// replaced together on rebuild and never mutated in place, so readers may
// keep the pointers they got.
type Chunk struct {
	Coord ChunkCoord

	mu      sync.RWMutex
	grid    *density.Grid
	mesh    *meshing.Mesh
	dirty   bool
	dirtyAt uint64 // bumped on every markDirty
	version uint64 // bumped on every install
}

// NewChunk creates an unbuilt chunk. New chunks start dirty.
func NewChunk(coord ChunkCoord) *Chunk {
	return &Chunk{Coord: coord, dirty: true, dirtyAt: 1}
}

// Grid returns the last sampled density grid, or nil before the first build.
func (c *Chunk) Grid() *density.Grid {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.grid
}

// Mesh returns the last extracted mesh, or nil before the first build.
func (c *Chunk) Mesh() *meshing.Mesh {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mesh
}

// IsDirty reports whether the chunk needs a rebuild.
func (c *Chunk) IsDirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}

// Version counts completed rebuilds.
func (c *Chunk) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

func (c *Chunk) markDirty() {
	c.mu.Lock()
	c.dirty = true
	c.dirtyAt++
	c.mu.Unlock()
}

// dirtyStamp returns the current dirty generation if the chunk is dirty.
func (c *Chunk) dirtyStamp() (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirtyAt, c.dirty
}

// install swaps in a freshly built grid and mesh. The dirty flag is cleared
// only if nothing re-dirtied the chunk since stamp was taken.
func (c *Chunk) install(grid *density.Grid, mesh *meshing.Mesh, stamp uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grid = grid
	c.mesh = mesh
	c.version++
	if c.dirtyAt == stamp {
		c.dirty = false
	}
}
