package world

import (
	"sort"
	"sync"

	"sdf-terrain/internal/profiling"
)

// ChunkStore manages the storage and retrieval of chunks.
type ChunkStore struct {
	chunks map[ChunkCoord]*Chunk
	mu     sync.RWMutex
}

// NewChunkStore creates a new chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		chunks: make(map[ChunkCoord]*Chunk),
	}
}

// GetChunk returns the chunk at coord. If it does not exist and create is
// true it is created (dirty, unbuilt); created reports whether that happened.
func (cs *ChunkStore) GetChunk(coord ChunkCoord, create bool) (chunk *Chunk, created bool) {
	cs.mu.RLock()
	chunk, exists := cs.chunks[coord]
	cs.mu.RUnlock()
	if exists || !create {
		return chunk, false
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	// Double-check: another goroutine may have created it while we waited.
	if existing, ok := cs.chunks[coord]; ok {
		return existing, false
	}
	chunk = NewChunk(coord)
	cs.chunks[coord] = chunk
	return chunk, true
}

// Len returns the number of loaded chunks.
func (cs *ChunkStore) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.chunks)
}

// All returns every loaded chunk ordered by coordinate (z, then y, then x).
func (cs *ChunkStore) All() []*Chunk {
	cs.mu.RLock()
	out := make([]*Chunk, 0, len(cs.chunks))
	for _, c := range cs.chunks {
		out = append(out, c)
	}
	cs.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return coordLess(out[i].Coord, out[j].Coord) })
	return out
}

// EvictFarChunks removes chunks whose XZ column lies outside radius (in
// chunks) of the column (cx, cz). Returns the number of removed chunks.
func (cs *ChunkStore) EvictFarChunks(cx, cz, radius int) int {
	defer profiling.Track("world.EvictFarChunks")()
	removed := 0
	cs.mu.Lock()
	for coord := range cs.chunks {
		dx := coord.X - cx
		dz := coord.Z - cz
		if dx*dx+dz*dz > radius*radius {
			delete(cs.chunks, coord)
			removed++
		}
	}
	cs.mu.Unlock()
	return removed
}

func coordLess(a, b ChunkCoord) bool {
	if a.Z != b.Z {
		return a.Z < b.Z
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}
