// Package world owns the chunk grid: which chunks are loaded, which need a
// rebuild, and how each chunk's density and mesh are rebuilt so that
// neighbouring chunks meet without seams.
package world

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"sdf-terrain/internal/density"
	"sdf-terrain/internal/editlog"
	"sdf-terrain/internal/field"
	"sdf-terrain/internal/meshing"
	"sdf-terrain/internal/profiling"

	"github.com/go-gl/mathgl/mgl64"
)

// Coordinator decides which chunks are dirty and rebuilds them on a worker
// pool. Dirty marking happens synchronously in ApplyEdit, before any rebuild
// is dispatched; rebuild jobs only read the edit log and write their own
// chunk.
type Coordinator struct {
	layout Layout
	field  *field.TerrainField
	edits  *editlog.Log
	pool   *meshing.WorkerPool
	store  *ChunkStore
	log    *slog.Logger

	// Cached surface chunk-Y span per column (chunkX, chunkZ).
	heightCache   map[[2]int][2]int
	heightCacheMu sync.Mutex
}

// RebuildStats summarises one Rebuild pass.
type RebuildStats struct {
	Chunks   int
	Failed   int
	Vertices int
	Indices  int
	Elapsed  time.Duration
}

// ChunkMesh is a chunk mesh together with the world origin of its
// chunk-local vertex space.
type ChunkMesh struct {
	Coord  ChunkCoord
	Origin mgl64.Vec3
	Mesh   *meshing.Mesh
}

// NewCoordinator wires a coordinator. A nil edit log starts empty and a nil
// logger discards output; the pool is required.
func NewCoordinator(layout Layout, f *field.TerrainField, edits *editlog.Log, pool *meshing.WorkerPool, log *slog.Logger) (*Coordinator, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errors.New("world: nil terrain field")
	}
	if pool == nil {
		return nil, errors.New("world: nil worker pool")
	}
	if edits == nil {
		edits = editlog.New()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{
		layout:      layout,
		field:       f,
		edits:       edits,
		pool:        pool,
		store:       NewChunkStore(),
		log:         log,
		heightCache: make(map[[2]int][2]int),
	}, nil
}

// Layout returns the chunk layout.
func (c *Coordinator) Layout() Layout { return c.layout }

// Edits returns the edit log.
func (c *Coordinator) Edits() *editlog.Log { return c.edits }

// Store returns the chunk store.
func (c *Coordinator) Store() *ChunkStore { return c.store }

// EnsureChunk loads the chunk at coord, creating it dirty if missing.
func (c *Coordinator) EnsureChunk(coord ChunkCoord) *Chunk {
	ch, _ := c.store.GetChunk(coord, true)
	return ch
}

// Chunk returns the loaded chunk at coord, or nil.
func (c *Coordinator) Chunk(coord ChunkCoord) *Chunk {
	ch, _ := c.store.GetChunk(coord, false)
	return ch
}

// StreamAround loads every chunk that can hold surface within radius (in
// chunks, XZ disc) of p. Returns the number of newly created chunks.
func (c *Coordinator) StreamAround(p mgl64.Vec3, radius int) int {
	defer profiling.Track("world.StreamAround")()
	center := c.layout.ChunkAt(p)
	created := 0
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			if dx*dx+dz*dz > radius*radius {
				continue
			}
			cx, cz := center.X+dx, center.Z+dz
			span := c.columnSpan(cx, cz)
			for cy := span[0]; cy <= span[1]; cy++ {
				if _, ok := c.store.GetChunk(ChunkCoord{X: cx, Y: cy, Z: cz}, true); ok {
					created++
				}
			}
		}
	}
	if created > 0 {
		c.log.Debug("streamed chunks", "center", center.String(), "radius", radius, "created", created)
	}
	return created
}

// columnSpan returns the chunk-Y range that can contain the ground surface
// of column (cx, cz), padded by one chunk each way for edits.
func (c *Coordinator) columnSpan(cx, cz int) [2]int {
	key := [2]int{cx, cz}
	c.heightCacheMu.Lock()
	defer c.heightCacheMu.Unlock()
	if span, ok := c.heightCache[key]; ok {
		return span
	}

	min, max := c.layout.Bounds(ChunkCoord{X: cx, Z: cz})
	lo, hi := math.Inf(1), math.Inf(-1)
	const steps = 4
	for i := 0; i <= steps; i++ {
		for j := 0; j <= steps; j++ {
			x := min[0] + (max[0]-min[0])*float64(i)/steps
			z := min[2] + (max[2]-min[2])*float64(j)/steps
			h := c.field.SurfaceHeight(x, z)
			lo = math.Min(lo, h)
			hi = math.Max(hi, h)
		}
	}
	span := [2]int{
		c.layout.ChunkAt(mgl64.Vec3{0, lo, 0}).Y - 1,
		c.layout.ChunkAt(mgl64.Vec3{0, hi, 0}).Y + 1,
	}
	c.heightCache[key] = span
	return span
}

// EvictFarChunks unloads chunks whose column is farther than radius chunks
// from the column containing p.
func (c *Coordinator) EvictFarChunks(p mgl64.Vec3, radius int) int {
	center := c.layout.ChunkAt(p)
	removed := c.store.EvictFarChunks(center.X, center.Z, radius)

	c.heightCacheMu.Lock()
	for key := range c.heightCache {
		dx := key[0] - center.X
		dz := key[1] - center.Z
		if dx*dx+dz*dz > radius*radius {
			delete(c.heightCache, key)
		}
	}
	c.heightCacheMu.Unlock()

	if removed > 0 {
		c.log.Debug("evicted chunks", "center", center.String(), "radius", radius, "removed", removed)
	}
	return removed
}

// ApplyEdit appends e to the edit log and marks dirty every loaded chunk
// whose expanded bounds the edit's influence reaches, including chunks
// that only share a boundary layer with the edit's own chunk.
func (c *Coordinator) ApplyEdit(e field.Edit) (int, error) {
	seq, err := c.edits.Append(e)
	if err != nil {
		return 0, fmt.Errorf("world: apply edit: %w", err)
	}
	dirtied := c.markEditDirty(e)
	c.log.Debug("applied edit", "seq", seq, "op", e.Op.String(), "center", e.Center, "radius", e.Radius, "dirtied", dirtied)
	return seq, nil
}

func (c *Coordinator) markEditDirty(e field.Edit) int {
	// Candidate range padded by the expanded-bounds voxel plus one more for
	// ChunkAt's half-open cells; the exact test below decides.
	emin, emax := e.Bounds()
	pad := 2 * c.layout.VoxelSize
	v := mgl64.Vec3{pad, pad, pad}
	lo := c.layout.ChunkAt(emin.Sub(v))
	hi := c.layout.ChunkAt(emax.Add(v))

	n := 0
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				coord := ChunkCoord{X: x, Y: y, Z: z}
				ch, _ := c.store.GetChunk(coord, false)
				if ch == nil {
					continue
				}
				bmin, bmax := c.layout.ExpandedBounds(coord)
				if e.IntersectsBox(bmin, bmax) {
					ch.markDirty()
					n++
				}
			}
		}
	}
	return n
}

// MarkDirty flags a loaded chunk for rebuild. It returns false if the chunk
// is not loaded.
func (c *Coordinator) MarkDirty(coord ChunkCoord) bool {
	ch, _ := c.store.GetChunk(coord, false)
	if ch == nil {
		return false
	}
	ch.markDirty()
	return true
}

// DirtyChunks lists the coordinates of dirty chunks in coordinate order.
func (c *Coordinator) DirtyChunks() []ChunkCoord {
	var out []ChunkCoord
	for _, ch := range c.store.All() {
		if ch.IsDirty() {
			out = append(out, ch.Coord)
		}
	}
	return out
}

// Meshes returns the built meshes of all loaded chunks in coordinate order.
// Chunks that have not been built yet are skipped.
func (c *Coordinator) Meshes() []ChunkMesh {
	var out []ChunkMesh
	for _, ch := range c.store.All() {
		if m := ch.Mesh(); m != nil {
			out = append(out, ChunkMesh{Coord: ch.Coord, Origin: c.layout.Origin(ch.Coord), Mesh: m})
		}
	}
	return out
}

type pendingBuild struct {
	chunk *Chunk
	stamp uint64
}

// Rebuild resamples and remeshes every dirty chunk. The dirty set is
// captured up front; edits applied while the pass runs re-dirty their
// chunks for the next pass. A chunk whose job fails keeps its previous
// buffers and stays dirty.
func (c *Coordinator) Rebuild(ctx context.Context) (RebuildStats, error) {
	if err := ctx.Err(); err != nil {
		return RebuildStats{}, err
	}
	start := time.Now()
	profiling.Reset()

	pending := make(map[meshing.Key]pendingBuild)
	for _, ch := range c.store.All() {
		if stamp, dirty := ch.dirtyStamp(); dirty {
			pending[chunkKey(ch.Coord)] = pendingBuild{chunk: ch, stamp: stamp}
		}
	}
	if len(pending) == 0 {
		return RebuildStats{}, nil
	}

	edits := c.edits.Entries()
	dims := c.layout.SampleDims()
	results := make(chan meshing.MeshResult, len(pending))

	keys := make([]meshing.Key, 0, len(pending))
	for k := range pending {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return coordLess(pending[keys[i]].chunk.Coord, pending[keys[j]].chunk.Coord)
	})

	submitted := 0
	var submitErr error
	for _, k := range keys {
		coord := pending[k].chunk.Coord
		job := meshing.MeshJob{
			Key: k,
			Sample: func() (*density.Grid, error) {
				min, max := c.layout.ExpandedBounds(coord)
				local := editlog.FilterEdits(edits, min, max)
				return density.SampleLattice(c.layout.LatticeBase(coord), dims, c.layout.VoxelSize, c.field, local)
			},
			VoxelSize:  float32(c.layout.VoxelSize),
			Options:    meshing.Options{Apron: c.layout.Apron},
			ResultChan: results,
		}
		if err := c.pool.SubmitBlocking(ctx, job); err != nil {
			submitErr = err
			break
		}
		submitted++
	}

	stats := RebuildStats{}
	var firstErr error
	for i := 0; i < submitted; i++ {
		var r meshing.MeshResult
		select {
		case r = <-results:
		case <-ctx.Done():
			stats.Elapsed = time.Since(start)
			return stats, ctx.Err()
		}
		p := pending[r.Key]
		if r.Err != nil {
			stats.Failed++
			if firstErr == nil {
				firstErr = r.Err
			}
			c.log.Error("chunk rebuild failed", "chunk", p.chunk.Coord.String(), "error", r.Err)
			continue
		}
		p.chunk.install(r.Grid, r.Mesh, p.stamp)
		stats.Chunks++
		stats.Vertices += r.Mesh.VertexCount()
		stats.Indices += len(r.Mesh.Indices)
	}
	stats.Elapsed = time.Since(start)

	c.log.Info("rebuild complete",
		"chunks", stats.Chunks,
		"failed", stats.Failed,
		"vertices", stats.Vertices,
		"indices", stats.Indices,
		"elapsed", stats.Elapsed,
		"top", profiling.TopN(3),
	)

	if submitErr != nil {
		return stats, submitErr
	}
	if firstErr != nil {
		return stats, fmt.Errorf("world: %d of %d chunks failed: %w", stats.Failed, submitted, firstErr)
	}
	return stats, nil
}

func chunkKey(c ChunkCoord) meshing.Key {
	return meshing.Key{c.X, c.Y, c.Z}
}
