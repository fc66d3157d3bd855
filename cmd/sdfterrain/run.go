package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"sdf-terrain/internal/config"
	"sdf-terrain/internal/editlog"
	"sdf-terrain/internal/field"
	"sdf-terrain/internal/meshing"
	"sdf-terrain/internal/preview"
	"sdf-terrain/internal/world"

	"github.com/deadsy/sdfx/sdf"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/xlab/closer"
)

// run streams the configured region, applies edits and digs, rebuilds, and
// writes the requested outputs. Cleanup is registered with closer.
func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	terrain := cfg.Terrain.Field()
	layout := cfg.Chunks.Layout()

	var store *editlog.Store
	if cfg.Output.Store != "" {
		var err error
		if store, err = editlog.OpenStore(cfg.Output.Store); err != nil {
			return err
		}
		closer.Bind(func() {
			if err := store.Close(); err != nil {
				log.Error("close edit store", "error", err)
			}
		})
	}

	history, err := loadHistory(ctx, cfg, store, log)
	if err != nil {
		return err
	}

	pool := meshing.NewWorkerPool(cfg.Workers.Count, cfg.Workers.QueueSize)
	closer.Bind(pool.Shutdown)

	coord, err := world.NewCoordinator(layout, &terrain, history, pool, log)
	if err != nil {
		return err
	}

	center := mgl64.Vec3(cfg.Stream.Center)
	created := coord.StreamAround(center, cfg.Stream.Radius)
	evicted := coord.EvictFarChunks(center, cfg.Stream.EvictRadius)
	log.Info("streamed", "center", center, "created", created, "evicted", evicted, "loaded", coord.Store().Len())

	if history.Len() == 0 {
		if err := applyConfigured(ctx, cfg, coord, store, &terrain, log); err != nil {
			return err
		}
	} else {
		log.Info("restored history; skipping configured edits", "edits", history.Len())
	}

	stats, err := coord.Rebuild(ctx)
	if err != nil {
		return err
	}
	log.Info("terrain built", "chunks", stats.Chunks, "vertices", stats.Vertices, "triangles", stats.Indices/3, "elapsed", stats.Elapsed)

	if err := writeOutputs(cfg, coord, &terrain, log); err != nil {
		return err
	}
	if cfg.Output.Snapshot != "" {
		if err := editlog.SaveSnapshot(cfg.Output.Snapshot, coord.Edits()); err != nil {
			return err
		}
		log.Info("wrote snapshot", "path", cfg.Output.Snapshot, "edits", coord.Edits().Len())
	}
	return nil
}

// loadHistory restores earlier edits: from the store when one is configured,
// otherwise from an existing snapshot.
func loadHistory(ctx context.Context, cfg config.Config, store *editlog.Store, log *slog.Logger) (*editlog.Log, error) {
	if store != nil {
		l, err := store.Load(ctx)
		if err != nil {
			return nil, err
		}
		log.Info("loaded edit store", "path", cfg.Output.Store, "edits", l.Len())
		return l, nil
	}
	if cfg.Output.Snapshot == "" {
		return editlog.New(), nil
	}
	l, err := editlog.LoadSnapshot(cfg.Output.Snapshot)
	if errors.Is(err, os.ErrNotExist) {
		return editlog.New(), nil
	}
	if err != nil {
		return nil, err
	}
	log.Info("loaded snapshot", "path", cfg.Output.Snapshot, "edits", l.Len())
	return l, nil
}

// applyConfigured runs the config's edits and then its digs. It only runs on
// an empty history: digs aim at the current surface, so replaying them over
// a restored log would carve deeper on every run.
func applyConfigured(ctx context.Context, cfg config.Config, coord *world.Coordinator, store *editlog.Store, terrain *field.TerrainField, log *slog.Logger) error {
	edits, err := cfg.FieldEdits()
	if err != nil {
		return err
	}
	for _, e := range edits {
		if err := applyEdit(ctx, coord, store, e); err != nil {
			return err
		}
	}
	for i, d := range cfg.Digs {
		if err := dig(ctx, coord, store, terrain, d, log); err != nil {
			return fmt.Errorf("dig %d: %w", i, err)
		}
	}
	return nil
}

func applyEdit(ctx context.Context, coord *world.Coordinator, store *editlog.Store, e field.Edit) error {
	if _, err := coord.ApplyEdit(e); err != nil {
		return err
	}
	if store == nil {
		return nil
	}
	c := coord.Layout().ChunkAt(e.Center)
	_, err := store.Append(ctx, [3]int{c.X, c.Y, c.Z}, e)
	return err
}

func dig(ctx context.Context, coord *world.Coordinator, store *editlog.Store, terrain *field.TerrainField, d config.Dig, log *slog.Logger) error {
	op, err := d.Operation()
	if err != nil {
		return err
	}
	maxDist := d.MaxDistance
	if maxDist <= 0 {
		maxDist = field.MaxReachDistance
	}
	hit := terrain.Raycast(mgl64.Vec3(d.Origin), mgl64.Vec3(d.Direction), field.MinReachDistance, maxDist, coord.Edits().Entries())
	if !hit.Hit {
		log.Warn("dig missed", "origin", d.Origin, "direction", d.Direction, "max_distance", maxDist)
		return nil
	}
	log.Debug("dig hit", "position", hit.Position, "distance", hit.Distance)
	return applyEdit(ctx, coord, store, field.Edit{Center: hit.Position, Radius: d.Radius, Op: op})
}

func writeOutputs(cfg config.Config, coord *world.Coordinator, terrain *field.TerrainField, log *slog.Logger) error {
	meshes := coord.Meshes()

	if cfg.Output.STL != "" {
		var tris []*sdf.Triangle3
		for _, cm := range meshes {
			tris = cm.Mesh.AppendTriangles(tris, cm.Origin)
		}
		if err := meshing.SaveSTL(cfg.Output.STL, tris); err != nil {
			return err
		}
		log.Info("wrote stl", "path", cfg.Output.STL, "triangles", len(tris))
	}

	if cfg.Output.ReferenceSTL != "" && len(meshes) > 0 {
		layout := coord.Layout()
		min, _ := layout.Bounds(meshes[0].Coord)
		max := min
		for _, cm := range meshes {
			lo, hi := layout.Bounds(cm.Coord)
			for i := 0; i < 3; i++ {
				min[i] = math.Min(min[i], lo[i])
				max[i] = math.Max(max[i], hi[i])
			}
		}
		solid := &field.Solid{Field: terrain, Edits: coord.Edits().Entries(), Min: min, Max: max}
		tris := solid.ReferenceTriangles(cfg.Output.ReferenceCells)
		if err := meshing.SaveSTL(cfg.Output.ReferenceSTL, tris); err != nil {
			return err
		}
		log.Info("wrote reference stl", "path", cfg.Output.ReferenceSTL, "triangles", len(tris))
	}

	if cfg.Output.SlicePNG != "" {
		if err := writeSlice(cfg, coord); err != nil {
			return err
		}
		log.Info("wrote slice", "path", cfg.Output.SlicePNG, "z", cfg.Output.SliceZ)
	}
	return nil
}

// writeSlice renders the density layer nearest SliceZ of the chunk that
// contains the stream centre.
func writeSlice(cfg config.Config, coord *world.Coordinator) error {
	layout := coord.Layout()
	p := mgl64.Vec3(cfg.Stream.Center)
	p[2] = cfg.Output.SliceZ
	cc := layout.ChunkAt(p)
	ch := coord.Chunk(cc)
	if ch == nil || ch.Grid() == nil {
		return fmt.Errorf("slice: chunk %v not built", cc)
	}
	g := ch.Grid()
	z := int(math.Round((cfg.Output.SliceZ - layout.Origin(cc)[2]) / layout.VoxelSize))
	z = min(max(z, 0), g.Dims.Z-1)
	img, err := preview.Slice(g, z)
	if err != nil {
		return err
	}
	return preview.WritePNG(cfg.Output.SlicePNG, preview.Upscale(img, cfg.Output.SliceScale))
}
