package meshing

import (
	"context"
	"errors"
	"testing"
	"time"

	"sdf-terrain/internal/density"
)

func planeJob(key Key, h float32, results chan MeshResult) MeshJob {
	return MeshJob{
		Key: key,
		Sample: func() (*density.Grid, error) {
			dims := density.Cube(6)
			values := make([]float32, dims.Volume())
			for z := 0; z < dims.Z; z++ {
				for y := 0; y < dims.Y; y++ {
					for x := 0; x < dims.X; x++ {
						values[dims.Index(x, y, z)] = float32(y) - h
					}
				}
			}
			return density.NewGrid(dims, values)
		},
		VoxelSize:  1,
		ResultChan: results,
	}
}

func TestWorkerPoolRoundTrip(t *testing.T) {
	pool := NewWorkerPool(3, 8)
	defer pool.Shutdown()

	results := make(chan MeshResult, 4)
	keys := []Key{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}, {-1, 0, 2}}
	for _, k := range keys {
		if err := pool.SubmitBlocking(context.Background(), planeJob(k, 2.5, results)); err != nil {
			t.Fatalf("SubmitBlocking(%v): %v", k, err)
		}
	}

	seen := map[Key]bool{}
	for range keys {
		select {
		case r := <-results:
			if r.Err != nil {
				t.Fatalf("job %v: %v", r.Key, r.Err)
			}
			if r.Mesh == nil || r.Mesh.TriangleCount() == 0 {
				t.Fatalf("job %v: empty mesh", r.Key)
			}
			if r.Grid == nil || r.Grid.Dims != density.Cube(6) {
				t.Fatalf("job %v: grid not returned", r.Key)
			}
			seen[r.Key] = true
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for results")
		}
	}
	for _, k := range keys {
		if !seen[k] {
			t.Errorf("no result for %v", k)
		}
	}
}

func TestWorkerPoolReportsSampleError(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	defer pool.Shutdown()

	boom := errors.New("boom")
	results := make(chan MeshResult, 1)
	err := pool.SubmitBlocking(context.Background(), MeshJob{
		Key:        Key{4, 5, 6},
		Sample:     func() (*density.Grid, error) { return nil, boom },
		VoxelSize:  1,
		ResultChan: results,
	})
	if err != nil {
		t.Fatalf("SubmitBlocking on an idle pool: %v", err)
	}
	select {
	case r := <-results:
		if !errors.Is(r.Err, boom) || r.Mesh != nil {
			t.Errorf("result = %+v, want sample error", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
}

func TestWorkerPoolShutdown(t *testing.T) {
	pool := NewWorkerPool(2, 2)
	pool.Shutdown()
	pool.Shutdown()

	err := pool.SubmitBlocking(context.Background(), planeJob(Key{}, 1, make(chan MeshResult, 1)))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("SubmitBlocking after Shutdown = %v, want context.Canceled", err)
	}
}

func TestSubmitBlockingHonoursContext(t *testing.T) {
	pool := NewWorkerPool(1, 0)
	defer pool.Shutdown()

	block := make(chan struct{})
	results := make(chan MeshResult, 2)
	busy := MeshJob{
		Sample: func() (*density.Grid, error) {
			<-block
			return nil, errors.New("released")
		},
		VoxelSize:  1,
		ResultChan: results,
	}
	if err := pool.SubmitBlocking(context.Background(), busy); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := pool.SubmitBlocking(ctx, planeJob(Key{}, 1, results)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("SubmitBlocking = %v, want deadline exceeded", err)
	}
	close(block)
	<-results
}
