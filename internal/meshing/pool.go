package meshing

import (
	"context"
	"sync"

	"sdf-terrain/internal/density"
)

// Key identifies the chunk a job belongs to.
type Key [3]int

// MeshJob is one chunk rebuild: sample the density, then extract the mesh.
type MeshJob struct {
	Key       Key
	Sample    func() (*density.Grid, error)
	VoxelSize float32
	Options   Options
	// Result channel - will be sent the result when done
	ResultChan chan MeshResult
}

// MeshResult carries a finished rebuild. On error Grid and Mesh are nil.
type MeshResult struct {
	Key  Key
	Grid *density.Grid
	Mesh *Mesh
	Err  error
}

// WorkerPool runs chunk rebuild jobs on a fixed set of goroutines.
type WorkerPool struct {
	jobQueue chan MeshJob
	workers  int
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	once     sync.Once
}

// NewWorkerPool creates a pool with the given number of workers and job
// queue capacity.
func NewWorkerPool(workers int, queueSize int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	pool := &WorkerPool{
		jobQueue: make(chan MeshJob, queueSize),
		workers:  max(workers, 1),
		ctx:      ctx,
		cancel:   cancel,
	}

	for range pool.workers {
		pool.wg.Add(1)
		go pool.worker()
	}

	return pool
}

// SubmitBlocking queues a job, waiting for queue space. It returns
// ctx.Err() if ctx ends first, or context.Canceled if the pool shuts down.
func (p *WorkerPool) SubmitBlocking(ctx context.Context, job MeshJob) error {
	select {
	case <-p.ctx.Done():
		return context.Canceled
	default:
	}
	select {
	case p.jobQueue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return context.Canceled
	}
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			result := run(job)
			select {
			case job.ResultChan <- result:
			case <-p.ctx.Done():
				return
			}

		case <-p.ctx.Done():
			return
		}
	}
}

func run(job MeshJob) MeshResult {
	grid, err := job.Sample()
	if err != nil {
		return MeshResult{Key: job.Key, Err: err}
	}
	mesh, err := ExtractGrid(grid, job.VoxelSize, job.Options)
	if err != nil {
		return MeshResult{Key: job.Key, Err: err}
	}
	return MeshResult{Key: job.Key, Grid: grid, Mesh: mesh}
}

// Shutdown stops the workers and waits for them to exit. Jobs still queued
// are dropped. Safe to call more than once.
func (p *WorkerPool) Shutdown() {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}
