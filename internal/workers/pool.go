// Package workers provides a fixed-size worker pool for parallel sampling runs.
package workers

import (
	"runtime"
	"sync"
)

// ProgressFunc is called as chunks complete, with the number of completed
// chunks and the total chunk count.
type ProgressFunc func(completed, total int)

// WorkerPool manages a pool of worker goroutines for parallel chunk processing
type WorkerPool struct {
	numWorkers int
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{
		numWorkers: numWorkers,
	}
}

// NumWorkers returns the configured worker count
func (wp *WorkerPool) NumWorkers() int {
	return wp.numWorkers
}

// RunChunks executes fn for every chunk index in [0, numChunks) across the
// pool's workers and blocks until all chunks complete.
//
// Each chunk index is processed exactly once. Callers typically have fn write
// into a pre-allocated results slice at the chunk index, which needs no
// locking because every chunk owns a distinct slot. Chunk completion order is
// unspecified; result order is determined by the chunk index alone.
func (wp *WorkerPool) RunChunks(numChunks int, fn func(chunk int), progress ProgressFunc) {
	if numChunks <= 0 {
		return
	}

	// Create channels for work distribution and completion tracking
	jobs := make(chan int, numChunks)
	done := make(chan int, numChunks)

	// Start workers
	var wg sync.WaitGroup
	numActualWorkers := wp.numWorkers
	if numChunks < numActualWorkers {
		numActualWorkers = numChunks // Don't spawn more workers than chunks
	}

	for i := 0; i < numActualWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range jobs {
				fn(chunk)
				done <- chunk
			}
		}()
	}

	// Send chunk indexes to workers
	for chunk := 0; chunk < numChunks; chunk++ {
		jobs <- chunk
	}
	close(jobs)

	// Close the completion channel once all workers finish
	go func() {
		wg.Wait()
		close(done)
	}()

	// Collect completions; progress callbacks run on this goroutine only
	completed := 0
	for range done {
		completed++
		if progress != nil {
			progress(completed, numChunks)
		}
	}
}

// ChunkCount returns the number of fixed-size chunks needed to cover total items
func ChunkCount(total, chunkSize int) int {
	if total <= 0 || chunkSize <= 0 {
		return 0
	}
	return (total + chunkSize - 1) / chunkSize
}
