// Package parallel runs independent index-range work on a fork-join set of
// goroutines.
//
// Workers are spawned fresh for every call and joined before it returns.
// The range [0, n) is split into contiguous, roughly equal chunks, one per
// worker, so a worker that only writes the slots of its own chunk needs no
// locking.
package parallel

import (
	"fmt"
	"runtime"

	"github.com/nvandessel/enstat/internal/errkind"
	"golang.org/x/sync/errgroup"
)

// Workers returns the worker count for n independent items. A positive
// requested count is used as is, even above NumCPU; otherwise the count is
// max(NumCPU, 1). Either way it is capped at n.
func Workers(n, requested int) int {
	w := max(runtime.NumCPU(), 1)
	if requested > 0 {
		w = requested
	}
	return min(w, n)
}

// Chunk is the half-open index range [Lo, Hi) assigned to one worker.
type Chunk struct {
	Worker int
	Lo, Hi int
}

// Split divides [0, n) into workers contiguous chunks whose sizes differ by
// at most one.
func Split(n, workers int) []Chunk {
	if n <= 0 || workers <= 0 {
		return nil
	}
	workers = min(workers, n)
	chunks := make([]Chunk, workers)
	for w := range chunks {
		chunks[w] = Chunk{Worker: w, Lo: w * n / workers, Hi: (w + 1) * n / workers}
	}
	return chunks
}

// For runs fn once per chunk of [0, n) on its own goroutine and waits for
// all of them. It returns the first error reported by any chunk; the other
// chunks still run to completion.
func For(n, workers int, fn func(c Chunk) error) error {
	if n < 0 || workers < 0 {
		return fmt.Errorf("parallel range n=%d workers=%d: %w", n, workers, errkind.InvalidArgument)
	}
	var g errgroup.Group
	for _, c := range Split(n, Workers(n, workers)) {
		g.Go(func() error {
			return fn(c)
		})
	}
	return g.Wait()
}
