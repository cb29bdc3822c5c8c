package common

import (
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// ParallelFor calls fn(i) for every i in [0, n) on the worker pool and returns when all calls
// have finished. Each call must only write state owned by its index.
// A per-call WaitGroup is the barrier: pool.Wait() would also wait on unrelated tasks.
// With a nil pool, or n < 2, the calls run inline on the calling goroutine.
//
// The pool must not be the one running the caller: a task that submits to its own pool
// and waits can deadlock once every worker is blocked.
//
// Parameters:
//   - pool: the worker pool to run on, or nil to run inline
//   - n: the number of indices
//   - fn: the work for one index
func ParallelFor(pool worker.DynamicWorkerPool, n int, fn func(i int)) {
	if pool == nil || n < 2 {
		for i := range n {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				fn(i)
				return nil, nil
			},
		})
	}
	wg.Wait()
}
