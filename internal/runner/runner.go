// Package runner executes a bounded pool of independent tasks, preserving
// one result per task at the task's original index regardless of completion
// order. Workers pull the next unclaimed index until the task list is
// exhausted; the first task failure cancels the pool and is returned to the
// caller.
package runner

import (
	"context"
	"sync"
	"sync/atomic"
)

// Task produces one result. Tasks must be independent of each other.
type Task[T any] func(ctx context.Context) (T, error)

// Run executes tasks with at most limit in flight. Results are returned in
// submission order. A limit below 1 is treated as 1; the worker count never
// exceeds the task count.
func Run[T any](ctx context.Context, limit int, tasks []Task[T]) ([]T, error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	if limit < 1 {
		limit = 1
	}
	workers := limit
	if workers > len(tasks) {
		workers = len(tasks)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]T, len(tasks))
	var next atomic.Int64
	var once sync.Once
	var firstErr error
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx := int(next.Add(1)) - 1
				if idx >= len(tasks) {
					return
				}
				if ctx.Err() != nil {
					once.Do(func() { firstErr = ctx.Err() })
					return
				}
				result, err := tasks[idx](ctx)
				if err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
					return
				}
				results[idx] = result
			}
		}()
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
