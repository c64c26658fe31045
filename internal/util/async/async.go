package async

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// MaxConcurrency bounds how many tasks run at once.
const MaxConcurrency = 8

// Task is a named operation.
type Task struct {
	Name string
	Func func(context.Context) error
}

// Result is the outcome of one Task.
type Result struct {
	Name    string
	Err     error
	Elapsed time.Duration
}

// RunAll executes tasks concurrently and waits for all of them. A failing
// task does not cancel the others. Results are returned in the order of
// tasks, regardless of completion order.
func RunAll(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))

	var g errgroup.Group
	g.SetLimit(MaxConcurrency)
	for i, task := range tasks {
		g.Go(func() error {
			start := time.Now()
			err := task.Func(ctx)
			results[i] = Result{Name: task.Name, Err: err, Elapsed: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// FirstError returns the first failed result's error, or nil.
func FirstError(results []Result) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
