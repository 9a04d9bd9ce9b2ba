package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runAll dispatches tasks to the executor across at most workers concurrent
// goroutines and blocks until every outcome has been collected. With
// workers <= 1 tasks run one at a time in planner order. Outcomes are
// indexed by task position, so the returned slice is in planner order
// regardless of completion order. Tasks share no mutable state; each slot
// of the outcome slice is written by exactly one goroutine.
func runAll(ctx context.Context, ex *Executor, tasks []Task, workers int) []Outcome {
	if workers < 1 {
		workers = 1
	}

	outcomes := make([]Outcome, len(tasks))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = Outcome{Task: t, Status: FailedAfterRetries, Err: err}
				return nil
			}
			outcomes[i] = ex.Execute(t)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in outcomes
	return outcomes
}
