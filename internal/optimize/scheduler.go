package optimize

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nec-research/neoagdt/logger"
)

// Result pairs one instance with its outcome. A panicking solve is
// reported through Err rather than taking down its siblings.
type Result struct {
	Instance *Instance
	Solution Solution
	Err      error
}

// SolveAll solves the instances with at most procs running concurrently
// and returns results in instance order. Cancelling the context stops
// scheduling new solves; running ones finish their own time limits.
func SolveAll(ctx context.Context, instances []*Instance, procs int) []Result {
	results := make([]Result, len(instances))

	g, ctx := errgroup.WithContext(ctx)
	if procs > 0 {
		g.SetLimit(procs)
	}

	for i, inst := range instances {
		i, inst := i, inst
		g.Go(func() error {
			results[i] = solveOne(ctx, inst)
			return nil
		})
	}

	// per-instance failures live in the results, never in the group
	_ = g.Wait()
	return results
}

func solveOne(ctx context.Context, inst *Instance) (res Result) {
	res.Instance = inst

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("solve %s/%s/%d panicked: %v",
				inst.OptimizationName, inst.SimulationName, inst.Repetition, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	start := time.Now()
	res.Solution = Solve(inst)

	logger.Info("solved design instance",
		zap.String("optimization", inst.OptimizationName),
		zap.String("simulation", inst.SimulationName),
		zap.Int("repetition", inst.Repetition),
		zap.String("status", res.Solution.Status.String()),
		zap.Int("selected", len(res.Solution.Selected)),
		zap.Float64("objective", res.Solution.Objective),
		zap.Int64("nodes", res.Solution.Nodes),
		zap.Duration("elapsed", time.Since(start)))
	return res
}
