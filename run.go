package cua

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/haasonsaas/cua/internal/callback"
	"github.com/haasonsaas/cua/internal/orchestrator"
	"github.com/haasonsaas/cua/internal/responses"
)

// Turn is one yielded step of a run (§6.2): Output is the delta of items
// produced in that turn, Usage is the cumulative total across every turn
// yielded so far in this run.
type Turn struct {
	Output responses.Items
	Usage  responses.Usage
}

// newOrchestrator builds a fresh orchestrator.Orchestrator for one run: a
// new run id, and — when Options.Trajectory was set — a fresh on-disk
// trajectory directory wired in as its own TrajectorySaver on top of the
// Agent's static bundled callbacks. A fresh Orchestrator per run (rather
// than one reused across calls) is what lets the TrajectorySaver's
// one-Writer-per-run-directory design stay that simple.
func (a *Agent) newOrchestrator() (*orchestrator.Orchestrator, error) {
	runID := uuid.NewString()

	chain := callback.NewChain(a.baseCallbacks...)
	if a.trajCfg != nil && a.trajCfg.Dir != "" {
		writer, err := newRunTrajectoryWriter(runID, a.model, a.trajCfg)
		if err != nil {
			return nil, fmt.Errorf("cua: open trajectory writer: %w", err)
		}
		chain.Add(callback.NewTrajectorySaver(writer))
	}

	orch, err := orchestrator.New(a.strategy, a.handler, a.tools, a.model, chain)
	if err != nil {
		return nil, err
	}
	orch.MaxRetries = a.maxRetries
	return orch, nil
}

// Run starts a new run against input (a user-text string or a prior
// responses.Items array, for resumption — §6.2) and returns an async
// iterator of Turn. Each call to Run is an independent run with its own
// run id and cumulative usage counter.
func (a *Agent) Run(ctx context.Context, input any) (<-chan Turn, error) {
	orch, err := a.newOrchestrator()
	if err != nil {
		return nil, err
	}
	turns, err := orch.Run(ctx, input)
	if err != nil {
		return nil, err
	}

	out := make(chan Turn, 8)
	go func() {
		defer close(out)
		for t := range turns {
			select {
			case out <- Turn{Output: t.Items, Usage: t.Usage}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RunCollect drains a run to completion and returns every yielded Turn,
// propagating the run's terminal error (if any) the way orchestrator's own
// RunCollect does — for callers that don't need streaming (e.g. the
// replay/benchmark CLI verbs).
func (a *Agent) RunCollect(ctx context.Context, input any) ([]Turn, error) {
	orch, err := a.newOrchestrator()
	if err != nil {
		return nil, err
	}
	orchTurns, err := orch.RunCollect(ctx, input)
	if err != nil {
		return nil, err
	}
	turns := make([]Turn, len(orchTurns))
	for i, t := range orchTurns {
		turns[i] = Turn{Output: t.Items, Usage: t.Usage}
	}
	return turns, nil
}
