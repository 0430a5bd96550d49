package callback

import (
	"context"
	"fmt"
	"sync"

	"github.com/haasonsaas/cua/internal/responses"
)

// BudgetExceededError is returned from BudgetManager.OnUsage once
// accumulated response_cost crosses MaxUSD (§7 BudgetExceeded). The
// orchestrator treats it specially: unless RaiseError is set it injects a
// terminal assistant message and ends the run cleanly instead of
// propagating the error to the Run caller (§4.7 termination rules, S5).
type BudgetExceededError struct {
	SpentUSD, LimitUSD float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("callback: budget exceeded: spent $%.4f of $%.4f", e.SpentUSD, e.LimitUSD)
}

// BudgetManager tracks accumulated response_cost across a run and stops the
// run once it exceeds MaxUSD (§3.4, §4.4 bundled callbacks, §7
// BudgetExceeded). Matches the `max_trajectory_budget` construction option
// in §6.1, including its object form ({max_budget, raise_error,
// reset_after_each_run}).
type BudgetManager struct {
	Base

	MaxUSD float64
	// RaiseError, when true, makes OnUsage return the BudgetExceededError to
	// the orchestrator instead of letting it inject a terminal message and
	// end the run quietly.
	RaiseError bool
	// ResetAfterEachRun zeroes the accumulated spend at the start of every
	// run, rather than carrying it across run() calls on a reused Agent.
	ResetAfterEachRun bool

	mu    sync.Mutex
	spent float64
}

// NewBudgetManager returns a BudgetManager capping accumulated cost at
// maxUSD. maxUSD<=0 disables the cap (OnUsage never errors).
func NewBudgetManager(maxUSD float64) *BudgetManager {
	return &BudgetManager{MaxUSD: maxUSD}
}

func (b *BudgetManager) OnRunStart(context.Context, string) error {
	if b.ResetAfterEachRun {
		b.mu.Lock()
		b.spent = 0
		b.mu.Unlock()
	}
	return nil
}

func (b *BudgetManager) OnUsage(_ context.Context, usage responses.Usage) error {
	if b.MaxUSD <= 0 {
		return nil
	}
	b.mu.Lock()
	b.spent += usage.ResponseCost
	spent := b.spent
	b.mu.Unlock()

	if spent > b.MaxUSD {
		return &BudgetExceededError{SpentUSD: spent, LimitUSD: b.MaxUSD}
	}
	return nil
}

// Spent returns the accumulated response_cost observed so far.
func (b *BudgetManager) Spent() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spent
}
