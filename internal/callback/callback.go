// Package callback implements the Callback Chain (§4.4): ordered hooks the
// orchestrator invokes around each turn. Transforming hooks (on_llm_start,
// on_llm_end) fold left-to-right over the value; observer hooks
// (on_run_start/end, on_api_start/end, on_usage, on_computer_call_start,
// on_screenshot, on_responses) run in registration order for side effects
// only.
package callback

import (
	"context"

	"github.com/haasonsaas/cua/internal/responses"
)

// Callback is the full hook surface a registered handler may implement.
// Every method has a no-op default via the embeddable Base, so a concrete
// callback only overrides the hooks it cares about.
type Callback interface {
	OnRunStart(ctx context.Context, runID string) error
	OnRunEnd(ctx context.Context, runID string) error

	// OnLLMStart transforms the outgoing message history before it is sent
	// to the provider. Callbacks are folded left-to-right.
	OnLLMStart(ctx context.Context, messages responses.Items) (responses.Items, error)

	// OnLLMEnd transforms the model's raw output items before they are
	// normalized and dispatched.
	OnLLMEnd(ctx context.Context, output responses.Items) (responses.Items, error)

	OnAPIStart(ctx context.Context, provider, model string) error
	OnAPIEnd(ctx context.Context, provider, model string) error

	OnUsage(ctx context.Context, usage responses.Usage) error

	OnComputerCallStart(ctx context.Context, callID string, action responses.Action) error
	OnScreenshot(ctx context.Context, callID string, pngBase64 string) error

	// OnResponses observes the final, normalized item list for a turn.
	OnResponses(ctx context.Context, items responses.Items) error
}

// Base gives every method a no-op body so concrete callbacks embed it and
// override only what they need.
type Base struct{}

func (Base) OnRunStart(context.Context, string) error { return nil }
func (Base) OnRunEnd(context.Context, string) error   { return nil }

func (Base) OnLLMStart(_ context.Context, messages responses.Items) (responses.Items, error) {
	return messages, nil
}

func (Base) OnLLMEnd(_ context.Context, output responses.Items) (responses.Items, error) {
	return output, nil
}

func (Base) OnAPIStart(context.Context, string, string) error { return nil }
func (Base) OnAPIEnd(context.Context, string, string) error   { return nil }

func (Base) OnUsage(context.Context, responses.Usage) error { return nil }

func (Base) OnComputerCallStart(context.Context, string, responses.Action) error { return nil }
func (Base) OnScreenshot(context.Context, string, string) error                 { return nil }

func (Base) OnResponses(context.Context, responses.Items) error { return nil }

// Chain runs a registered list of callbacks in order, folding transforming
// hooks and broadcasting to observer hooks. A transforming or observing
// hook that errors stops the chain and surfaces the error to the caller.
type Chain struct {
	callbacks []Callback
}

// NewChain builds a chain from callbacks in the order they should run.
func NewChain(callbacks ...Callback) *Chain {
	return &Chain{callbacks: callbacks}
}

// Add appends a callback to the end of the chain.
func (c *Chain) Add(cb Callback) {
	c.callbacks = append(c.callbacks, cb)
}

// All returns the registered callbacks in registration order, for callers
// that need to inspect a specific bundled callback's configuration (e.g.
// the orchestrator reading BudgetManager.RaiseError).
func (c *Chain) All() []Callback {
	return c.callbacks
}

func (c *Chain) RunStart(ctx context.Context, runID string) error {
	for _, cb := range c.callbacks {
		if err := cb.OnRunStart(ctx, runID); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chain) RunEnd(ctx context.Context, runID string) error {
	for _, cb := range c.callbacks {
		if err := cb.OnRunEnd(ctx, runID); err != nil {
			return err
		}
	}
	return nil
}

// LLMStart folds OnLLMStart across every callback in registration order.
func (c *Chain) LLMStart(ctx context.Context, messages responses.Items) (responses.Items, error) {
	var err error
	for _, cb := range c.callbacks {
		messages, err = cb.OnLLMStart(ctx, messages)
		if err != nil {
			return messages, err
		}
	}
	return messages, nil
}

// LLMEnd folds OnLLMEnd across every callback in registration order.
func (c *Chain) LLMEnd(ctx context.Context, output responses.Items) (responses.Items, error) {
	var err error
	for _, cb := range c.callbacks {
		output, err = cb.OnLLMEnd(ctx, output)
		if err != nil {
			return output, err
		}
	}
	return output, nil
}

func (c *Chain) APIStart(ctx context.Context, provider, model string) error {
	for _, cb := range c.callbacks {
		if err := cb.OnAPIStart(ctx, provider, model); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chain) APIEnd(ctx context.Context, provider, model string) error {
	for _, cb := range c.callbacks {
		if err := cb.OnAPIEnd(ctx, provider, model); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chain) Usage(ctx context.Context, usage responses.Usage) error {
	for _, cb := range c.callbacks {
		if err := cb.OnUsage(ctx, usage); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chain) ComputerCallStart(ctx context.Context, callID string, action responses.Action) error {
	for _, cb := range c.callbacks {
		if err := cb.OnComputerCallStart(ctx, callID, action); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chain) Screenshot(ctx context.Context, callID, pngBase64 string) error {
	for _, cb := range c.callbacks {
		if err := cb.OnScreenshot(ctx, callID, pngBase64); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chain) Responses(ctx context.Context, items responses.Items) error {
	for _, cb := range c.callbacks {
		if err := cb.OnResponses(ctx, items); err != nil {
			return err
		}
	}
	return nil
}
