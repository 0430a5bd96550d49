// Package orchestrator implements the Run Orchestrator (§4.7): the
// single-threaded cooperative loop that drives a loop.Strategy and a
// handler.Handler through predict_step / dispatch / screenshot turns until
// the run terminates, folding every step through the callback.Chain.
//
// The channel-based async-iterator shape (Run returning <-chan Turn) is
// grounded on the teacher's AgenticLoop.Run(ctx, ...) (<-chan
// *ResponseChunk, error) in internal/agent/loop.go: a background goroutine
// drives the loop and pushes each yielded turn to a buffered channel, the
// caller ranges over it, and a send-side ctx.Done() select keeps the
// goroutine from leaking when the caller stops consuming early.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/cua/internal/callback"
	"github.com/haasonsaas/cua/internal/handler"
	"github.com/haasonsaas/cua/internal/loop"
	"github.com/haasonsaas/cua/internal/obs"
	"github.com/haasonsaas/cua/internal/responses"
	"github.com/haasonsaas/cua/internal/retry"
	"github.com/haasonsaas/cua/internal/toolschema"
)

// turnChanBuffer bounds how many completed turns can sit unconsumed before
// the orchestrator's driving goroutine blocks on send.
const turnChanBuffer = 8

// Turn is one yielded step of a run: the items produced since the previous
// turn (model output plus any computer_call_output/function_call_output
// synthesized from dispatch) and the usage that step's API call consumed.
type Turn struct {
	Index int
	Items responses.Items
	Usage responses.Usage
}

// retryableError is implemented by errors that opt into the orchestrator's
// retry policy (§7); TransientProviderError is the only producer today.
type retryableError interface {
	IsRetryable() bool
}

// Orchestrator wires one loop.Strategy and one handler.Handler together and
// drives them through the Run contract (§4.7, §6.2).
type Orchestrator struct {
	Strategy loop.Strategy
	Handler  handler.Handler
	Tools    []toolschema.Tool
	Model    string

	Callbacks *callback.Chain

	// MaxRetries bounds the retry.Config.MaxAttempts applied to a single
	// predict_step call when it fails with a retryable error (§7
	// TransientProviderError). Zero uses retry.DefaultConfig's attempt count.
	MaxRetries int

	// MaxTurns optionally caps the number of predict_step calls in a single
	// run (§4.7 termination rules); zero means unbounded.
	MaxTurns int

	Logger  *obs.Logger
	Metrics *obs.Metrics
	Tracer  *obs.Tracer

	// lastErr records why the run's channel closed, for RunCollect.
	lastErr error
}

// New validates the wiring and returns a ready Orchestrator. It is a
// ConfigError, not a panic, for a strategy/handler combination the run
// contract cannot satisfy: a strategy is always required, and a handler
// is required unless every tool is a plain function tool (no "computer"
// tool registered).
func New(strategy loop.Strategy, h handler.Handler, tools []toolschema.Tool, model string, callbacks *callback.Chain) (*Orchestrator, error) {
	if strategy == nil {
		return nil, &ConfigError{Reason: "no loop strategy configured"}
	}
	needsHandler := false
	for _, t := range tools {
		if t.Name == toolschema.ComputerToolName {
			needsHandler = true
			break
		}
	}
	if needsHandler && h == nil {
		return nil, &ConfigError{Reason: "computer tool registered but no handler supplied"}
	}
	if callbacks == nil {
		callbacks = callback.NewChain()
	}
	return &Orchestrator{
		Strategy:  strategy,
		Handler:   h,
		Tools:     tools,
		Model:     model,
		Callbacks: callbacks,
		Logger:    obs.Default(),
	}, nil
}

// Run starts a cooperative agent run seeded by input (a plain instruction
// string or a pre-existing responses.Items history) and returns a channel
// of completed turns. The channel is closed once the run terminates: no
// pending computer_calls remain, MaxTurns is reached, or ctx is cancelled.
// A synchronous error here means the run never started at all; a mid-run
// failure closes the channel without a further send, and callers that
// need the terminal error should use RunCollect.
func (o *Orchestrator) Run(ctx context.Context, input any) (<-chan Turn, error) {
	history, err := normalizeInput(input)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}

	runID := uuid.NewString()
	out := make(chan Turn, turnChanBuffer)

	go o.drive(ctx, runID, history, out)

	return out, nil
}

// RunCollect runs to completion and returns every turn plus the first
// error encountered (mid-run errors included), for callers that don't need
// streaming.
func (o *Orchestrator) RunCollect(ctx context.Context, input any) ([]Turn, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	turns, err := o.Run(ctx, input)
	if err != nil {
		return nil, err
	}
	var all []Turn
	for t := range turns {
		all = append(all, t)
	}
	return all, o.lastErr
}

func normalizeInput(input any) (responses.Items, error) {
	switch v := input.(type) {
	case string:
		return responses.Items{responses.NewUserText(v)}, nil
	case responses.Items:
		return v.Clone(), nil
	case []responses.Item:
		return responses.Items(v).Clone(), nil
	case nil:
		return nil, fmt.Errorf("orchestrator: empty input")
	default:
		return nil, fmt.Errorf("orchestrator: unsupported input type %T", input)
	}
}

func (o *Orchestrator) drive(ctx context.Context, runID string, history responses.Items, out chan<- Turn) {
	defer close(out)

	if err := o.Callbacks.RunStart(ctx, runID); err != nil {
		o.Logger.Error(ctx, "on_run_start failed", "run_id", runID, "error", err)
		o.lastErr = err
		return
	}
	defer func() {
		if err := o.Callbacks.RunEnd(ctx, runID); err != nil {
			o.Logger.Error(ctx, "on_run_end failed", "run_id", runID, "error", err)
		}
	}()

	turnIndex := 0
	var cumulative responses.Usage
	for {
		select {
		case <-ctx.Done():
			o.lastErr = ctx.Err()
			return
		default:
		}

		turnIndex++
		if o.MaxTurns > 0 && turnIndex > o.MaxTurns {
			o.lastErr = &MaxTurnsReachedError{MaxTurns: o.MaxTurns}
			return
		}

		turn, done, err := o.step(ctx, runID, turnIndex, &history, &cumulative)
		if err != nil {
			o.lastErr = err
			return
		}

		select {
		case out <- turn:
		case <-ctx.Done():
			o.lastErr = ctx.Err()
			return
		}

		if done {
			return
		}
	}
}

// step runs one predict_step + dispatch cycle, mutating *history in place
// and returning the Turn to yield plus whether the run should end after it.
// cumulative accumulates stepOut.Usage monotonically across turns (§4.8,
// §8 property 3: "cumulative usage is non-decreasing across yielded
// turns") — callers observe Turn.Usage as the running total, not the
// per-turn delta, matching §6.2's Run contract.
func (o *Orchestrator) step(ctx context.Context, runID string, turnIndex int, history *responses.Items, cumulative *responses.Usage) (Turn, bool, error) {
	ctx = context.WithValue(ctx, obs.RunIDKey, runID)
	ctx = context.WithValue(ctx, obs.TurnKey, turnIndex)
	ctx = context.WithValue(ctx, obs.ModelKey, o.Model)

	if o.Tracer != nil {
		var span trace.Span
		ctx, span = o.Tracer.Start(ctx, "orchestrator.step")
		defer span.End()
	}

	sent, err := o.Callbacks.LLMStart(ctx, *history)
	if err != nil {
		return Turn{}, false, fmt.Errorf("on_llm_start: %w", err)
	}

	if err := o.Callbacks.APIStart(ctx, o.Strategy.Name(), o.Model); err != nil {
		return Turn{}, false, fmt.Errorf("on_api_start: %w", err)
	}

	width, height := 0, 0
	if o.Handler != nil {
		if w, h, dimErr := o.Handler.Dimensions(ctx); dimErr == nil {
			width, height = w, h
		}
	}

	stepOut, err := o.predictStepWithRetry(ctx, loop.StepInput{
		Model:         o.Model,
		History:       sent,
		Tools:         o.Tools,
		DisplayWidth:  width,
		DisplayHeight: height,
	})

	if endErr := o.Callbacks.APIEnd(ctx, o.Strategy.Name(), o.Model); endErr != nil && err == nil {
		err = fmt.Errorf("on_api_end: %w", endErr)
	}
	if err != nil {
		return Turn{}, false, err
	}

	items, err := o.Callbacks.LLMEnd(ctx, stepOut.Items)
	if err != nil {
		return Turn{}, false, fmt.Errorf("on_llm_end: %w", err)
	}

	*history = append(*history, items...)

	cumulative.Add(stepOut.Usage)

	if err := o.Callbacks.Usage(ctx, stepOut.Usage); err != nil {
		var budgetErr *callback.BudgetExceededError
		if errors.As(err, &budgetErr) && !o.budgetRaises() {
			stopMsg := responses.NewAssistantText(
				fmt.Sprintf("Stopping: budget exceeded ($%.4f of $%.4f).", budgetErr.SpentUSD, budgetErr.LimitUSD))
			*history = append(*history, stopMsg)
			items = append(items, stopMsg)
			return Turn{Index: turnIndex, Items: items, Usage: *cumulative}, true, nil
		}
		return Turn{}, false, fmt.Errorf("on_usage: %w", err)
	}

	if err := o.Callbacks.Responses(ctx, items); err != nil {
		return Turn{}, false, fmt.Errorf("on_responses: %w", err)
	}

	calls := pendingCalls(items)
	if len(calls) == 0 || o.Handler == nil {
		return Turn{Index: turnIndex, Items: items, Usage: *cumulative}, true, nil
	}

	var outputs responses.Items
	for _, call := range calls {
		if err := o.Callbacks.ComputerCallStart(ctx, call.CallID, *call.Action); err != nil {
			return Turn{}, false, fmt.Errorf("on_computer_call_start: %w", err)
		}

		if dispatchErr := handler.Dispatch(ctx, o.Handler, *call.Action); dispatchErr != nil {
			wrapped := &ActionExecutionError{CallID: call.CallID, Cause: dispatchErr}
			o.Logger.Warn(ctx, "action dispatch failed", "call_id", call.CallID, "action", call.Action.Type, "error", dispatchErr)
			outputs = append(outputs, responses.NewFunctionCallOutput(call.CallID, wrapped.Error()))
			continue
		}

		shot, shotErr := o.Handler.Screenshot(ctx)
		if shotErr != nil {
			wrapped := &ActionExecutionError{CallID: call.CallID, Cause: shotErr}
			outputs = append(outputs, responses.NewFunctionCallOutput(call.CallID, wrapped.Error()))
			continue
		}
		dataURL := "data:image/png;base64," + shot
		if err := o.Callbacks.Screenshot(ctx, call.CallID, shot); err != nil {
			return Turn{}, false, fmt.Errorf("on_screenshot: %w", err)
		}
		outputs = append(outputs, responses.NewComputerCallOutput(call.CallID, dataURL))
	}

	*history = append(*history, outputs...)

	return Turn{Index: turnIndex, Items: append(append(responses.Items{}, items...), outputs...), Usage: *cumulative}, false, nil
}

func (o *Orchestrator) predictStepWithRetry(ctx context.Context, in loop.StepInput) (loop.StepOutput, error) {
	cfg := retry.DefaultConfig()
	if o.MaxRetries > 0 {
		cfg.MaxAttempts = o.MaxRetries
	}

	out, result := retry.DoWithValue(ctx, cfg, func() (loop.StepOutput, error) {
		stepOut, err := o.Strategy.PredictStep(ctx, in)
		if err == nil {
			return stepOut, nil
		}
		var re retryableError
		if errors.As(err, &re) && re.IsRetryable() {
			return stepOut, err
		}
		return stepOut, retry.Permanent(err)
	})
	if result.Err != nil {
		return out, result.Err
	}
	return out, nil
}

func (o *Orchestrator) budgetRaises() bool {
	for _, cb := range o.Callbacks.All() {
		if bm, ok := cb.(*callback.BudgetManager); ok {
			return bm.RaiseError
		}
	}
	return false
}

func pendingCalls(items responses.Items) []responses.Item {
	var calls []responses.Item
	for _, it := range items {
		if it.Type == responses.ItemComputerCall && it.Action != nil {
			calls = append(calls, it)
		}
	}
	return calls
}
