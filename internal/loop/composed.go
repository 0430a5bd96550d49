package loop

import (
	"context"
	"fmt"

	"github.com/haasonsaas/cua/internal/grounding"
	"github.com/haasonsaas/cua/internal/responses"
	"github.com/haasonsaas/cua/internal/toolschema"
)

// ComposedStrategy implements loop family D (§4.6.D): a model string of the
// form "<planner>+<grounder>" that splits planning from visual grounding.
// The planner speaks the virtual element-description "computer" tool
// (toolschema.ComputerTool); ComposedStrategy resolves each
// element_description the planner names against the Grounder strategy
// before yielding computer_call items in screen-space coordinates, and
// rewrites historical computer_call actions back into element-level
// semantics (reverse cache lookup) so the planner never has to reason about
// pixels it didn't itself produce.
type ComposedStrategy struct {
	Planner        Strategy
	Grounder       Strategy
	Cache          *grounding.Cache
	MaxGroundRetries int
}

// NewComposedStrategy wires a planner strategy (any Strategy implementing
// PredictStep) to a grounder strategy (any Strategy implementing
// PredictClick) through a shared per-run grounding cache.
func NewComposedStrategy(planner, grounder Strategy) *ComposedStrategy {
	return &ComposedStrategy{
		Planner:          planner,
		Grounder:         grounder,
		Cache:            grounding.NewCache(),
		MaxGroundRetries: 3,
	}
}

func (s *ComposedStrategy) Name() string {
	return fmt.Sprintf("composed(%s+%s)", s.Planner.Name(), s.Grounder.Name())
}

func (s *ComposedStrategy) PredictStep(ctx context.Context, in StepInput) (StepOutput, error) {
	imageB64, haveImage := in.History.LastComputerCallOutputImage()
	if !haveImage {
		return StepOutput{}, fmt.Errorf("loop: composed: no screenshot in history to ground against")
	}

	// Step 2: rewrite history so historical computer_call actions show the
	// planner element-level semantics instead of raw pixels (§4.6.D.2).
	rewritten := rewriteHistoryToElementDescriptions(in.History, s.Cache)

	plannerTools := append(append([]toolschema.Tool{}, in.Tools...), toolschema.ComputerTool())
	plannerOut, err := s.Planner.PredictStep(ctx, StepInput{
		Model:         in.Model,
		History:       rewritten,
		Tools:         plannerTools,
		DisplayWidth:  in.DisplayWidth,
		DisplayHeight: in.DisplayHeight,
	})
	if err != nil {
		return StepOutput{}, fmt.Errorf("loop: composed: planner: %w", err)
	}

	// Step 4-5: resolve each unique element_description against the
	// grounder, then rewrite the planner's output in place.
	out := make(responses.Items, 0, len(plannerOut.Items))
	for _, it := range plannerOut.Items {
		if it.Type != responses.ItemComputerCall || it.Action == nil || !it.Action.HasElementReference() {
			out = append(out, it)
			continue
		}

		action := *it.Action
		desc := action.ElementDescription
		point, gerr := grounding.Resolve(ctx, groundingBackend{s.Grounder}, s.Cache, stripDataURLPrefix(imageB64), desc, s.MaxGroundRetries)
		if gerr != nil {
			out = append(out, responses.Item{
				Type: responses.ItemComputerCall, CallID: it.CallID, Status: responses.CallStatusFailed, Action: &action,
			})
			out = append(out, responses.NewFunctionCallOutput(it.CallID, fmt.Sprintf("could not locate element %q", desc)))
			continue
		}

		action.X, action.Y = point.X, point.Y
		action.ElementDescription = ""
		out = append(out, responses.NewComputerCall(it.CallID, action))
	}

	return StepOutput{Items: out, Usage: plannerOut.Usage}, nil
}

func (s *ComposedStrategy) PredictClick(ctx context.Context, imageB64, instruction string) (grounding.Point, bool, error) {
	return s.Grounder.PredictClick(ctx, imageB64, instruction)
}

// groundingBackend adapts a Strategy's PredictClick to grounding.Backend.
type groundingBackend struct {
	strategy Strategy
}

func (g groundingBackend) PredictClick(ctx context.Context, imageB64, instruction string) (grounding.Point, bool, error) {
	return g.strategy.PredictClick(ctx, imageB64, instruction)
}

// rewriteHistoryToElementDescriptions substitutes each historical
// computer_call's pixel coordinates with the element_description the cache
// recorded for them, via reverse lookup, leaving actions the cache has no
// entry for untouched (they were never produced through grounding, e.g.
// type/keypress/wait).
func rewriteHistoryToElementDescriptions(history responses.Items, cache *grounding.Cache) responses.Items {
	out := history.Clone()
	for i, it := range out {
		if it.Type != responses.ItemComputerCall || it.Action == nil {
			continue
		}
		if desc, ok := cache.ReverseLookup(it.Action.X, it.Action.Y); ok {
			a := *it.Action
			a.ElementDescription = desc
			out[i].Action = &a
		}
	}
	return out
}
