// Package loop implements the four Loop Strategy families (§4.6): the
// pluggable predict_step contract the Run Orchestrator drives each turn.
package loop

import (
	"context"
	"errors"

	"github.com/haasonsaas/cua/internal/grounding"
	"github.com/haasonsaas/cua/internal/responses"
	"github.com/haasonsaas/cua/internal/toolschema"
)

// ErrGroundingNotSupported is returned by PredictClick on strategies that
// cannot act as a grounder.
var ErrGroundingNotSupported = errors.New("loop: strategy does not support grounding")

// StepInput is everything a strategy needs to produce one turn's output.
type StepInput struct {
	Model   string
	History responses.Items
	Tools   []toolschema.Tool

	// DisplayWidth/DisplayHeight are passed to strategies that need to
	// describe the screen to the provider (native computer-use tools).
	DisplayWidth, DisplayHeight int
}

// StepOutput is one turn's result: new items to append to history (may
// include message/reasoning/computer_call/function_call items) plus the
// usage the API call consumed.
type StepOutput struct {
	Items responses.Items
	Usage responses.Usage
}

// Strategy is a loop family's predict_step implementation (§4.6). Each
// concrete strategy owns exactly one provider wire protocol.
type Strategy interface {
	// Name identifies the strategy for logging/metrics/trajectory.
	Name() string

	PredictStep(ctx context.Context, in StepInput) (StepOutput, error)

	// PredictClick is only implemented by strategies capable of acting as
	// a grounder (§4.6.C/D); strategies that can't ground return
	// ErrGroundingNotSupported.
	PredictClick(ctx context.Context, imageB64, instruction string) (p grounding.Point, ok bool, err error)
}
