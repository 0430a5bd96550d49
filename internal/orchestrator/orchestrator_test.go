package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/cua/internal/callback"
	"github.com/haasonsaas/cua/internal/grounding"
	"github.com/haasonsaas/cua/internal/handler"
	"github.com/haasonsaas/cua/internal/loop"
	"github.com/haasonsaas/cua/internal/responses"
	"github.com/haasonsaas/cua/internal/toolschema"
)

// scriptedStrategy replays a fixed sequence of StepOutputs, one per call.
type scriptedStrategy struct {
	steps []loop.StepOutput
	errs  []error
	calls int
}

func (s *scriptedStrategy) Name() string { return "scripted" }

func (s *scriptedStrategy) PredictStep(context.Context, loop.StepInput) (loop.StepOutput, error) {
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if i >= len(s.steps) {
		return loop.StepOutput{}, err
	}
	return s.steps[i], err
}

func (s *scriptedStrategy) PredictClick(context.Context, string, string) (grounding.Point, bool, error) {
	return grounding.Point{}, false, loop.ErrGroundingNotSupported
}

// fakeHandler drives no real desktop; it just records dispatched actions.
type fakeHandler struct {
	actions []responses.Action
}

func (f *fakeHandler) Screenshot(context.Context) (string, error) { return "ZmFrZQ==", nil }
func (f *fakeHandler) Dimensions(context.Context) (int, int, error) { return 1024, 768, nil }
func (f *fakeHandler) Environment(context.Context) (handler.Environment, error) {
	return handler.EnvironmentBrowser, nil
}
func (f *fakeHandler) Click(context.Context, float64, float64, responses.Button) error {
	f.actions = append(f.actions, responses.Action{Type: responses.ActionClick})
	return nil
}
func (f *fakeHandler) DoubleClick(context.Context, float64, float64) error { return nil }
func (f *fakeHandler) Move(context.Context, float64, float64) error       { return nil }
func (f *fakeHandler) Scroll(context.Context, float64, float64, float64, float64) error {
	return nil
}
func (f *fakeHandler) Type(context.Context, string) error              { return nil }
func (f *fakeHandler) Keypress(context.Context, []string) error        { return nil }
func (f *fakeHandler) Drag(context.Context, []responses.Point) error   { return nil }
func (f *fakeHandler) Wait(context.Context, int) error                 { return nil }
func (f *fakeHandler) LeftMouseDown(context.Context, float64, float64) error { return nil }
func (f *fakeHandler) LeftMouseUp(context.Context, float64, float64) error   { return nil }
func (f *fakeHandler) CurrentURL(context.Context) (string, error) {
	return "", handler.ErrUnsupported
}

func TestOrchestrator_RunCollect_StopsWithNoComputerCall(t *testing.T) {
	strategy := &scriptedStrategy{steps: []loop.StepOutput{
		{Items: responses.Items{responses.NewAssistantText("done")}, Usage: responses.Usage{TotalTokens: 10}},
	}}
	o, err := New(strategy, &fakeHandler{}, nil, "test-model", nil)
	require.NoError(t, err)

	turns, err := o.RunCollect(context.Background(), "do the thing")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.Equal(t, int64(10), turns[0].Usage.TotalTokens)
}

func TestOrchestrator_RunCollect_DispatchesComputerCallThenStops(t *testing.T) {
	strategy := &scriptedStrategy{steps: []loop.StepOutput{
		{Items: responses.Items{responses.NewComputerCall("call_1", responses.Action{
			Type: responses.ActionClick, Button: responses.ButtonLeft, X: 10, Y: 20,
		})}},
		{Items: responses.Items{responses.NewAssistantText("done")}},
	}}
	h := &fakeHandler{}
	o, err := New(strategy, h, []toolschema.Tool{toolschema.ComputerTool()}, "test-model", nil)
	require.NoError(t, err)

	turns, err := o.RunCollect(context.Background(), "click the button")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Len(t, h.actions, 1)

	var sawOutput bool
	for _, it := range turns[0].Items {
		if it.Type == responses.ItemComputerCallOutput {
			sawOutput = true
		}
	}
	require.True(t, sawOutput)
}

func TestOrchestrator_MaxTurnsStopsRun(t *testing.T) {
	action := responses.Action{Type: responses.ActionClick, Button: responses.ButtonLeft}
	strategy := &scriptedStrategy{steps: []loop.StepOutput{
		{Items: responses.Items{responses.NewComputerCall("call_1", action)}},
		{Items: responses.Items{responses.NewComputerCall("call_2", action)}},
		{Items: responses.Items{responses.NewComputerCall("call_3", action)}},
	}}
	o, err := New(strategy, &fakeHandler{}, []toolschema.Tool{toolschema.ComputerTool()}, "test-model", nil)
	require.NoError(t, err)
	o.MaxTurns = 2

	turns, err := o.RunCollect(context.Background(), "loop forever")
	require.Error(t, err)
	var maxTurnsErr *MaxTurnsReachedError
	require.True(t, errors.As(err, &maxTurnsErr))
	require.Len(t, turns, 2)
}

func TestOrchestrator_BudgetExceededEndsRunCleanly(t *testing.T) {
	strategy := &scriptedStrategy{steps: []loop.StepOutput{
		{Items: responses.Items{responses.NewComputerCall("call_1", responses.Action{
			Type: responses.ActionClick, Button: responses.ButtonLeft,
		})}, Usage: responses.Usage{ResponseCost: 5.0}},
	}}
	budget := callback.NewBudgetManager(1.0)
	chain := callback.NewChain(budget)
	o, err := New(strategy, &fakeHandler{}, []toolschema.Tool{toolschema.ComputerTool()}, "test-model", chain)
	require.NoError(t, err)

	turns, err := o.RunCollect(context.Background(), "spend a lot")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.Greater(t, budget.Spent(), 1.0)

	// S5: the injected "budget exceeded" message must be observable by the
	// caller, not just appended to the internal history.
	last := turns[0].Items[len(turns[0].Items)-1]
	require.Equal(t, responses.ItemMessage, last.Type)
	require.Contains(t, last.Content[0].Text, "budget exceeded")
}

func TestOrchestrator_BudgetExceededRaisesWhenConfigured(t *testing.T) {
	strategy := &scriptedStrategy{steps: []loop.StepOutput{
		{Items: responses.Items{responses.NewComputerCall("call_1", responses.Action{
			Type: responses.ActionClick, Button: responses.ButtonLeft,
		})}, Usage: responses.Usage{ResponseCost: 5.0}},
	}}
	budget := callback.NewBudgetManager(1.0)
	budget.RaiseError = true
	chain := callback.NewChain(budget)
	o, err := New(strategy, &fakeHandler{}, []toolschema.Tool{toolschema.ComputerTool()}, "test-model", chain)
	require.NoError(t, err)

	_, err = o.RunCollect(context.Background(), "spend a lot")
	require.Error(t, err)
}

func TestNew_RejectsMissingStrategy(t *testing.T) {
	_, err := New(nil, &fakeHandler{}, nil, "model", nil)
	require.Error(t, err)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
}

func TestNew_RejectsComputerToolWithoutHandler(t *testing.T) {
	strategy := &scriptedStrategy{}
	_, err := New(strategy, nil, []toolschema.Tool{toolschema.ComputerTool()}, "model", nil)
	require.Error(t, err)
}
