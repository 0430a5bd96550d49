package cua

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/cua/internal/grounding"
	"github.com/haasonsaas/cua/internal/handler"
	"github.com/haasonsaas/cua/internal/loop"
	"github.com/haasonsaas/cua/internal/responses"
	"github.com/haasonsaas/cua/internal/toolschema"
)

// scriptedStrategy replays a fixed sequence of StepOutputs, one per call,
// in the same style as internal/orchestrator's own test fake.
type scriptedStrategy struct {
	steps []loop.StepOutput
	calls int
}

func (s *scriptedStrategy) Name() string { return "scripted" }

func (s *scriptedStrategy) PredictStep(context.Context, loop.StepInput) (loop.StepOutput, error) {
	i := s.calls
	s.calls++
	if i >= len(s.steps) {
		return loop.StepOutput{}, nil
	}
	return s.steps[i], nil
}

func (s *scriptedStrategy) PredictClick(context.Context, string, string) (grounding.Point, bool, error) {
	return grounding.Point{}, false, loop.ErrGroundingNotSupported
}

type fakeHandler struct{ actions []responses.Action }

func (f *fakeHandler) Screenshot(context.Context) (string, error)   { return "ZmFrZQ==", nil }
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
func (f *fakeHandler) Type(context.Context, string) error                  { return nil }
func (f *fakeHandler) Keypress(context.Context, []string) error            { return nil }
func (f *fakeHandler) Drag(context.Context, []responses.Point) error       { return nil }
func (f *fakeHandler) Wait(context.Context, int) error                     { return nil }
func (f *fakeHandler) LeftMouseDown(context.Context, float64, float64) error { return nil }
func (f *fakeHandler) LeftMouseUp(context.Context, float64, float64) error   { return nil }
func (f *fakeHandler) CurrentURL(context.Context) (string, error) {
	return "", handler.ErrUnsupported
}

func TestNew_RejectsInvalidTool(t *testing.T) {
	_, err := New("test-model", Options{
		CustomLoop: &scriptedStrategy{},
		Tools:      []toolschema.Tool{{Name: "bad", Schema: []byte(`{not json`)}},
	})
	require.Error(t, err)
}

func TestNew_RejectsComputerToolWithoutHandler(t *testing.T) {
	_, err := New("test-model", Options{
		CustomLoop: &scriptedStrategy{},
		Tools:      []toolschema.Tool{toolschema.ComputerTool()},
	})
	require.Error(t, err)
}

func TestAgent_RunCollect_AccumulatesCumulativeUsage(t *testing.T) {
	strategy := &scriptedStrategy{steps: []loop.StepOutput{
		{Items: responses.Items{responses.NewComputerCall("call_1", responses.Action{
			Type: responses.ActionClick, Button: responses.ButtonLeft, X: 1, Y: 2,
		})}, Usage: responses.Usage{TotalTokens: 10}},
		{Items: responses.Items{responses.NewAssistantText("done")}, Usage: responses.Usage{TotalTokens: 7}},
	}}
	h := &fakeHandler{}

	agent, err := New("test-model", Options{
		CustomLoop: strategy,
		Handler:    h,
		Tools:      []toolschema.Tool{toolschema.ComputerTool()},
	})
	require.NoError(t, err)

	turns, err := agent.RunCollect(context.Background(), "click the button")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Len(t, h.actions, 1)
	require.Equal(t, int64(10), turns[0].Usage.TotalTokens)
	require.Equal(t, int64(17), turns[1].Usage.TotalTokens)
}

func TestAgent_RunCollect_PersistsTrajectory(t *testing.T) {
	dir := t.TempDir()
	strategy := &scriptedStrategy{steps: []loop.StepOutput{
		{Items: responses.Items{responses.NewAssistantText("done")}, Usage: responses.Usage{TotalTokens: 3}},
	}}

	agent, err := New("test-model", Options{
		CustomLoop: strategy,
		Trajectory: &TrajectoryOption{Dir: dir},
	})
	require.NoError(t, err)

	turns, err := agent.RunCollect(context.Background(), "say hi")
	require.NoError(t, err)
	require.Len(t, turns, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestAgent_BudgetExceededEndsRunCleanly(t *testing.T) {
	strategy := &scriptedStrategy{steps: []loop.StepOutput{
		{Items: responses.Items{responses.NewAssistantText("spending")}, Usage: responses.Usage{ResponseCost: 5.0}},
	}}

	agent, err := New("test-model", Options{
		CustomLoop: strategy,
		Budget:     &BudgetOption{MaxUSD: 1.0},
	})
	require.NoError(t, err)

	turns, err := agent.RunCollect(context.Background(), "spend a lot")
	require.NoError(t, err)
	require.Len(t, turns, 1)
}

func TestMergeOptions_OverrideWinsOnlyWhenSet(t *testing.T) {
	base := DefaultOptions()
	merged := mergeOptions(base, Options{Instructions: "be careful"})
	require.Equal(t, "be careful", merged.Instructions)
	require.Equal(t, base.MaxRetries, merged.MaxRetries)
}
