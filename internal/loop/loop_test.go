package loop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/cua/internal/grounding"
	"github.com/haasonsaas/cua/internal/responses"
	"github.com/haasonsaas/cua/internal/toolschema"
)

func TestWithComputerTool_AddsOnlyOnce(t *testing.T) {
	tools := withComputerTool(nil)
	require.Len(t, tools, 1)
	require.Equal(t, toolschema.ComputerToolName, tools[0].Name)

	again := withComputerTool(tools)
	require.Len(t, again, 1)
}

func TestParseGroundedAction_Click(t *testing.T) {
	a, desc := parseGroundedAction(`click "Save button" [[100, 200]]`)
	require.Equal(t, responses.ActionClick, a.Type)
	require.Equal(t, "Save button", desc)
}

func TestParseGroundedAction_Type(t *testing.T) {
	a, _ := parseGroundedAction(`type "hello world"`)
	require.Equal(t, responses.ActionType_, a.Type)
	require.Equal(t, "hello world", a.Text)
}

func TestParseGroundedAction_NoMatch(t *testing.T) {
	a, _ := parseGroundedAction("I am thinking about what to do next.")
	require.Equal(t, responses.ActionType(""), a.Type)
}

type fakeGrounder struct {
	point grounding.Point
}

func (f fakeGrounder) Name() string { return "fake-grounder" }
func (f fakeGrounder) PredictStep(context.Context, StepInput) (StepOutput, error) {
	return StepOutput{}, ErrGroundingNotSupported
}
func (f fakeGrounder) PredictClick(context.Context, string, string) (grounding.Point, bool, error) {
	return f.point, true, nil
}

type fakePlanner struct {
	out StepOutput
}

func (f fakePlanner) Name() string { return "fake-planner" }
func (f fakePlanner) PredictStep(context.Context, StepInput) (StepOutput, error) {
	return f.out, nil
}
func (f fakePlanner) PredictClick(context.Context, string, string) (grounding.Point, bool, error) {
	return grounding.Point{}, false, ErrGroundingNotSupported
}

func TestComposedStrategy_ResolvesElementDescription(t *testing.T) {
	planner := fakePlanner{out: StepOutput{
		Items: responses.Items{
			responses.NewComputerCall("call_1", responses.Action{
				Type:               responses.ActionClick,
				Button:             responses.ButtonLeft,
				ElementDescription: "Save button",
			}),
		},
	}}
	grounder := fakeGrounder{point: grounding.Point{X: 42, Y: 84}}
	strategy := NewComposedStrategy(planner, grounder)

	history := responses.Items{
		responses.NewUserText("click save"),
		responses.NewComputerCallOutput("prev_call", "data:image/png;base64,AAAA"),
	}

	out, err := strategy.PredictStep(context.Background(), StepInput{History: history})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	require.Equal(t, 42.0, out.Items[0].Action.X)
	require.Equal(t, 84.0, out.Items[0].Action.Y)
	require.Empty(t, out.Items[0].Action.ElementDescription)
}

func TestRewriteHistoryToElementDescriptions(t *testing.T) {
	cache := grounding.NewCache()
	cache.Set("Save button", grounding.Point{X: 10, Y: 20})

	history := responses.Items{
		responses.NewComputerCall("call_1", responses.Action{Type: responses.ActionClick, X: 10, Y: 20}),
	}
	rewritten := rewriteHistoryToElementDescriptions(history, cache)
	require.Equal(t, "Save button", rewritten[0].Action.ElementDescription)
}
