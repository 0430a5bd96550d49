package responses

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip_SupportedSubset(t *testing.T) {
	items := Items{
		NewUserText("click the Submit button"),
		NewComputerCall("call_1", Action{Type: ActionClick, Button: ButtonLeft, X: 100, Y: 200}),
		NewComputerCallOutput("call_1", "data:image/png;base64,AAAA"),
		NewAssistantText("done"),
	}

	flat := ResponsesToCompletion(items, true)
	roundTripped, err := CompletionToResponses(flat)
	require.NoError(t, err)
	require.Equal(t, items, roundTripped)
}

func TestRoundTrip_FunctionCall(t *testing.T) {
	items := Items{
		NewUserText("what's the weather"),
		func() Item {
			it, err := NewFunctionCall("call_2", "get_weather", map[string]string{"city": "nyc"})
			require.NoError(t, err)
			return it
		}(),
		NewFunctionCallOutput("call_2", `{"temp_f":72}`),
	}

	flat := ResponsesToCompletion(items, true)
	roundTripped, err := CompletionToResponses(flat)
	require.NoError(t, err)
	require.Equal(t, items, roundTripped)
}

func TestResponsesToCompletion_DropsImagesWhenDisallowed(t *testing.T) {
	items := Items{
		NewComputerCall("call_1", Action{Type: ActionScreenshot}),
		NewComputerCallOutput("call_1", "data:image/png;base64,AAAA"),
	}
	flat := ResponsesToCompletion(items, false)
	require.Len(t, flat, 3) // assistant tool_call + demoted user image + textual tool placeholder
	require.Equal(t, ChatRoleUser, flat[1].Role)
	require.Equal(t, []string{"data:image/png;base64,AAAA"}, flat[1].Images)
	require.Equal(t, "screenshot attached", flat[2].Content)
}

func TestResponsesToCompletion_DropsReasoning(t *testing.T) {
	items := Items{
		{Type: ItemReasoning, Summary: []SummaryPart{{Type: "summary_text", Text: "thinking..."}}},
		NewUserText("go"),
	}
	flat := ResponsesToCompletion(items, true)
	require.Len(t, flat, 1)
	require.Equal(t, "go", flat[0].Content)
}

func TestPendingComputerCalls(t *testing.T) {
	items := Items{
		NewComputerCall("a", Action{Type: ActionClick, Button: ButtonLeft}),
		NewComputerCallOutput("a", "data:x"),
		NewComputerCall("b", Action{Type: ActionWait}),
	}
	require.Equal(t, []string{"b"}, items.PendingComputerCalls())
}
