package callback

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/cua/internal/responses"
)

func TestOperatorNormalizer_FoldsCoordinateArray(t *testing.T) {
	// S4: model emits {type:"left_click", coordinate:[50,60]}; after
	// on_llm_end the item must be {type:"click", button:"left", x:50, y:60}.
	var action responses.Action
	require.NoError(t, json.Unmarshal([]byte(`{"type":"left_click","coordinate":[50,60]}`), &action))

	n := NewOperatorNormalizer()
	out, err := n.OnLLMEnd(context.Background(), responses.Items{
		{Type: responses.ItemComputerCall, Action: &action},
	})
	require.NoError(t, err)

	got := out[0].Action
	require.Equal(t, responses.ActionClick, got.Type)
	require.Equal(t, responses.ButtonLeft, got.Button)
	require.Equal(t, 50.0, got.X)
	require.Equal(t, 60.0, got.Y)
	require.NoError(t, got.Validate())
}

func TestOperatorNormalizer_FoldsClickAlias(t *testing.T) {
	var action responses.Action
	require.NoError(t, json.Unmarshal([]byte(`{"click":"right","x":10,"y":20}`), &action))

	n := NewOperatorNormalizer()
	out, err := n.OnLLMEnd(context.Background(), responses.Items{
		{Type: responses.ItemComputerCall, Action: &action},
	})
	require.NoError(t, err)

	got := out[0].Action
	require.Equal(t, responses.ActionClick, got.Type)
	require.Equal(t, responses.ButtonRight, got.Button)
	require.NoError(t, got.Validate())
}

func TestOperatorNormalizer_FoldsKeysString(t *testing.T) {
	var action responses.Action
	require.NoError(t, json.Unmarshal([]byte(`{"type":"keypress","keys":"ctrl+c"}`), &action))

	n := NewOperatorNormalizer()
	out, err := n.OnLLMEnd(context.Background(), responses.Items{
		{Type: responses.ItemComputerCall, Action: &action},
	})
	require.NoError(t, err)

	got := out[0].Action
	require.Equal(t, []string{"ctrl", "c"}, got.Keys)
	require.NoError(t, got.Validate())
}

func TestOperatorNormalizer_FoldsStartEndCoordinateForDrag(t *testing.T) {
	var action responses.Action
	require.NoError(t, json.Unmarshal([]byte(`{"type":"drag","start_coordinate":[1,2],"end_coordinate":[3,4]}`), &action))

	n := NewOperatorNormalizer()
	out, err := n.OnLLMEnd(context.Background(), responses.Items{
		{Type: responses.ItemComputerCall, Action: &action},
	})
	require.NoError(t, err)

	got := out[0].Action
	require.Equal(t, []responses.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}, got.Path)
	require.NoError(t, got.Validate())
}
