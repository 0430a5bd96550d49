package responses

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestItem_ComputerCallOutput_WireShape(t *testing.T) {
	item := NewComputerCallOutput("call_1", "data:image/png;base64,xx")

	raw, err := json.Marshal(item)
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"computer_call_output","call_id":"call_1",
		"output":{"type":"input_image","image_url":"data:image/png;base64,xx"}}`, string(raw))

	var decoded Item
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, item, decoded)
}

func TestItem_FunctionCallOutput_WireShape(t *testing.T) {
	item := NewFunctionCallOutput("call_1", "clicked")

	raw, err := json.Marshal(item)
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"function_call_output","call_id":"call_1","output":"clicked"}`, string(raw))

	var decoded Item
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, item, decoded)
}

func TestItem_ComputerCall_WireShape(t *testing.T) {
	item := NewComputerCall("call_1", Action{Type: ActionClick, Button: ButtonLeft, X: 1, Y: 2})

	raw, err := json.Marshal(item)
	require.NoError(t, err)

	var decoded Item
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, item.Type, decoded.Type)
	require.Equal(t, item.CallID, decoded.CallID)
	require.Equal(t, item.Action.Type, decoded.Action.Type)
	require.Equal(t, item.Action.X, decoded.Action.X)
	require.Equal(t, item.Action.Y, decoded.Action.Y)
}
