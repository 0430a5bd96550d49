package responses

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAction_Validate(t *testing.T) {
	cases := []struct {
		name    string
		action  Action
		wantErr bool
	}{
		{"valid click", Action{Type: ActionClick, Button: ButtonLeft, X: 1, Y: 2}, false},
		{"click missing button", Action{Type: ActionClick, X: 1, Y: 2}, true},
		{"valid keypress", Action{Type: ActionKeypress, Keys: []string{"ctrl", "c"}}, false},
		{"keypress missing keys", Action{Type: ActionKeypress}, true},
		{"valid drag", Action{Type: ActionDrag, Path: []Point{{X: 1, Y: 1}, {X: 2, Y: 2}}}, false},
		{"drag missing path", Action{Type: ActionDrag}, true},
		{"unknown type", Action{Type: "left_click"}, true},
		{"wait needs nothing", Action{Type: ActionWait}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.action.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAction_HasElementReference(t *testing.T) {
	require.True(t, Action{Type: ActionClick, ElementDescription: "Save button"}.HasElementReference())
	require.False(t, Action{Type: ActionClick, X: 1, Y: 2}.HasElementReference())
}

func TestAction_UnmarshalJSON_CapturesRawShape(t *testing.T) {
	var a Action
	err := json.Unmarshal([]byte(`{"type":"left_click","coordinate":[50,60]}`), &a)
	require.NoError(t, err)
	require.Equal(t, ActionType("left_click"), a.Type)
	require.Equal(t, []float64{50, 60}, a.Raw.Coordinate)
	require.Zero(t, a.X)
	require.Zero(t, a.Y)
}

func TestAction_UnmarshalJSON_KeysString(t *testing.T) {
	var a Action
	err := json.Unmarshal([]byte(`{"type":"keypress","keys":"ctrl+c"}`), &a)
	require.NoError(t, err)
	require.Equal(t, "ctrl+c", a.Raw.KeysString)
	require.Nil(t, a.Keys)
}

func TestAction_UnmarshalJSON_KeysList(t *testing.T) {
	var a Action
	err := json.Unmarshal([]byte(`{"type":"keypress","keys":["ctrl","c"]}`), &a)
	require.NoError(t, err)
	require.Equal(t, []string{"ctrl", "c"}, a.Keys)
	require.Empty(t, a.Raw.KeysString)
}

func TestAction_UnmarshalJSON_ClickAndStartEndCoordinate(t *testing.T) {
	var a Action
	err := json.Unmarshal([]byte(`{"click":"left","start_coordinate":[1,2],"end_coordinate":[3,4]}`), &a)
	require.NoError(t, err)
	require.Equal(t, "left", a.Raw.Click)
	require.Equal(t, []float64{1, 2}, a.Raw.StartCoordinate)
	require.Equal(t, []float64{3, 4}, a.Raw.EndCoordinate)
}
