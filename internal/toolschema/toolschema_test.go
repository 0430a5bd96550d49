package toolschema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTool_Validate(t *testing.T) {
	ok := Tool{Name: "get_weather", Description: "fetch weather", Schema: json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}}}`)}
	require.NoError(t, ok.Validate())

	bad := Tool{Name: "broken", Schema: json.RawMessage(`{"type": "object", "properties": }`)}
	require.Error(t, bad.Validate())

	noName := Tool{Schema: json.RawMessage(`{"type":"object"}`)}
	require.Error(t, noName.Validate())
}

func TestValidateAll_StopsOnFirstError(t *testing.T) {
	tools := []Tool{
		{Name: "a", Schema: json.RawMessage(`{"type":"object"}`)},
		{Name: "b", Schema: json.RawMessage(`not json`)},
	}
	require.Error(t, ValidateAll(tools))
}

func TestComputerTool(t *testing.T) {
	ct := ComputerTool()
	require.Equal(t, ComputerToolName, ct.Name)
	require.NoError(t, ct.Validate())

	var schema map[string]any
	require.NoError(t, json.Unmarshal(ct.Schema, &schema))
	require.Equal(t, "object", schema["type"])
}

func TestToOpenAITools(t *testing.T) {
	tools := []Tool{{Name: "t1", Description: "d1", Schema: json.RawMessage(`{"type":"object"}`)}}
	out := ToOpenAITools(tools)
	require.Len(t, out, 1)
	require.Equal(t, "t1", out[0].Function.Name)
}
