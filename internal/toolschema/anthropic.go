package toolschema

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// ToAnthropicTools converts tools to Anthropic tool-union params.
func ToAnthropicTools(tools []Tool) ([]anthropic.ToolUnionParam, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		param, err := toAnthropicTool(tool)
		if err != nil {
			return nil, err
		}
		result = append(result, param)
	}
	return result, nil
}

func toAnthropicTool(tool Tool) (anthropic.ToolUnionParam, error) {
	var schema anthropic.ToolInputSchemaParam
	if err := json.Unmarshal(tool.Schema, &schema); err != nil {
		return anthropic.ToolUnionParam{}, fmt.Errorf("toolschema: invalid schema for %s: %w", tool.Name, err)
	}
	param := anthropic.ToolUnionParamOfTool(schema, tool.Name)
	if param.OfTool == nil {
		return anthropic.ToolUnionParam{}, fmt.Errorf("toolschema: %s: missing tool definition", tool.Name)
	}
	param.OfTool.Description = anthropic.String(tool.Description)
	return param, nil
}

// ToAnthropicBetaTools converts tools to Beta tool-union params, for use
// alongside ToAnthropicComputerUseTool in a single beta Messages.New call
// (the beta and non-beta tool-param types are distinct in the SDK and don't
// mix in one request).
func ToAnthropicBetaTools(tools []Tool) ([]anthropic.BetaToolUnionParam, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	result := make([]anthropic.BetaToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		var schema anthropic.BetaToolInputSchemaParam
		if err := json.Unmarshal(tool.Schema, &schema); err != nil {
			return nil, fmt.Errorf("toolschema: invalid schema for %s: %w", tool.Name, err)
		}
		param := anthropic.BetaToolUnionParamOfTool(schema, tool.Name)
		if param.OfTool == nil {
			return nil, fmt.Errorf("toolschema: %s: missing tool definition", tool.Name)
		}
		param.OfTool.Description = anthropic.String(tool.Description)
		result = append(result, param)
	}
	return result, nil
}

// ToAnthropicComputerUseTool returns the beta computer_20250124 tool
// definition for the native Anthropic computer-use loop (§4.6.A-analog for
// Anthropic), which takes screen dimensions rather than a JSON Schema.
func ToAnthropicComputerUseTool(displayWidth, displayHeight int) anthropic.BetaToolUnionParam {
	return anthropic.BetaToolUnionParam{
		OfComputerUseTool20250124: &anthropic.BetaToolComputerUse20250124Param{
			DisplayWidthPx:  int64(displayWidth),
			DisplayHeightPx: int64(displayHeight),
		},
	}
}
