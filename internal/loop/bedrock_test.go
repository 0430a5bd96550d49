package loop

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/cua/internal/responses"
)

func TestToBedrockMessages_SplitsSystemAndConvertsToolRoundTrip(t *testing.T) {
	msgs := []responses.ChatMessage{
		{Role: responses.ChatRoleSystem, Content: "be careful"},
		{Role: responses.ChatRoleUser, Content: "click submit"},
		{Role: responses.ChatRoleAssistant, ToolCalls: []responses.ChatToolCall{
			{ID: "call_1", Name: "computer", Arguments: `{"type":"click","x":10,"y":20}`},
		}},
		{Role: responses.ChatRoleTool, ToolCallID: "call_1", Content: "ok"},
	}

	out, system, err := toBedrockMessages(msgs)
	require.NoError(t, err)
	require.Equal(t, "be careful", system)
	require.Len(t, out, 3)

	require.Equal(t, types.ConversationRoleUser, out[0].Role)
	require.Equal(t, types.ConversationRoleAssistant, out[1].Role)
	toolUse, ok := out[1].Content[0].(*types.ContentBlockMemberToolUse)
	require.True(t, ok)
	require.Equal(t, "computer", *toolUse.Value.Name)

	require.Equal(t, types.ConversationRoleUser, out[2].Role)
	toolResult, ok := out[2].Content[0].(*types.ContentBlockMemberToolResult)
	require.True(t, ok)
	require.Equal(t, "call_1", *toolResult.Value.ToolUseId)
}

func TestDecodeDataURL(t *testing.T) {
	data, format, err := decodeDataURL("data:image/png;base64,AAAA")
	require.NoError(t, err)
	require.Equal(t, "png", format)
	require.NotEmpty(t, data)
}
