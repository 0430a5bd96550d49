package responses

import (
	"encoding/json"
	"fmt"
)

// computerToolName is the synthetic flat-shape function name a computer_call
// is represented as once converted to a chat completion tool call (§4.1).
const computerToolName = "computer"

// ChatRole is the author of a flat chat-completion message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
	ChatRoleSystem    ChatRole = "system"
	ChatRoleTool      ChatRole = "tool"
)

// ChatToolCall is one entry of an assistant ChatMessage.ToolCalls.
type ChatToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatMessage is the flat shape most provider SDKs speak: a plain role +
// content string, an optional tool-call list on assistant messages, and an
// optional tool_call_id correlating a tool-role message back to the call it
// answers (§4.1). Image content is carried out of band in Images so callers
// that can't accept images in tool results can filter it without touching
// Content.
type ChatMessage struct {
	Role       ChatRole `json:"role"`
	Content    string   `json:"content,omitempty"`
	Images     []string `json:"images,omitempty"`
	ToolCalls  []ChatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

// ResponsesToCompletion converts a responses item sequence to the flat chat
// shape (§4.1). reasoning items are dropped — strategies that can consume
// them do not go through this conversion; the tool-calling families (B)
// that call it cannot. When
// allowImagesInToolResults is false, a computer_call_output's screenshot is
// demoted into a separate user-role image message and the tool message
// becomes the textual placeholder "screenshot attached", matching providers
// whose tool-result schema is text-only.
func ResponsesToCompletion(items Items, allowImagesInToolResults bool) []ChatMessage {
	out := make([]ChatMessage, 0, len(items))
	for _, it := range items {
		switch it.Type {
		case ItemReasoning:
			continue

		case ItemMessage:
			msg := ChatMessage{Role: ChatRole(it.Role)}
			for _, part := range it.Content {
				switch part.Type {
				case ContentInputText, ContentOutputText:
					if msg.Content != "" {
						msg.Content += "\n"
					}
					msg.Content += part.Text
				case ContentInputImage:
					msg.Images = append(msg.Images, part.ImageURL)
				}
			}
			out = append(out, msg)

		case ItemComputerCall:
			args := "{}"
			if it.Action != nil {
				if raw, err := json.Marshal(it.Action); err == nil {
					args = string(raw)
				}
			}
			out = append(out, ChatMessage{
				Role: ChatRoleAssistant,
				ToolCalls: []ChatToolCall{{
					ID:        it.CallID,
					Name:      computerToolName,
					Arguments: args,
				}},
			})

		case ItemComputerCallOutput:
			imageURL := ""
			if it.Output != nil {
				imageURL = it.Output.ImageURL
			}
			if allowImagesInToolResults {
				out = append(out, ChatMessage{
					Role:       ChatRoleTool,
					ToolCallID: it.CallID,
					Images:     []string{imageURL},
				})
			} else {
				out = append(out, ChatMessage{Role: ChatRoleUser, Images: []string{imageURL}})
				out = append(out, ChatMessage{
					Role:       ChatRoleTool,
					ToolCallID: it.CallID,
					Content:    "screenshot attached",
				})
			}

		case ItemFunctionCall:
			out = append(out, ChatMessage{
				Role: ChatRoleAssistant,
				ToolCalls: []ChatToolCall{{
					ID:        it.CallID,
					Name:      it.Name,
					Arguments: it.Arguments,
				}},
			})

		case ItemFunctionCallOutput:
			out = append(out, ChatMessage{
				Role:       ChatRoleTool,
				ToolCallID: it.CallID,
				Content:    it.FunctionOutput,
			})
		}
	}
	return out
}

// CompletionToResponses is the inverse of ResponsesToCompletion on the
// subset of shapes it produces (§8 property 5: round-trip stable on the
// supported subset — i.e. sequences with no reasoning items and no
// allowImagesInToolResults=false demotion, since that direction is lossy by
// design). A tool-role message is classified as a computer_call_output or
// function_call_output by looking up the name the preceding assistant
// message registered for its tool_call_id.
func CompletionToResponses(messages []ChatMessage) (Items, error) {
	callNames := map[string]string{}
	for _, m := range messages {
		for _, tc := range m.ToolCalls {
			callNames[tc.ID] = tc.Name
		}
	}

	items := make(Items, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case ChatRoleAssistant:
			if len(m.ToolCalls) == 0 {
				items = append(items, NewAssistantText(m.Content))
				continue
			}
			for _, tc := range m.ToolCalls {
				if tc.Name == computerToolName {
					var action Action
					if err := json.Unmarshal([]byte(tc.Arguments), &action); err != nil {
						return nil, fmt.Errorf("decode computer_call action for call %s: %w", tc.ID, err)
					}
					items = append(items, NewComputerCall(tc.ID, action))
				} else {
					items = append(items, Item{Type: ItemFunctionCall, CallID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
				}
			}

		case ChatRoleUser:
			if len(m.Images) > 0 {
				for _, img := range m.Images {
					items = append(items, NewUserImage(img))
				}
			}
			if m.Content != "" {
				items = append(items, NewUserText(m.Content))
			}

		case ChatRoleSystem:
			items = append(items, Item{Type: ItemMessage, Role: RoleSystem, Content: []ContentPart{{Type: ContentInputText, Text: m.Content}}})

		case ChatRoleTool:
			if callNames[m.ToolCallID] == computerToolName {
				imageURL := ""
				if len(m.Images) > 0 {
					imageURL = m.Images[0]
				}
				items = append(items, NewComputerCallOutput(m.ToolCallID, imageURL))
			} else {
				items = append(items, NewFunctionCallOutput(m.ToolCallID, m.Content))
			}
		}
	}
	return items, nil
}
