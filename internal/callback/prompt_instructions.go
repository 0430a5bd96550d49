package callback

import (
	"context"

	"github.com/haasonsaas/cua/internal/responses"
)

// PromptInstructions prepends a fixed user instruction message to history
// on on_llm_start, unless it is already present at the head (§4.4 bundled
// callbacks: "in on_llm_start, prepends a user instruction message if not
// already at the head").
type PromptInstructions struct {
	Base

	Text string
}

// NewPromptInstructions returns a PromptInstructions callback for text.
func NewPromptInstructions(text string) *PromptInstructions {
	return &PromptInstructions{Text: text}
}

func (p *PromptInstructions) OnLLMStart(_ context.Context, messages responses.Items) (responses.Items, error) {
	if p.Text == "" {
		return messages, nil
	}
	instruction := responses.NewUserText(p.Text)
	if len(messages) > 0 && itemsEqualText(messages[0], instruction) {
		return messages, nil
	}
	out := make(responses.Items, 0, len(messages)+1)
	out = append(out, instruction)
	out = append(out, messages...)
	return out, nil
}

func itemsEqualText(a, b responses.Item) bool {
	if a.Type != b.Type || a.Role != b.Role || len(a.Content) != len(b.Content) {
		return false
	}
	for i := range a.Content {
		if a.Content[i] != b.Content[i] {
			return false
		}
	}
	return true
}
