package loop

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/haasonsaas/cua/internal/grounding"
	"github.com/haasonsaas/cua/internal/responses"
	"github.com/haasonsaas/cua/internal/toolschema"
)

// AnthropicStrategy implements the native Anthropic computer-use loop
// family (§4.6.B/native-analog for Claude): it sends the beta
// computer_20250124 tool definition and translates Anthropic's
// tool_use/tool_result content blocks directly into computer_call /
// computer_call_output items, without going through the flat
// ResponsesToCompletion converter (Anthropic's content-block shape is
// already close enough to the canonical item model).
type AnthropicStrategy struct {
	client       anthropic.Client
	defaultModel string
	maxRetries   int
}

// AnthropicConfig configures the Anthropic strategy, grounded on
// internal/agent/providers/anthropic.go's AnthropicProvider construction.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxRetries   int
}

func NewAnthropicStrategy(cfg AnthropicConfig) (*AnthropicStrategy, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("loop: anthropic: API key is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicStrategy{
		client:       anthropic.NewClient(opts...),
		defaultModel: cfg.DefaultModel,
		maxRetries:   cfg.MaxRetries,
	}, nil
}

func (s *AnthropicStrategy) Name() string { return "anthropic-computer-use" }

func (s *AnthropicStrategy) PredictStep(ctx context.Context, in StepInput) (StepOutput, error) {
	model := in.Model
	if model == "" {
		model = s.defaultModel
	}

	msgs, systemPrompt := toAnthropicMessages(in.History)
	tools := []anthropic.BetaToolUnionParam{
		toolschema.ToAnthropicComputerUseTool(in.DisplayWidth, in.DisplayHeight),
	}
	if extra, err := toolschema.ToAnthropicBetaTools(nonComputerTools(in.Tools)); err == nil {
		tools = append(tools, extra...)
	}

	resp, err := s.client.Beta.Messages.New(ctx, anthropic.BetaMessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 4096,
		System:    systemPrompt,
		Messages:  msgs,
		Tools:     tools,
		Betas:     []anthropic.AnthropicBeta{"computer-use-2025-01-24"},
	})
	if err != nil {
		return StepOutput{}, fmt.Errorf("loop: anthropic: %w", err)
	}

	out := anthropicResponseToItems(resp)
	usage := responses.Usage{
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}
	return StepOutput{Items: out, Usage: usage}, nil
}

func (s *AnthropicStrategy) PredictClick(context.Context, string, string) (grounding.Point, bool, error) {
	return grounding.Point{}, false, ErrGroundingNotSupported
}

func nonComputerTools(tools []toolschema.Tool) []toolschema.Tool {
	out := make([]toolschema.Tool, 0, len(tools))
	for _, t := range tools {
		if t.Name != toolschema.ComputerToolName {
			out = append(out, t)
		}
	}
	return out
}

// toAnthropicMessages is a lossy-but-sufficient conversion: it walks the
// canonical items and emits one Anthropic message per message,
// computer_call or computer_call_output item (other item types are
// skipped), since Anthropic's computer-use beta speaks tool_use/tool_result
// blocks, not arbitrary flat chat turns.
func toAnthropicMessages(items responses.Items) (msgs []anthropic.BetaMessageParam, system string) {
	for _, it := range items {
		switch it.Type {
		case responses.ItemMessage:
			text := joinText(it.Content)
			if it.Role == responses.RoleSystem {
				system += text + "\n"
				continue
			}
			role := anthropic.BetaMessageParamRoleUser
			if it.Role == responses.RoleAssistant {
				role = anthropic.BetaMessageParamRoleAssistant
			}
			msgs = append(msgs, anthropic.BetaMessageParam{
				Role:    role,
				Content: []anthropic.BetaContentBlockParamUnion{anthropic.NewBetaTextBlock(text)},
			})

		case responses.ItemComputerCall:
			if it.Action == nil {
				continue
			}
			msgs = append(msgs, anthropic.BetaMessageParam{
				Role: anthropic.BetaMessageParamRoleAssistant,
				Content: []anthropic.BetaContentBlockParamUnion{
					anthropic.NewBetaToolUseBlock(it.CallID, actionToAnthropicInput(*it.Action), "computer"),
				},
			})

		case responses.ItemComputerCallOutput:
			if it.Output == nil {
				continue
			}
			data, mime := splitDataURL(it.Output.ImageURL)
			msgs = append(msgs, anthropic.BetaMessageParam{
				Role: anthropic.BetaMessageParamRoleUser,
				Content: []anthropic.BetaContentBlockParamUnion{
					anthropic.NewBetaToolResultBlock(it.CallID, anthropic.NewBetaImageBlockBase64(mime, data)),
				},
			})
		}
	}
	return msgs, system
}

func joinText(parts []responses.ContentPart) string {
	var sb strings.Builder
	for _, p := range parts {
		if p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

func splitDataURL(dataURL string) (base64Data, mime string) {
	mime = "image/png"
	idx := strings.Index(dataURL, ",")
	if idx < 0 {
		return dataURL, mime
	}
	header := dataURL[:idx]
	if strings.Contains(header, ";") {
		mime = strings.TrimPrefix(strings.Split(header, ";")[0], "data:")
	}
	return dataURL[idx+1:], mime
}

func actionToAnthropicInput(a responses.Action) map[string]any {
	m := map[string]any{"action": string(a.Type)}
	if a.X != 0 || a.Y != 0 {
		m["coordinate"] = []float64{a.X, a.Y}
	}
	if a.Text != "" {
		m["text"] = a.Text
	}
	if len(a.Keys) > 0 {
		m["text"] = strings.Join(a.Keys, "+")
	}
	return m
}

func anthropicResponseToItems(resp *anthropic.BetaMessage) responses.Items {
	var out responses.Items
	for _, block := range resp.Content {
		switch v := block.AsAny().(type) {
		case anthropic.BetaTextBlock:
			out = append(out, responses.NewAssistantText(v.Text))
		case anthropic.BetaToolUseBlock:
			out = append(out, responses.NewComputerCall(v.ID, anthropicInputToAction(v.Input)))
		}
	}
	return out
}

func anthropicInputToAction(input any) responses.Action {
	m, _ := input.(map[string]any)
	a := responses.Action{}
	if t, ok := m["action"].(string); ok {
		a.Type = anthropicActionType(t)
	}
	if coord, ok := m["coordinate"].([]any); ok && len(coord) == 2 {
		if x, ok := coord[0].(float64); ok {
			a.X = x
		}
		if y, ok := coord[1].(float64); ok {
			a.Y = y
		}
	}
	if text, ok := m["text"].(string); ok {
		a.Text = text
	}
	return a
}

func anthropicActionType(t string) responses.ActionType {
	switch t {
	case "left_click":
		return responses.ActionClick
	case "double_click":
		return responses.ActionDoubleClick
	case "triple_click":
		return responses.ActionTripleClick
	case "mouse_move":
		return responses.ActionMove
	case "left_click_drag":
		return responses.ActionDrag
	case "key":
		return responses.ActionKeypress
	case "type":
		return responses.ActionType_
	case "screenshot":
		return responses.ActionScreenshot
	case "scroll":
		return responses.ActionScroll
	case "wait":
		return responses.ActionWait
	case "left_mouse_down":
		return responses.ActionLeftMouseDown
	case "left_mouse_up":
		return responses.ActionLeftMouseUp
	default:
		return responses.ActionType(t)
	}
}
