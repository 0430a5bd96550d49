package loop

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/cua/internal/grounding"
	"github.com/haasonsaas/cua/internal/responses"
	"github.com/haasonsaas/cua/internal/toolschema"
)

// FunctionCallingStrategy implements loop family B (§4.6.B): any provider
// that speaks OpenAI-compatible flat chat messages with function/tool
// calling, but has no native computer-use affordance of its own. The
// "computer" tool registered via toolschema.ComputerTool lets such a model
// emit click/type/scroll actions as an ordinary tool call, which
// ResponsesToCompletion/CompletionToResponses translate to and from
// computer_call items.
type FunctionCallingStrategy struct {
	client       *openai.Client
	defaultModel string
	name         string
}

// FunctionCallingConfig configures a FunctionCallingStrategy against any
// OpenAI-compatible chat-completions endpoint (self-hosted, OpenRouter,
// local gguf servers, or OpenAI itself when computer-use-preview isn't
// wanted).
type FunctionCallingConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	// Name identifies the strategy for registry matching/logging, e.g.
	// "generic-tool-calling" or "openai-chat".
	Name string
}

func NewFunctionCallingStrategy(cfg FunctionCallingConfig) (*FunctionCallingStrategy, error) {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	name := cfg.Name
	if name == "" {
		name = "generic-tool-calling"
	}
	return &FunctionCallingStrategy{
		client:       openai.NewClientWithConfig(clientCfg),
		defaultModel: cfg.DefaultModel,
		name:         name,
	}, nil
}

func (s *FunctionCallingStrategy) Name() string { return s.name }

func (s *FunctionCallingStrategy) PredictStep(ctx context.Context, in StepInput) (StepOutput, error) {
	model := in.Model
	if model == "" {
		model = s.defaultModel
	}

	chatMsgs := responses.ResponsesToCompletion(in.History, false)
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(chatMsgs),
		Tools:    toolschema.ToOpenAITools(withComputerTool(in.Tools)),
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return StepOutput{}, fmt.Errorf("loop: %s: %w", s.name, err)
	}
	if len(resp.Choices) == 0 {
		return StepOutput{}, fmt.Errorf("loop: %s: empty choices", s.name)
	}

	choice := resp.Choices[0].Message
	out, err := responses.CompletionToResponses([]responses.ChatMessage{chatMessageFromOpenAI(choice)})
	if err != nil {
		return StepOutput{}, fmt.Errorf("loop: %s: %w", s.name, err)
	}

	usage := responses.Usage{
		PromptTokens:     int64(resp.Usage.PromptTokens),
		CompletionTokens: int64(resp.Usage.CompletionTokens),
		TotalTokens:      int64(resp.Usage.TotalTokens),
	}
	return StepOutput{Items: out, Usage: usage}, nil
}

func (s *FunctionCallingStrategy) PredictClick(context.Context, string, string) (grounding.Point, bool, error) {
	return grounding.Point{}, false, ErrGroundingNotSupported
}

func withComputerTool(tools []toolschema.Tool) []toolschema.Tool {
	for _, t := range tools {
		if t.Name == toolschema.ComputerToolName {
			return tools
		}
	}
	return append(append([]toolschema.Tool{}, tools...), toolschema.ComputerTool())
}

func toOpenAIMessages(msgs []responses.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		om := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			om.ToolCalls = append(om.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, om)
	}
	return out
}

func chatMessageFromOpenAI(m openai.ChatCompletionMessage) responses.ChatMessage {
	out := responses.ChatMessage{
		Role:       responses.ChatRole(m.Role),
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
	}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, responses.ChatToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}
