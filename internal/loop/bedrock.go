package loop

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/haasonsaas/cua/internal/grounding"
	"github.com/haasonsaas/cua/internal/responses"
	"github.com/haasonsaas/cua/internal/toolschema"
)

// BedrockStrategy implements loop family B (§4.6.B) for AWS Bedrock-hosted
// models (Anthropic Claude, Llama, Mistral, Cohere, Titan) via the Converse
// API's tool-use support, mirrored from the teacher's
// internal/agent/providers/bedrock.go BedrockProvider — the message/tool
// content-block conversion idiom (ContentBlockMemberText/ToolUse/ToolResult,
// document.NewLazyDocument for tool schemas) is kept, generalized here to a
// single synchronous Converse call per predict_step instead of the
// teacher's ConverseStream chunk loop, since a loop Strategy produces one
// StepOutput per turn rather than incremental deltas.
type BedrockStrategy struct {
	client       *bedrockruntime.Client
	defaultModel string
}

// BedrockConfig configures a BedrockStrategy, mirrored from the teacher's
// BedrockConfig (region + optional explicit credentials, default model).
type BedrockConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	DefaultModel    string
}

// NewBedrockStrategy builds a BedrockStrategy, loading AWS credentials the
// same way the teacher's NewBedrockProvider does: explicit static
// credentials when both key fields are set, otherwise the default AWS
// credential chain (env, shared config, IAM role).
func NewBedrockStrategy(ctx context.Context, cfg BedrockConfig) (*BedrockStrategy, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}

	var awsCfg aws.Config
	var err error
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken,
			)),
		)
	} else {
		awsCfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("loop: bedrock: load AWS config: %w", err)
	}

	return &BedrockStrategy{
		client:       bedrockruntime.NewFromConfig(awsCfg),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (s *BedrockStrategy) Name() string { return "bedrock-converse" }

func (s *BedrockStrategy) PredictStep(ctx context.Context, in StepInput) (StepOutput, error) {
	model := in.Model
	if model == "" {
		model = s.defaultModel
	}

	chatMsgs := responses.ResponsesToCompletion(in.History, true)
	messages, system, err := toBedrockMessages(chatMsgs)
	if err != nil {
		return StepOutput{}, fmt.Errorf("loop: bedrock: %w", err)
	}

	req := &bedrockruntime.ConverseInput{
		ModelId:    aws.String(model),
		Messages:   messages,
		ToolConfig: toolschema.ToBedrockTools(withComputerTool(in.Tools)),
	}
	if system != "" {
		req.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: system}}
	}

	resp, err := s.client.Converse(ctx, req)
	if err != nil {
		return StepOutput{}, fmt.Errorf("loop: bedrock: converse: %w", err)
	}

	out, err := fromBedrockOutput(resp)
	if err != nil {
		return StepOutput{}, fmt.Errorf("loop: bedrock: %w", err)
	}

	usage := responses.Usage{}
	if resp.Usage != nil {
		usage.PromptTokens = int64(aws.ToInt32(resp.Usage.InputTokens))
		usage.CompletionTokens = int64(aws.ToInt32(resp.Usage.OutputTokens))
		usage.TotalTokens = int64(aws.ToInt32(resp.Usage.TotalTokens))
	}

	return StepOutput{Items: out, Usage: usage}, nil
}

func (s *BedrockStrategy) PredictClick(context.Context, string, string) (grounding.Point, bool, error) {
	return grounding.Point{}, false, ErrGroundingNotSupported
}

// toBedrockMessages mirrors the content-block construction in the teacher's
// convertMessages: text becomes ContentBlockMemberText, an assistant tool
// call becomes ContentBlockMemberToolUse, and a tool-role result becomes
// ContentBlockMemberToolResult. System-role messages are pulled out
// separately since Converse carries system prompt out of band from Messages.
func toBedrockMessages(msgs []responses.ChatMessage) ([]types.Message, string, error) {
	var system strings.Builder
	out := make([]types.Message, 0, len(msgs))

	for _, m := range msgs {
		if m.Role == responses.ChatRoleSystem {
			if system.Len() > 0 {
				system.WriteString("\n")
			}
			system.WriteString(m.Content)
			continue
		}

		if m.Role == responses.ChatRoleTool {
			var toolContent []types.ToolResultContentBlock
			if m.Content != "" {
				toolContent = append(toolContent, &types.ToolResultContentBlockMemberText{Value: m.Content})
			}
			for _, img := range m.Images {
				data, format, err := decodeDataURL(img)
				if err != nil {
					return nil, "", err
				}
				toolContent = append(toolContent, &types.ToolResultContentBlockMemberImage{
					Value: types.ImageBlock{
						Format: types.ImageFormat(format),
						Source: &types.ImageSourceMemberBytes{Value: data},
					},
				})
			}
			out = append(out, types.Message{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberToolResult{
					Value: types.ToolResultBlock{
						ToolUseId: aws.String(m.ToolCallID),
						Content:   toolContent,
						Status:    types.ToolResultStatusSuccess,
					},
				}},
			})
			continue
		}

		var content []types.ContentBlock
		if m.Content != "" {
			content = append(content, &types.ContentBlockMemberText{Value: m.Content})
		}
		for _, img := range m.Images {
			data, format, err := decodeDataURL(img)
			if err != nil {
				return nil, "", err
			}
			content = append(content, &types.ContentBlockMemberImage{
				Value: types.ImageBlock{
					Format: types.ImageFormat(format),
					Source: &types.ImageSourceMemberBytes{Value: data},
				},
			})
		}

		switch m.Role {
		case responses.ChatRoleAssistant:
			for _, tc := range m.ToolCalls {
				var input any
				if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
					input = map[string]any{}
				}
				content = append(content, &types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String(tc.ID),
						Name:      aws.String(tc.Name),
						Input:     document.NewLazyDocument(input),
					},
				})
			}
			out = append(out, types.Message{Role: types.ConversationRoleAssistant, Content: content})
		default:
			out = append(out, types.Message{Role: types.ConversationRoleUser, Content: content})
		}
	}
	return out, system.String(), nil
}

// fromBedrockOutput converts the model's single Converse response message
// back into responses items via the existing flat-shape round trip
// (CompletionToResponses), so every loop family shares one canonical
// function_call/tool_call -> computer_call rewrite.
func fromBedrockOutput(resp *bedrockruntime.ConverseOutput) (responses.Items, error) {
	member, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, fmt.Errorf("unexpected converse output shape %T", resp.Output)
	}

	msg := responses.ChatMessage{Role: responses.ChatRoleAssistant}
	for _, block := range member.Value.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			msg.Content += b.Value
		case *types.ContentBlockMemberToolUse:
			var args map[string]any
			if err := b.Value.Input.UnmarshalSmithyDocument(&args); err != nil {
				args = map[string]any{}
			}
			raw, err := json.Marshal(args)
			if err != nil {
				return nil, err
			}
			msg.ToolCalls = append(msg.ToolCalls, responses.ChatToolCall{
				ID:        aws.ToString(b.Value.ToolUseId),
				Name:      aws.ToString(b.Value.Name),
				Arguments: string(raw),
			})
		}
	}
	return responses.CompletionToResponses([]responses.ChatMessage{msg})
}

func decodeDataURL(dataURL string) (data []byte, format string, err error) {
	format = "png"
	payload := dataURL
	if idx := strings.Index(dataURL, ","); idx >= 0 && strings.HasPrefix(dataURL, "data:") {
		header := dataURL[:idx]
		payload = dataURL[idx+1:]
		if strings.Contains(header, "jpeg") || strings.Contains(header, "jpg") {
			format = "jpeg"
		}
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode image data url: %w", err)
	}
	return data, format, nil
}
