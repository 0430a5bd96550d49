package loop

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	oresponses "github.com/openai/openai-go/v2/responses"

	"github.com/haasonsaas/cua/internal/grounding"
	"github.com/haasonsaas/cua/internal/responses"
)

// OpenAIResponsesStrategy implements loop family A (§4.6.A): OpenAI's
// native "computer-use-preview" model. Canonical items map onto the
// Responses API's own input-item shape almost verbatim, so this strategy
// does the least translation work of the four families — it builds a
// computer_use_preview tool from the screen dimensions in StepInput and the
// Environment fixed at construction (the handler's own environment is not
// read), and forwards history as Responses input items directly, rather than
// going through the flat ResponsesToCompletion conversion the tool-calling
// families need.
type OpenAIResponsesStrategy struct {
	client       openaisdk.Client
	defaultModel string
	environment  string
}

// OpenAIResponsesConfig configures the native computer-use-preview strategy.
type OpenAIResponsesConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	// Environment is the computer_use_preview tool's environment field,
	// e.g. "browser" or "linux" (§2); empty means "browser". It is not
	// checked against handler.Handler.Environment, and the default registry
	// always passes "browser".
	Environment string
}

func NewOpenAIResponsesStrategy(cfg OpenAIResponsesConfig) (*OpenAIResponsesStrategy, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("loop: openai-responses: API key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "computer-use-preview"
	}
	env := cfg.Environment
	if env == "" {
		env = "browser"
	}
	return &OpenAIResponsesStrategy{
		client:       openaisdk.NewClient(opts...),
		defaultModel: model,
		environment:  env,
	}, nil
}

func (s *OpenAIResponsesStrategy) Name() string { return "openai-computer-use-preview" }

func (s *OpenAIResponsesStrategy) PredictStep(ctx context.Context, in StepInput) (StepOutput, error) {
	model := in.Model
	if model == "" {
		model = s.defaultModel
	}

	input, instructions := itemsToResponsesInput(in.History)
	params := oresponses.ResponseNewParams{
		Model: oresponses.ResponsesModel(model),
		Tools: []oresponses.ToolUnionParam{
			{
				OfComputerUsePreview: &oresponses.ComputerToolParam{
					DisplayWidth:  int64(in.DisplayWidth),
					DisplayHeight: int64(in.DisplayHeight),
					Environment:   oresponses.ComputerToolEnvironment(s.environment),
				},
			},
		},
	}
	if len(input) > 0 {
		params.Input.OfInputItemList = input
	}
	if instructions != "" {
		params.Instructions = openaisdk.String(instructions)
	}

	resp, err := s.client.Responses.New(ctx, params)
	if err != nil {
		return StepOutput{}, fmt.Errorf("loop: openai-responses: %w", err)
	}

	out := responsesOutputToItems(resp)
	usage := responses.Usage{
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	return StepOutput{Items: out, Usage: usage}, nil
}

func (s *OpenAIResponsesStrategy) PredictClick(context.Context, string, string) (grounding.Point, bool, error) {
	return grounding.Point{}, false, ErrGroundingNotSupported
}

func itemsToResponsesInput(items responses.Items) (input oresponses.ResponseInputParam, instructions string) {
	var sys []string
	for _, it := range items {
		switch it.Type {
		case responses.ItemMessage:
			text := joinText(it.Content)
			if it.Role == responses.RoleSystem {
				if strings.TrimSpace(text) != "" {
					sys = append(sys, text)
				}
				continue
			}
			role := "user"
			if it.Role == responses.RoleAssistant {
				role = "assistant"
			}
			part := oresponses.ResponseInputContentParamOfInputText(text)
			input = append(input, oresponses.ResponseInputItemUnionParam{
				OfInputMessage: &oresponses.ResponseInputItemMessageParam{
					Content: oresponses.ResponseInputMessageContentListParam{part},
					Role:    role,
				},
			})

		case responses.ItemComputerCall:
			if it.Action == nil {
				continue
			}
			input = append(input, oresponses.ResponseInputItemUnionParam{
				OfComputerCall: &oresponses.ResponseComputerToolCallParam{
					ID:     oresponses.String(it.CallID),
					CallID: it.CallID,
					Action: actionToResponsesAction(*it.Action),
					Status: "completed",
				},
			})

		case responses.ItemComputerCallOutput:
			if it.Output == nil {
				continue
			}
			input = append(input, oresponses.ResponseInputItemUnionParam{
				OfComputerCallOutput: &oresponses.ResponseInputItemComputerCallOutputParam{
					CallID: it.CallID,
					Output: oresponses.ResponseComputerToolCallOutputScreenshotParam{
						ImageURL: openaisdk.String(it.Output.ImageURL),
					},
				},
			})

		case responses.ItemFunctionCall:
			input = append(input, oresponses.ResponseInputItemParamOfFunctionCall(it.Arguments, it.CallID, it.Name))

		case responses.ItemFunctionCallOutput:
			input = append(input, oresponses.ResponseInputItemParamOfFunctionCallOutput(it.CallID, it.FunctionOutput))
		}
	}
	return input, strings.Join(sys, "\n\n")
}

func responsesOutputToItems(resp *oresponses.Response) responses.Items {
	var out responses.Items
	for _, it := range resp.Output {
		if cc := it.AsComputerCall(); cc.CallID != "" {
			out = append(out, responses.NewComputerCall(cc.CallID, responsesActionToAction(cc.Action)))
			continue
		}
		if fn := it.AsFunctionCall(); fn.CallID != "" {
			out = append(out, responses.Item{
				Type: responses.ItemFunctionCall, CallID: fn.CallID, Name: fn.Name, Arguments: fn.Arguments,
			})
			continue
		}
		if msg := it.AsMessage(); len(msg.Content) > 0 {
			out = append(out, responses.NewAssistantText(resp.OutputText()))
		}
	}
	return out
}

func actionToResponsesAction(a responses.Action) oresponses.ResponseComputerToolCallActionUnionParam {
	switch a.Type {
	case responses.ActionClick:
		return oresponses.ResponseComputerToolCallActionUnionParam{
			OfClick: &oresponses.ResponseComputerToolCallActionClickParam{
				X: int64(a.X), Y: int64(a.Y), Button: oresponses.ResponseComputerToolCallActionClickButton(a.Button),
			},
		}
	case responses.ActionDoubleClick:
		return oresponses.ResponseComputerToolCallActionUnionParam{
			OfDoubleClick: &oresponses.ResponseComputerToolCallActionDoubleClickParam{X: int64(a.X), Y: int64(a.Y)},
		}
	case responses.ActionScroll:
		return oresponses.ResponseComputerToolCallActionUnionParam{
			OfScroll: &oresponses.ResponseComputerToolCallActionScrollParam{
				X: int64(a.X), Y: int64(a.Y), ScrollX: int64(a.ScrollX), ScrollY: int64(a.ScrollY),
			},
		}
	case responses.ActionType_:
		return oresponses.ResponseComputerToolCallActionUnionParam{
			OfTypeKeys: &oresponses.ResponseComputerToolCallActionTypeParam{Text: a.Text},
		}
	case responses.ActionKeypress:
		return oresponses.ResponseComputerToolCallActionUnionParam{
			OfKeyPress: &oresponses.ResponseComputerToolCallActionKeypressParam{Keys: a.Keys},
		}
	case responses.ActionWait:
		return oresponses.ResponseComputerToolCallActionUnionParam{
			OfWait: &oresponses.ResponseComputerToolCallActionWaitParam{},
		}
	case responses.ActionScreenshot:
		return oresponses.ResponseComputerToolCallActionUnionParam{
			OfScreenshot: &oresponses.ResponseComputerToolCallActionScreenshotParam{},
		}
	case responses.ActionMove:
		return oresponses.ResponseComputerToolCallActionUnionParam{
			OfMove: &oresponses.ResponseComputerToolCallActionMoveParam{X: int64(a.X), Y: int64(a.Y)},
		}
	case responses.ActionDrag:
		path := make([]oresponses.ResponseComputerToolCallActionDragPathParam, 0, len(a.Path))
		for _, p := range a.Path {
			path = append(path, oresponses.ResponseComputerToolCallActionDragPathParam{X: int64(p.X), Y: int64(p.Y)})
		}
		return oresponses.ResponseComputerToolCallActionUnionParam{
			OfDrag: &oresponses.ResponseComputerToolCallActionDragParam{Path: path},
		}
	default:
		return oresponses.ResponseComputerToolCallActionUnionParam{}
	}
}

func responsesActionToAction(a oresponses.ResponseComputerToolCallAction) responses.Action {
	switch {
	case a.Type == "click":
		return responses.Action{Type: responses.ActionClick, X: float64(a.X), Y: float64(a.Y), Button: responses.Button(a.Button)}
	case a.Type == "double_click":
		return responses.Action{Type: responses.ActionDoubleClick, X: float64(a.X), Y: float64(a.Y)}
	case a.Type == "scroll":
		return responses.Action{Type: responses.ActionScroll, X: float64(a.X), Y: float64(a.Y), ScrollX: float64(a.ScrollX), ScrollY: float64(a.ScrollY)}
	case a.Type == "type":
		return responses.Action{Type: responses.ActionType_, Text: a.Text}
	case a.Type == "keypress":
		return responses.Action{Type: responses.ActionKeypress, Keys: a.Keys}
	case a.Type == "wait":
		return responses.Action{Type: responses.ActionWait}
	case a.Type == "screenshot":
		return responses.Action{Type: responses.ActionScreenshot}
	case a.Type == "move":
		return responses.Action{Type: responses.ActionMove, X: float64(a.X), Y: float64(a.Y)}
	case a.Type == "drag":
		path := make([]responses.Point, 0, len(a.Path))
		for _, p := range a.Path {
			path = append(path, responses.Point{X: float64(p.X), Y: float64(p.Y)})
		}
		return responses.Action{Type: responses.ActionDrag, Path: path}
	default:
		return responses.Action{Type: responses.ActionType(a.Type)}
	}
}
