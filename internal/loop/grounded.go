package loop

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/haasonsaas/cua/internal/grounding"
	"github.com/haasonsaas/cua/internal/responses"
)

// GroundedStrategy implements loop family C (§4.6.C): UI-TARS/InternVL/
// OpenCUA/Holo/Moondream-style backends that emit free-form text naming an
// action and a natural-language element reference or raw coordinates,
// rather than a structured tool call. predict_step builds one text prompt
// from the user messages in history, asks the backend to describe its next
// action against the latest screenshot, and regex-parses the reply: the
// first action keyword sets the action type, and the first quoted string
// becomes the text (type), the keys (keypress, split on "+") or the
// element_description (every other action). Bracketed `[[x,y]]` /
// `[[x1,y1,x2,y2]]` coordinates in the reply are not parsed, so an action
// named without a quoted element description carries X=Y=0. PredictClick
// delegates to grounding.RegexBackend, which does parse those coordinates.
type GroundedStrategy struct {
	completer grounding.Completer
	name      string
}

func NewGroundedStrategy(name string, completer grounding.Completer) *GroundedStrategy {
	return &GroundedStrategy{completer: completer, name: name}
}

func (s *GroundedStrategy) Name() string { return s.name }

var actionKeyword = regexp.MustCompile(`(?i)\b(double_click|triple_click|left_mouse_down|left_mouse_up|keypress|hotkey|scroll|click|type|drag|wait|screenshot|move)\b`)

var quotedText = regexp.MustCompile(`["“]([^"”]*)["”]`)

func (s *GroundedStrategy) PredictStep(ctx context.Context, in StepInput) (StepOutput, error) {
	imageB64, haveImage := in.History.LastComputerCallOutputImage()
	if !haveImage {
		return StepOutput{}, fmt.Errorf("loop: %s: no screenshot in history to ground against", s.name)
	}

	prompt := groundedPrompt(in.History)
	text, err := s.completer.CompleteGrounding(ctx, stripDataURLPrefix(imageB64), prompt)
	if err != nil {
		return StepOutput{}, fmt.Errorf("loop: %s: %w", s.name, err)
	}

	action, desc := parseGroundedAction(text)
	if action.Type == "" {
		return StepOutput{}, fmt.Errorf("loop: %s: could not parse an action from model reply", s.name)
	}
	if desc != "" {
		action.ElementDescription = desc
	}

	callID := "call_" + uuid.NewString()
	return StepOutput{Items: responses.Items{responses.NewComputerCall(callID, action)}}, nil
}

func (s *GroundedStrategy) PredictClick(ctx context.Context, imageB64, instruction string) (grounding.Point, bool, error) {
	backend := grounding.NewRegexBackend(s.completer)
	return backend.PredictClick(ctx, imageB64, instruction)
}

func groundedPrompt(history responses.Items) string {
	var sb strings.Builder
	sb.WriteString("You control a computer. Describe your next single action as one of: ")
	sb.WriteString("click, double_click, triple_click, move, scroll, type, keypress, drag, wait, screenshot, left_mouse_down, left_mouse_up. ")
	sb.WriteString("Name the target element in quotes, or give its bounding box as [[x1,y1,x2,y2]] / a point as [[x,y]] in 0-1000 normalized space. ")
	for _, it := range history {
		if it.Type == responses.ItemMessage && it.Role == responses.RoleUser {
			for _, p := range it.Content {
				if p.Text != "" {
					sb.WriteString("\nTask: ")
					sb.WriteString(p.Text)
				}
			}
		}
	}
	return sb.String()
}

func parseGroundedAction(text string) (responses.Action, string) {
	a := responses.Action{}

	kw := actionKeyword.FindString(text)
	switch strings.ToLower(kw) {
	case "double_click":
		a.Type = responses.ActionDoubleClick
		a.Button = responses.ButtonLeft
	case "triple_click":
		a.Type = responses.ActionTripleClick
		a.Button = responses.ButtonLeft
	case "click":
		a.Type = responses.ActionClick
		a.Button = responses.ButtonLeft
	case "move":
		a.Type = responses.ActionMove
	case "scroll":
		a.Type = responses.ActionScroll
	case "type":
		a.Type = responses.ActionType_
	case "keypress", "hotkey":
		a.Type = responses.ActionKeypress
	case "drag":
		a.Type = responses.ActionDrag
	case "wait":
		a.Type = responses.ActionWait
	case "screenshot":
		a.Type = responses.ActionScreenshot
	case "left_mouse_down":
		a.Type = responses.ActionLeftMouseDown
	case "left_mouse_up":
		a.Type = responses.ActionLeftMouseUp
	default:
		return a, ""
	}

	if a.Type == responses.ActionType_ {
		if m := quotedText.FindStringSubmatch(text); m != nil {
			a.Text = m[1]
		}
	}
	if a.Type == responses.ActionKeypress {
		if m := quotedText.FindStringSubmatch(text); m != nil {
			a.Keys = strings.Split(m[1], "+")
		}
	}

	desc := ""
	if m := quotedText.FindStringSubmatch(text); m != nil && a.Type != responses.ActionType_ && a.Type != responses.ActionKeypress {
		desc = m[1]
	}
	return a, desc
}

func stripDataURLPrefix(dataURL string) string {
	if idx := strings.Index(dataURL, ","); idx >= 0 && strings.HasPrefix(dataURL, "data:") {
		return dataURL[idx+1:]
	}
	return dataURL
}
