package callback

import (
	"context"
	"strings"

	"github.com/haasonsaas/cua/internal/responses"
)

// OperatorNormalizer fixes common computer_call action hallucinations
// before normalization errors would otherwise cost another model turn
// (§3.2, §4.4 bundled callbacks). It mirrors the original runtime's
// action-repair pass exactly: folding the raw "coordinate"/"start_coordinate"/
// "end_coordinate"/"click"/string-"keys" shapes Action.UnmarshalJSON captured
// in Raw (since the typed schema has no field for them), renaming aliased
// action/mouse-button names, splitting hyphen/plus-joined key combos, and
// finally trimming each action down to its required-keys-by-type set so
// stray fields never leak into Validate().
//
// Idempotent: running it twice on already-normalized output is a no-op,
// since every rewrite only fires when the old/aliased shape is present.
type OperatorNormalizer struct{ Base }

func NewOperatorNormalizer() *OperatorNormalizer { return &OperatorNormalizer{} }

var mouseButtonAliases = []responses.Button{
	responses.ButtonLeft, responses.ButtonRight, responses.ButtonWheel,
	responses.ButtonBack, responses.ButtonForward,
}

var hotkeyAliases = []string{"hotkey", "key", "press", "key_press"}

var requiredKeysByType = map[responses.ActionType][]string{
	responses.ActionClick:          {"button", "x", "y"},
	responses.ActionDoubleClick:    {"x", "y"},
	responses.ActionDrag:           {"path"},
	responses.ActionKeypress:       {"keys"},
	responses.ActionMove:           {"x", "y"},
	responses.ActionScreenshot:     {},
	responses.ActionScroll:         {"scroll_x", "scroll_y", "x", "y"},
	responses.ActionType_:          {"text"},
	responses.ActionWait:           {},
	responses.ActionLeftMouseDown:  {"x", "y"},
	responses.ActionLeftMouseUp:    {"x", "y"},
	responses.ActionTripleClick:    {"button", "x", "y"},
}

func (OperatorNormalizer) OnLLMEnd(_ context.Context, output responses.Items) (responses.Items, error) {
	for i := range output {
		if output[i].Type != responses.ItemComputerCall || output[i].Action == nil {
			continue
		}
		normalizeAction(output[i].Action)
	}
	return output, nil
}

func normalizeAction(a *responses.Action) {
	foldRawShape(a)

	for _, btn := range mouseButtonAliases {
		if a.Type == responses.ActionType(string(btn)+"_click") {
			a.Type = responses.ActionClick
			a.Button = btn
		}
	}
	for _, alias := range hotkeyAliases {
		if string(a.Type) == alias {
			a.Type = responses.ActionKeypress
		}
	}

	if a.Type == "" {
		switch {
		case a.Button != "":
			a.Type = responses.ActionClick
		case a.ScrollX != 0 || a.ScrollY != 0:
			a.Type = responses.ActionScroll
		case a.Text != "":
			a.Type = responses.ActionType_
		}
	}

	if a.Type == responses.ActionClick && a.Button == "" {
		a.Button = responses.ButtonLeft
	}

	if a.Type == responses.ActionKeypress && len(a.Keys) == 1 {
		combo := a.Keys[0]
		if strings.Contains(combo, "+") || strings.Contains(combo, "-") {
			a.Keys = strings.Split(strings.ReplaceAll(combo, "-", "+"), "+")
		}
	}

	keep, ok := requiredKeysByType[a.Type]
	if !ok {
		return
	}
	trimToKeys(a, keep)
}

// foldRawShape folds the pre-decode shapes captured in a.Raw (§4.4, S4) into
// the typed fields the rest of normalizeAction and Validate() understand:
// "coordinate" into x/y, "start_coordinate"/"end_coordinate" into a two-point
// drag path, "click" into "button" (only when a button wasn't already set,
// matching operator_validator.py's click-type gate), and a "keys" string into
// a single-element list that the hyphen/plus-combo split further below can
// then expand. Runs first so every later step sees the typed fields as if
// the model had emitted the canonical shape to begin with.
func foldRawShape(a *responses.Action) {
	raw := a.Raw
	if len(raw.Coordinate) == 2 {
		a.X, a.Y = raw.Coordinate[0], raw.Coordinate[1]
	}
	if len(raw.StartCoordinate) == 2 {
		a.Path = append(a.Path, responses.Point{X: raw.StartCoordinate[0], Y: raw.StartCoordinate[1]})
	}
	if len(raw.EndCoordinate) == 2 {
		a.Path = append(a.Path, responses.Point{X: raw.EndCoordinate[0], Y: raw.EndCoordinate[1]})
	}
	if raw.Click != "" && a.Button == "" {
		a.Button = responses.Button(raw.Click)
	}
	if raw.KeysString != "" && len(a.Keys) == 0 {
		a.Keys = []string{raw.KeysString}
	}
	a.Raw = responses.RawShape{}
}

// trimToKeys zeroes every field not named in keep, matching the original's
// "keep only the provided keys" behavior field-for-field rather than
// key-for-key since Action is a typed struct, not a dynamic map.
func trimToKeys(a *responses.Action, keep []string) {
	has := func(name string) bool {
		for _, k := range keep {
			if k == name {
				return true
			}
		}
		return false
	}
	if !has("button") {
		a.Button = ""
	}
	if !has("x") {
		a.X = 0
	}
	if !has("y") {
		a.Y = 0
	}
	if !has("scroll_x") {
		a.ScrollX = 0
	}
	if !has("scroll_y") {
		a.ScrollY = 0
	}
	if !has("text") {
		a.Text = ""
	}
	if !has("keys") {
		a.Keys = nil
	}
	if !has("path") {
		a.Path = nil
	}
}
