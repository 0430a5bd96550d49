package responses

import (
	"encoding/json"
	"fmt"
)

// ActionType is one of the normalized action variants in §3.2. This set is
// frozen: the open question in spec.md §9 ("action schema drift") is
// resolved by rejecting anything outside it rather than coercing further —
// see OperatorNormalizer in internal/callback for the documented coercions
// that run before validation.
type ActionType string

const (
	ActionClick         ActionType = "click"
	ActionDoubleClick   ActionType = "double_click"
	ActionTripleClick   ActionType = "triple_click"
	ActionMove          ActionType = "move"
	ActionScroll        ActionType = "scroll"
	ActionType_         ActionType = "type" // avoid colliding with the ActionType Go type name
	ActionKeypress      ActionType = "keypress"
	ActionDrag          ActionType = "drag"
	ActionWait          ActionType = "wait"
	ActionScreenshot    ActionType = "screenshot"
	ActionLeftMouseDown ActionType = "left_mouse_down"
	ActionLeftMouseUp   ActionType = "left_mouse_up"
)

// Button is a mouse button identifier.
type Button string

const (
	ButtonLeft    Button = "left"
	ButtonRight   Button = "right"
	ButtonWheel   Button = "wheel"
	ButtonBack    Button = "back"
	ButtonForward Button = "forward"
)

// Point is one coordinate pair, used for Action.Path (drag).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Action is the normalized action payload attached to a computer_call item.
// Coordinates are absolute pixel integers in screen space once an action
// reaches this shape (§3.2); composed-loop planner output instead carries
// ElementDescription fields until the grounding pass resolves them to X/Y
// (§4.6.D), at which point they are rewritten in place.
type Action struct {
	Type ActionType `json:"type"`

	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
	Button Button `json:"button,omitempty"`

	ScrollX float64 `json:"scroll_x,omitempty"`
	ScrollY float64 `json:"scroll_y,omitempty"`

	Text string   `json:"text,omitempty"`
	Keys []string `json:"keys,omitempty"`

	Path []Point `json:"path,omitempty"`

	// Composed-loop (§4.6.D) element references, resolved against the
	// grounding cache before dispatch and never sent to a handler directly.
	ElementDescription      string `json:"element_description,omitempty"`
	StartElementDescription string `json:"start_element_description,omitempty"`
	EndElementDescription   string `json:"end_element_description,omitempty"`

	// Raw holds the subset of the as-emitted JSON shape this struct has no
	// typed field for — captured by UnmarshalJSON below so OperatorNormalizer
	// can fold it into the typed fields above before Validate() runs (§4.4,
	// S4). Never populated by NewComputerCall or any other in-process
	// constructor; only json.Unmarshal sets it.
	Raw RawShape `json:"-"`
}

// RawShape is the pre-normalization subset of a computer_call action's
// as-emitted JSON that Action has no typed field for: a "coordinate" (or
// "start_coordinate"/"end_coordinate") pair instead of x/y, a "click" alias
// for "button", and "keys" arriving as a single hyphen/plus-joined string
// instead of a list. Mirrors the shapes original_source's
// operator_validator.py folds before validating.
type RawShape struct {
	Coordinate      []float64
	StartCoordinate []float64
	EndCoordinate   []float64
	Click           string
	KeysString      string
}

// UnmarshalJSON decodes the frozen schema's typed fields as usual, but first
// lifts out "coordinate"/"start_coordinate"/"end_coordinate", "click", and a
// string-shaped "keys" into Raw rather than letting json.Unmarshal silently
// drop fields with no matching struct tag (coordinate/click) or error out on
// a type mismatch (a "keys" string against the []string field). Those raw
// values are folded into the typed fields by OperatorNormalizer, which runs
// before Validate() ever sees the action.
func (a *Action) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var raw RawShape
	if v, ok := fields["coordinate"]; ok {
		_ = json.Unmarshal(v, &raw.Coordinate)
		delete(fields, "coordinate")
	}
	if v, ok := fields["start_coordinate"]; ok {
		_ = json.Unmarshal(v, &raw.StartCoordinate)
		delete(fields, "start_coordinate")
	}
	if v, ok := fields["end_coordinate"]; ok {
		_ = json.Unmarshal(v, &raw.EndCoordinate)
		delete(fields, "end_coordinate")
	}
	if v, ok := fields["click"]; ok {
		_ = json.Unmarshal(v, &raw.Click)
		delete(fields, "click")
	}
	if v, ok := fields["keys"]; ok {
		var asString string
		if err := json.Unmarshal(v, &asString); err == nil {
			raw.KeysString = asString
			delete(fields, "keys")
		}
		// else: keys is already a list — leave it for the decode below.
	}

	rest, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	type alias Action
	var decoded alias
	if err := json.Unmarshal(rest, &decoded); err != nil {
		return err
	}
	*a = Action(decoded)
	a.Raw = raw
	return nil
}

// requiredKeysByType mirrors the normalizer's keep-list (grounded on the
// original implementation's OperatorNormalizerCallback): the canonical set
// of fields each action type retains after normalization.
var requiredKeysByType = map[ActionType][]string{
	ActionClick:         {"button", "x", "y"},
	ActionDoubleClick:   {"x", "y"},
	ActionTripleClick:   {"button", "x", "y"},
	ActionMove:          {"x", "y"},
	ActionScroll:        {"x", "y", "scroll_x", "scroll_y"},
	ActionType_:         {"text"},
	ActionKeypress:      {"keys"},
	ActionDrag:          {"path"},
	ActionWait:          {},
	ActionScreenshot:    {},
	ActionLeftMouseDown: {"x", "y"},
	ActionLeftMouseUp:   {"x", "y"},
}

// Validate checks a after normalization conforms to the frozen schema
// (§8 property 4). It does not attempt any coercion — that is
// OperatorNormalizer's job, which runs first in the callback chain.
func (a Action) Validate() error {
	required, ok := requiredKeysByType[a.Type]
	if !ok {
		return fmt.Errorf("action type %q is not a recognized action", a.Type)
	}
	for _, key := range required {
		switch key {
		case "x", "y":
			// zero is a valid pixel coordinate; presence is enforced structurally
			// by the caller always setting both together (see normalizer).
		case "button":
			if a.Button == "" {
				return fmt.Errorf("action %q requires button", a.Type)
			}
		case "text":
			if a.Text == "" && a.Type == ActionType_ {
				return fmt.Errorf("action %q requires non-empty text", a.Type)
			}
		case "keys":
			if len(a.Keys) == 0 {
				return fmt.Errorf("action %q requires at least one key", a.Type)
			}
		case "path":
			if len(a.Path) == 0 {
				return fmt.Errorf("action %q requires a non-empty path", a.Type)
			}
		}
	}
	return nil
}

// HasElementReference reports whether a still carries an unresolved
// element-description reference instead of concrete coordinates (§4.6.D
// step 3-5).
func (a Action) HasElementReference() bool {
	return a.ElementDescription != "" || a.StartElementDescription != "" || a.EndElementDescription != ""
}
