// Package responses defines the canonical "responses" conversation item
// model — the source of truth for a run's history — and the converters to
// and from the flat chat-completion message shape most provider SDKs
// expect (lossless only on the subset described at CompletionToResponses).
//
// A conversation is an ordered, append-only slice of Item. Each Item is a
// tagged union discriminated by Type; exactly one of the typed payload
// fields on Item is populated for a given Type. Keeping the union as a
// single struct (rather than an interface with one implementation per type)
// keeps json.Marshal/Unmarshal trivial and keeps item slices copyable by
// value, which matters because the orchestrator takes snapshots of the item
// list for callbacks to transform independently.
package responses

import (
	"encoding/json"
	"fmt"
)

// ItemType discriminates the members of the Item union.
type ItemType string

const (
	ItemMessage             ItemType = "message"
	ItemReasoning           ItemType = "reasoning"
	ItemComputerCall        ItemType = "computer_call"
	ItemComputerCallOutput  ItemType = "computer_call_output"
	ItemFunctionCall        ItemType = "function_call"
	ItemFunctionCallOutput  ItemType = "function_call_output"
)

// Role is the author of a message item.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// CallStatus is the lifecycle state of a computer_call item.
type CallStatus string

const (
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
)

// ContentPartType discriminates Message content parts. "input_*" parts
// originate from the user or a tool result; "output_*" parts originate from
// the assistant (§3.1).
type ContentPartType string

const (
	ContentInputText  ContentPartType = "input_text"
	ContentOutputText ContentPartType = "output_text"
	ContentInputImage ContentPartType = "input_image"
)

// ContentPart is one piece of a message's content.
type ContentPart struct {
	Type     ContentPartType `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL string          `json:"image_url,omitempty"`
}

// SummaryPart is one piece of a reasoning item's opaque summary.
type SummaryPart struct {
	Type string `json:"type"` // always "summary_text"
	Text string `json:"text"`
}

// ComputerCallOutputPayload is the output field of a computer_call_output
// item: a screenshot data URL.
type ComputerCallOutputPayload struct {
	Type     string `json:"type"` // always "input_image"
	ImageURL string `json:"image_url"`
}

// Item is the tagged-union conversation entry. See the package doc for the
// rationale behind a flat struct instead of an interface hierarchy.
//
// Only the fields relevant to Type are meaningful; json tags with
// omitempty keep the wire form sparse regardless of which variant is set.
// Output and FunctionOutput are tagged "-" and instead multiplexed onto the
// wire's single "output" key by MarshalJSON/UnmarshalJSON below.
type Item struct {
	Type ItemType `json:"type"`

	// message
	Role    Role          `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`

	// reasoning
	Summary []SummaryPart `json:"summary,omitempty"`

	// computer_call / computer_call_output / function_call / function_call_output
	CallID string `json:"call_id,omitempty"`

	// computer_call
	Status CallStatus `json:"status,omitempty"`
	Action *Action    `json:"action,omitempty"`

	// computer_call_output
	Output *ComputerCallOutputPayload `json:"-"`

	// function_call
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// function_call_output
	FunctionOutput string `json:"-"`
}

// itemWire is Item's on-wire shape (§3.1). computer_call_output's "output"
// is a nested {type, image_url} object while function_call_output's
// "output" is a bare string (`function_call_output — {call_id, output}`),
// so the two can't share one Go struct field with a single json tag without
// the json package treating both as ambiguous on decode. MarshalJSON/
// UnmarshalJSON below multiplex the single wire key "output" onto whichever
// typed field matches Type.
type itemWire struct {
	Type      ItemType        `json:"type"`
	Role      Role            `json:"role,omitempty"`
	Content   []ContentPart   `json:"content,omitempty"`
	Summary   []SummaryPart   `json:"summary,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	Status    CallStatus      `json:"status,omitempty"`
	Action    *Action         `json:"action,omitempty"`
	Output    json.RawMessage `json:"output,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments string          `json:"arguments,omitempty"`
}

func (it Item) MarshalJSON() ([]byte, error) {
	w := itemWire{
		Type: it.Type, Role: it.Role, Content: it.Content, Summary: it.Summary,
		CallID: it.CallID, Status: it.Status, Action: it.Action,
		Name: it.Name, Arguments: it.Arguments,
	}
	switch it.Type {
	case ItemComputerCallOutput:
		if it.Output != nil {
			raw, err := json.Marshal(it.Output)
			if err != nil {
				return nil, err
			}
			w.Output = raw
		}
	case ItemFunctionCallOutput:
		raw, err := json.Marshal(it.FunctionOutput)
		if err != nil {
			return nil, err
		}
		w.Output = raw
	}
	return json.Marshal(w)
}

func (it *Item) UnmarshalJSON(data []byte) error {
	var w itemWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*it = Item{
		Type: w.Type, Role: w.Role, Content: w.Content, Summary: w.Summary,
		CallID: w.CallID, Status: w.Status, Action: w.Action,
		Name: w.Name, Arguments: w.Arguments,
	}
	switch w.Type {
	case ItemComputerCallOutput:
		if len(w.Output) > 0 {
			var payload ComputerCallOutputPayload
			if err := json.Unmarshal(w.Output, &payload); err != nil {
				return fmt.Errorf("decode computer_call_output output: %w", err)
			}
			it.Output = &payload
		}
	case ItemFunctionCallOutput:
		if len(w.Output) > 0 {
			var s string
			if err := json.Unmarshal(w.Output, &s); err != nil {
				return fmt.Errorf("decode function_call_output output: %w", err)
			}
			it.FunctionOutput = s
		}
	}
	return nil
}

// NewUserText builds a `message` item with a single input_text content part.
func NewUserText(text string) Item {
	return Item{Type: ItemMessage, Role: RoleUser, Content: []ContentPart{{Type: ContentInputText, Text: text}}}
}

// NewAssistantText builds a `message` item with a single output_text content part.
func NewAssistantText(text string) Item {
	return Item{Type: ItemMessage, Role: RoleAssistant, Content: []ContentPart{{Type: ContentOutputText, Text: text}}}
}

// NewUserImage builds a `message` item carrying a single input_image part,
// used when image-retention demotes a computer_call_output (§4.1).
func NewUserImage(dataURL string) Item {
	return Item{Type: ItemMessage, Role: RoleUser, Content: []ContentPart{{Type: ContentInputImage, ImageURL: dataURL}}}
}

// NewComputerCall builds a pending computer_call item.
func NewComputerCall(callID string, action Action) Item {
	return Item{Type: ItemComputerCall, CallID: callID, Status: CallStatusInProgress, Action: &action}
}

// NewComputerCallOutput pairs a screenshot data URL with its call_id.
func NewComputerCallOutput(callID, imageDataURL string) Item {
	return Item{
		Type:   ItemComputerCallOutput,
		CallID: callID,
		Output: &ComputerCallOutputPayload{Type: "input_image", ImageURL: imageDataURL},
	}
}

// NewFunctionCall builds a function_call item with arguments already
// JSON-encoded, matching the wire shape (§3.1: "arguments(JSON string)").
func NewFunctionCall(callID, name string, arguments any) (Item, error) {
	raw, err := json.Marshal(arguments)
	if err != nil {
		return Item{}, err
	}
	return Item{Type: ItemFunctionCall, CallID: callID, Name: name, Arguments: string(raw)}, nil
}

// NewFunctionCallOutput builds a function_call_output item, used for both
// successful non-computer tool results and the synthetic error outputs
// produced by ActionExecutionError / GroundingFailure handling (§7).
func NewFunctionCallOutput(callID, output string) Item {
	return Item{Type: ItemFunctionCallOutput, CallID: callID, FunctionOutput: output}
}

// Items is a conversation trace. It is always treated as append-only except
// by the image-retention callback, which may drop evicted entries (§4.4).
type Items []Item

// Clone returns a deep-enough copy for a callback to mutate without
// aliasing the caller's slice backing array or Action pointers.
func (items Items) Clone() Items {
	out := make(Items, len(items))
	for i, it := range items {
		cp := it
		if it.Action != nil {
			a := *it.Action
			cp.Action = &a
		}
		if it.Output != nil {
			o := *it.Output
			cp.Output = &o
		}
		if it.Content != nil {
			cp.Content = append([]ContentPart(nil), it.Content...)
		}
		if it.Summary != nil {
			cp.Summary = append([]SummaryPart(nil), it.Summary...)
		}
		out[i] = cp
	}
	return out
}

// PendingComputerCalls returns the call_ids of every computer_call in items
// that has no corresponding computer_call_output or failure
// function_call_output (§3.1 invariant, §8 property 1).
func (items Items) PendingComputerCalls() []string {
	answered := map[string]bool{}
	for _, it := range items {
		if it.Type == ItemComputerCallOutput || it.Type == ItemFunctionCallOutput {
			answered[it.CallID] = true
		}
	}
	var pending []string
	for _, it := range items {
		if it.Type == ItemComputerCall && !answered[it.CallID] {
			pending = append(pending, it.CallID)
		}
	}
	return pending
}

// LastComputerCallOutputImage returns the image data URL of the most recent
// computer_call_output in items, used by strategies to know what the model
// last saw before deciding a follow-up action.
func (items Items) LastComputerCallOutputImage() (string, bool) {
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Type == ItemComputerCallOutput && items[i].Output != nil {
			return items[i].Output.ImageURL, true
		}
	}
	return "", false
}
