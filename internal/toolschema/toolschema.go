// Package toolschema prepares function-call tool schemas for each provider
// wire format (§4.3), and synthesizes the single virtual "computer" function
// tool the composed planner+grounder loop (§4.6.D) exposes to a model that
// has no native computer-use affordance.
package toolschema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	jsonschemav5 "github.com/santhosh-tekuri/jsonschema/v5"
)

// Tool is a function tool definition independent of any wire format.
type Tool struct {
	Name        string
	Description string
	Schema      json.RawMessage // raw JSON Schema object
}

// Validate compiles Schema and rejects it at construction time (ConfigError,
// §7) rather than failing lazily on first use.
func (t Tool) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("toolschema: tool has empty name")
	}
	compiler := jsonschemav5.NewCompiler()
	if err := compiler.AddResource(t.Name+".json", strings.NewReader(string(t.Schema))); err != nil {
		return fmt.Errorf("toolschema: tool %s: add schema resource: %w", t.Name, err)
	}
	if _, err := compiler.Compile(t.Name + ".json"); err != nil {
		return fmt.Errorf("toolschema: tool %s: invalid json schema: %w", t.Name, err)
	}
	return nil
}

// ValidateAll validates every tool, returning the first failure.
func ValidateAll(tools []Tool) error {
	for _, t := range tools {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SchemaFromGoType derives a JSON Schema for a tool's arguments from a Go
// struct using invopop/jsonschema, for tools defined natively in Go rather
// than hand-authored as a raw schema literal.
func SchemaFromGoType(v any) (json.RawMessage, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(v)
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("toolschema: marshal reflected schema: %w", err)
	}
	return data, nil
}

// ComputerToolName is the function name the composed loop (§4.6.D) exposes
// in place of native computer-use affordances.
const ComputerToolName = "computer"

// computerArgsSchema is the parameter schema for the virtual computer tool:
// an element_description string naming the target, plus the same action
// vocabulary the normalizer accepts.
const computerArgsSchema = `{
  "type": "object",
  "properties": {
    "action": {
      "type": "string",
      "enum": ["click", "double_click", "triple_click", "move", "scroll", "type", "keypress", "drag", "wait", "screenshot", "left_mouse_down", "left_mouse_up"]
    },
    "element_description": {
      "type": "string",
      "description": "natural-language description of the UI element to act on, resolved by the grounder"
    },
    "text": {"type": "string"},
    "keys": {"type": "array", "items": {"type": "string"}},
    "scroll_x": {"type": "number"},
    "scroll_y": {"type": "number"}
  },
  "required": ["action"]
}`

// ComputerTool returns the virtual function tool definition for the
// composed planner+grounder strategy.
func ComputerTool() Tool {
	return Tool{
		Name:        ComputerToolName,
		Description: "Perform an action against the screen by describing the target element in natural language; a grounding model resolves the description to screen coordinates.",
		Schema:      json.RawMessage(computerArgsSchema),
	}
}
