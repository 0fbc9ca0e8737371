package toolregistry

import "encoding/json"

// decodeArgs round-trips rawArgs (as decoded from the LLM's tool-use JSON)
// into the handler's typed argument struct via JSON, the simplest faithful
// bridge between a schemaless map and a concrete Go type.
func decodeArgs(rawArgs map[string]any, out any) error {
	data, err := json.Marshal(rawArgs)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// AnthropicToolDef is the wire shape Anthropic's Messages API expects for a
// tool definition (§4.7: "translated to each provider's tool-schema shape").
type AnthropicToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// OpenAIToolDef is the wire shape OpenAI's chat-completions API expects.
type OpenAIToolDef struct {
	Type     string             `json:"type"` // always "function"
	Function OpenAIFunctionSpec `json:"function"`
}

// OpenAIFunctionSpec is the nested function body of an OpenAIToolDef.
type OpenAIFunctionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func schemaAsMap(t *Tool) map[string]any {
	data, err := json.Marshal(t.Schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	return m
}

// ExportAnthropic renders tools in Anthropic's input_schema shape.
func ExportAnthropic(tools []*Tool) []AnthropicToolDef {
	out := make([]AnthropicToolDef, 0, len(tools))
	for _, t := range tools {
		out = append(out, AnthropicToolDef{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schemaAsMap(t),
		})
	}
	return out
}

// ExportOpenAI renders tools in OpenAI's function-parameters shape.
func ExportOpenAI(tools []*Tool) []OpenAIToolDef {
	out := make([]OpenAIToolDef, 0, len(tools))
	for _, t := range tools {
		out = append(out, OpenAIToolDef{
			Type: "function",
			Function: OpenAIFunctionSpec{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schemaAsMap(t),
			},
		})
	}
	return out
}
