package llm

import "context"

// Client is the interface that all LLM providers implement. tools are
// OpenAI-style function definitions:
//
//	{"type": "function", "function": {"name": ..., "description": ..., "parameters": {...}}}
type Client interface {
	Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error)
}

// ToolFunction extracts name, description and JSON Schema parameters from
// one OpenAI-style tool definition. ok is false for anything else.
func ToolFunction(tool map[string]any) (name, description string, params map[string]any, ok bool) {
	fn, isMap := tool["function"].(map[string]any)
	if !isMap {
		return "", "", nil, false
	}
	name, _ = fn["name"].(string)
	description, _ = fn["description"].(string)
	params, _ = fn["parameters"].(map[string]any)
	if params == nil {
		params = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return name, description, params, name != ""
}
