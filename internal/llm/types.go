// Package llm provides the model clients the supervisor talks to. Every
// provider is adapted to one Client interface; wire format conversion
// happens at the provider boundary.
package llm

import (
	"log/slog"
	"time"
)

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Message represents a chat message for the LLM.
type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // for tool responses
	Name       string     `json:"name,omitempty"`         // tool name, for tool responses
}

// ToolCall represents a tool call from the model.
type ToolCall struct {
	ID       string       `json:"id,omitempty"` // provider-assigned; correlates the tool result
	Function FunctionCall `json:"function"`
}

// FunctionCall is the name and decoded arguments of a tool call.
type FunctionCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ChatResponse is the unified response from any LLM provider.
type ChatResponse struct {
	Model     string
	CreatedAt time.Time
	Message   Message
	Done      bool

	InputTokens  int
	OutputTokens int

	TotalDuration time.Duration
}

// Options are generation parameters shared by all providers.
type Options struct {
	Temperature float64
	MaxTokens   int
	NumCtx      int // ollama context window
}
