package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/heliohq/helio/internal/httpkit"
)

// OllamaClient is a client for the Ollama chat API.
type OllamaClient struct {
	baseURL    string
	opts       Options
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(baseURL string, opts Options, logger *slog.Logger) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		opts:    opts,
		logger:  logger.With("provider", "ollama"),
		// Large local models with tools need time.
		httpClient: httpkit.NewClient(httpkit.WithTimeout(5 * time.Minute)),
	}
}

type ollamaRequest struct {
	Model    string           `json:"model"`
	Messages []ollamaMessage  `json:"messages"`
	Stream   bool             `json:"stream"`
	Tools    []map[string]any `json:"tools,omitempty"`
	Options  *ollamaOptions   `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
	ToolName  string           `json:"tool_name,omitempty"`
}

type ollamaToolCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"` // an object, not a string
	} `json:"function"`
}

type ollamaResponse struct {
	Model         string        `json:"model"`
	CreatedAt     time.Time     `json:"created_at"`
	Message       ollamaMessage `json:"message"`
	Done          bool          `json:"done"`
	TotalDuration int64         `json:"total_duration,omitempty"`
	PromptEval    int           `json:"prompt_eval_count,omitempty"`
	EvalCount     int           `json:"eval_count,omitempty"`
}

// Chat sends a non-streaming chat request to Ollama.
func (c *OllamaClient) Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error) {
	req := ollamaRequest{
		Model:    model,
		Messages: convertToOllama(messages),
		Tools:    tools,
		Options: &ollamaOptions{
			Temperature: c.opts.Temperature,
			NumPredict:  c.opts.MaxTokens,
			NumCtx:      c.opts.NumCtx,
		},
	}

	var chatResp ollamaResponse
	if err := postJSON(ctx, c.httpClient, c.logger, "ollama", c.baseURL+"/api/chat", nil, req, &chatResp); err != nil {
		return nil, err
	}

	result := &ChatResponse{
		Model:         chatResp.Model,
		CreatedAt:     chatResp.CreatedAt,
		Done:          chatResp.Done,
		InputTokens:   chatResp.PromptEval,
		OutputTokens:  chatResp.EvalCount,
		TotalDuration: time.Duration(chatResp.TotalDuration),
		Message: Message{
			Role:    "assistant",
			Content: chatResp.Message.Content,
		},
	}
	for _, tc := range chatResp.Message.ToolCalls {
		result.Message.ToolCalls = append(result.Message.ToolCalls, ToolCall{
			Function: FunctionCall{Name: tc.Function.Name, Arguments: tc.Function.Arguments},
		})
	}

	// Small models often emit tool calls as JSON text instead of using
	// the native field.
	if len(result.Message.ToolCalls) == 0 && result.Message.Content != "" {
		if parsed := parseTextToolCalls(result.Message.Content); len(parsed) > 0 {
			result.Message.ToolCalls = parsed
			result.Message.Content = ""
		}
	}

	c.logger.Debug("response received",
		"model", result.Model,
		"input_tokens", result.InputTokens,
		"output_tokens", result.OutputTokens,
		"tool_calls", len(result.Message.ToolCalls),
	)
	return result, nil
}

func convertToOllama(messages []Message) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(messages))
	for _, m := range messages {
		om := ollamaMessage{Role: m.Role, Content: m.Content}
		if m.Role == "tool" {
			om.ToolName = m.Name
		}
		for _, tc := range m.ToolCalls {
			var otc ollamaToolCall
			otc.Function.Name = tc.Function.Name
			otc.Function.Arguments = tc.Function.Arguments
			om.ToolCalls = append(om.ToolCalls, otc)
		}
		out = append(out, om)
	}
	return out
}

// parseTextToolCalls extracts tool calls written into content text. It
// accepts a raw JSON object {"name": ..., "arguments": {...}}, a JSON
// array of those, or either wrapped in <tool_call> tags.
func parseTextToolCalls(content string) []ToolCall {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	if start := strings.Index(content, "<tool_call>"); start != -1 {
		rest := content[start+len("<tool_call>"):]
		if end := strings.Index(rest, "</tool_call>"); end != -1 {
			rest = rest[:end]
		}
		content = strings.TrimSpace(rest)
	}

	type textCall struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}

	var calls []textCall
	if err := json.Unmarshal([]byte(content), &calls); err != nil || len(calls) == 0 {
		var single textCall
		if err := json.Unmarshal([]byte(content), &single); err != nil || single.Name == "" {
			return nil
		}
		calls = []textCall{single}
	}

	result := make([]ToolCall, 0, len(calls))
	for _, c := range calls {
		if c.Name == "" {
			return nil
		}
		result = append(result, ToolCall{Function: FunctionCall{Name: c.Name, Arguments: c.Arguments}})
	}
	return result
}
