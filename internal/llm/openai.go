package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient talks to the OpenAI chat completions API or any endpoint
// that speaks it (Perplexity, local gateways).
type OpenAIClient struct {
	provider string
	client   openai.Client
	opts     Options
	logger   *slog.Logger
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
// provider only labels log lines and errors. An empty baseURL uses the
// SDK default.
func NewOpenAIClient(provider, apiKey, baseURL string, opts Options, logger *slog.Logger) *OpenAIClient {
	if logger == nil {
		logger = slog.Default()
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{
		provider: provider,
		client:   openai.NewClient(reqOpts...),
		opts:     opts,
		logger:   logger.With("provider", provider),
	}
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: convertToOpenAI(messages),
		Tools:    convertToolsToOpenAI(tools),
	}
	if c.opts.Temperature > 0 {
		params.Temperature = openai.Float(c.opts.Temperature)
	}
	if c.opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.opts.MaxTokens))
	}

	c.logger.Debug("preparing request",
		"model", model,
		"messages", len(params.Messages),
		"tools", len(params.Tools),
	)

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fromOpenAI(c.provider, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s API returned no choices", c.provider)
	}

	msg := resp.Choices[0].Message
	result := &ChatResponse{
		Model:        resp.Model,
		CreatedAt:    time.Unix(resp.Created, 0),
		Done:         true,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		Message: Message{
			Role:    "assistant",
			Content: msg.Content,
		},
	}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = map[string]any{"_raw": tc.Function.Arguments}
			}
		}
		result.Message.ToolCalls = append(result.Message.ToolCalls, ToolCall{
			ID:       tc.ID,
			Function: FunctionCall{Name: tc.Function.Name, Arguments: args},
		})
	}

	c.logger.Debug("response received",
		"model", result.Model,
		"input_tokens", result.InputTokens,
		"output_tokens", result.OutputTokens,
		"tool_calls", len(result.Message.ToolCalls),
	)
	c.logger.Log(ctx, LevelTrace, "response content", "content", result.Message.Content)
	return result, nil
}

func convertToOpenAI(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "user":
			out = append(out, openai.UserMessage(m.Content))
		case "tool":
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case "assistant":
			p := openai.AssistantMessage(m.Content)
			for _, tc := range m.ToolCalls {
				args, err := json.Marshal(tc.Function.Arguments)
				if err != nil || tc.Function.Arguments == nil {
					args = []byte("{}")
				}
				p.OfAssistant.ToolCalls = append(p.OfAssistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Function.Name,
							Arguments: string(args),
						},
					},
				})
			}
			out = append(out, p)
		}
	}
	return out
}

func convertToolsToOpenAI(tools []map[string]any) []openai.ChatCompletionToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		name, desc, params, ok := ToolFunction(tool)
		if !ok {
			continue
		}
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        name,
			Description: openai.String(desc),
			Parameters:  openai.FunctionParameters(params),
		}))
	}
	return out
}
