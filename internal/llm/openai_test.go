package llm

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIChat(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1700000000, "model": "gpt-test",
			"choices": [{"index": 0, "finish_reason": "tool_calls", "message": {
				"role": "assistant", "content": "",
				"tool_calls": [{"id": "call_7", "type": "function",
					"function": {"name": "summarize_text", "arguments": "{\"text\":\"abc\",\"max_words\":50}"}}]
			}}],
			"usage": {"prompt_tokens": 21, "completion_tokens": 5, "total_tokens": 26}
		}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("openai", "sk-test", srv.URL, Options{Temperature: 0.1, MaxTokens: 100}, nil)
	resp, err := c.Chat(t.Context(), "gpt-test", []Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "call_1", Function: FunctionCall{Name: "plan_tasks", Arguments: map[string]any{"goal": "g"}}}}},
		{Role: "tool", ToolCallID: "call_1", Content: "1. step"},
	}, []map[string]any{{"type": "function", "function": map[string]any{
		"name": "summarize_text", "description": "Summarize",
		"parameters": map[string]any{"type": "object"},
	}}})
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}

	if body["model"] != "gpt-test" {
		t.Errorf("model = %v", body["model"])
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 4 {
		t.Fatalf("messages = %d, want 4", len(msgs))
	}
	assistant, _ := msgs[2].(map[string]any)
	calls, _ := assistant["tool_calls"].([]any)
	if len(calls) != 1 {
		t.Fatalf("assistant tool_calls = %v", assistant["tool_calls"])
	}
	fn := calls[0].(map[string]any)["function"].(map[string]any)
	if fn["arguments"] != `{"goal":"g"}` {
		t.Errorf("arguments = %v, want JSON string", fn["arguments"])
	}
	tool, _ := msgs[3].(map[string]any)
	if tool["tool_call_id"] != "call_1" {
		t.Errorf("tool_call_id = %v", tool["tool_call_id"])
	}
	if tools, _ := body["tools"].([]any); len(tools) != 1 {
		t.Errorf("tools = %v", body["tools"])
	}

	if resp.InputTokens != 21 || resp.OutputTokens != 5 {
		t.Errorf("tokens = %d/%d", resp.InputTokens, resp.OutputTokens)
	}
	if len(resp.Message.ToolCalls) != 1 {
		t.Fatalf("tool calls = %+v", resp.Message.ToolCalls)
	}
	tc := resp.Message.ToolCalls[0]
	if tc.ID != "call_7" || tc.Function.Name != "summarize_text" {
		t.Errorf("tool call = %+v", tc)
	}
	if tc.Function.Arguments["text"] != "abc" || tc.Function.Arguments["max_words"] != float64(50) {
		t.Errorf("arguments = %+v", tc.Function.Arguments)
	}
}

func TestOpenAIChat_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "x", "object": "chat.completion", "created": 1, "model": "m", "choices": []}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIClient("perplexity", "k", srv.URL, Options{}, nil).Chat(t.Context(), "m", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "perplexity") {
		t.Fatalf("err = %v, want provider-labeled no choices error", err)
	}
}
