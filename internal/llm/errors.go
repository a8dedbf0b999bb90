package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/heliohq/helio/internal/httpkit"
	"github.com/openai/openai-go/v3"
)

// APIError is a non-success answer from a provider endpoint.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s API error: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable reports whether err wraps a retryable APIError.
func IsRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable()
}

// errorMessage pulls the human-readable part out of an error body.
// Ollama sends {"error": "..."}; Anthropic and OpenAI-compatible
// servers nest it as {"error": {"message": "..."}}. Anything else is
// returned as is.
func errorMessage(body string) string {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal([]byte(body), &env) != nil || len(env.Error) == 0 {
		return body
	}
	var flat string
	if json.Unmarshal(env.Error, &flat) == nil && flat != "" {
		return flat
	}
	var nested struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if json.Unmarshal(env.Error, &nested) == nil && nested.Message != "" {
		if nested.Type != "" {
			return nested.Type + ": " + nested.Message
		}
		return nested.Message
	}
	return body
}

// fromOpenAI converts an SDK error into an APIError so callers see one
// error type regardless of provider.
func fromOpenAI(provider string, err error) error {
	var sdkErr *openai.Error
	if errors.As(err, &sdkErr) {
		msg := sdkErr.Message
		if msg == "" {
			msg = http.StatusText(sdkErr.StatusCode)
		}
		return &APIError{Provider: provider, StatusCode: sdkErr.StatusCode, Message: msg}
	}
	return fmt.Errorf("%s request: %w", provider, err)
}

// postJSON sends payload to url and decodes a 200 answer into out.
func postJSON(ctx context.Context, hc *http.Client, logger *slog.Logger, provider, url string, header http.Header, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", provider, err)
	}
	logger.Log(ctx, LevelTrace, "request payload", "json", string(data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create %s request: %w", provider, err)
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 4096)
		logger.Warn("API error", "status", resp.StatusCode, "body", body)
		return &APIError{Provider: provider, StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", provider, err)
	}
	return nil
}
