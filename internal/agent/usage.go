package agent

import (
	"context"
	"sync"

	"github.com/heliohq/helio/internal/llm"
	"github.com/heliohq/helio/internal/usage"
)

// UsageRecorder persists per-call token usage.
type UsageRecorder interface {
	Record(ctx context.Context, rec usage.Record) error
}

// meteredClient counts the tokens of every model call a run makes,
// including calls made inside tools, and forwards them to the recorder.
type meteredClient struct {
	llm.Client
	r *run

	mu     sync.Mutex
	input  int
	output int
}

func (m *meteredClient) Chat(ctx context.Context, model string, messages []llm.Message, tools []map[string]any) (*llm.ChatResponse, error) {
	resp, err := m.Client.Chat(ctx, model, messages, tools)
	if err != nil {
		return resp, err
	}

	m.mu.Lock()
	m.input += resp.InputTokens
	m.output += resp.OutputTokens
	m.mu.Unlock()

	rec := m.r.loop.deps.Usage
	if rec == nil {
		return resp, nil
	}
	purpose := usage.PurposeSupervisor
	if tools == nil {
		purpose = usage.PurposeTool
	}
	if err := rec.Record(context.WithoutCancel(ctx), usage.Record{
		Timestamp:      m.r.loop.now(),
		RunID:          m.r.result.RunID,
		ConversationID: m.r.convID,
		Provider:       m.r.provider,
		Model:          model,
		Purpose:        purpose,
		InputTokens:    resp.InputTokens,
		OutputTokens:   resp.OutputTokens,
	}); err != nil {
		m.r.logger.Warn("usage not recorded", "error", err)
	}
	return resp, nil
}

// totals returns the tokens counted so far.
func (m *meteredClient) totals() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.input, m.output
}
