package agent

import (
	"context"

	"github.com/heliohq/helio/internal/prompts"
	"github.com/heliohq/helio/internal/tools"
)

// critique reviews the final answer with the summarizer tool. A failure
// is logged and yields "", leaving the main result untouched.
func (r *run) critique(ctx context.Context) string {
	raw := map[string]any{
		"text": prompts.CritiqueInput(r.req.Input, r.result.Output),
	}
	if n := r.loop.cfg.CritiqueMaxWords; n > 0 {
		raw["max_words"] = n
	}
	_, args, err := r.registry.Validate(tools.SummarizeText, raw)
	if err != nil {
		r.logger.Warn("self-critique skipped", "error", err)
		return ""
	}
	out, err := r.registry.Execute(ctx, tools.SummarizeText, args)
	if err != nil {
		r.logger.Warn("self-critique failed", "error", err)
		return ""
	}
	return out
}
