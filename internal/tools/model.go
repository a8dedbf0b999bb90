package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/heliohq/helio/internal/llm"
	"github.com/heliohq/helio/internal/prompts"
)

func complete(ctx context.Context, deps Deps, system, user string) (string, error) {
	if deps.LLM == nil {
		return "", unconfigured("model client")
	}
	resp, err := deps.LLM.Chat(ctx, deps.Model, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("model call: %w", err)
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

func planTool(deps Deps, opts Options) *Tool {
	return &Tool{
		Descriptor: Descriptor{
			Name:        PlanTasks,
			Description: "Break a high-level goal into an ordered step-by-step plan.",
			SideEffect:  Safe,
			Fields: []Field{
				{Name: "goal", Type: String, Required: true, Description: "High-level user goal, natural language."},
				{Name: "max_steps", Type: Integer, Min: 1, Max: 50, Default: opts.PlanMaxSteps, Description: "Maximum number of steps in the plan."},
			},
		},
		Handler: func(ctx context.Context, args Args) (string, error) {
			return complete(ctx, deps, prompts.PlannerSystem(args.Int("max_steps")), args.String("goal"))
		},
	}
}

func summarizeTool(deps Deps, opts Options) *Tool {
	return &Tool{
		Descriptor: Descriptor{
			Name:        SummarizeText,
			Description: "Summarize the provided text into a concise form.",
			SideEffect:  Safe,
			Fields: []Field{
				{Name: "text", Type: String, Required: true, Description: "Text to summarize."},
				{Name: "max_words", Type: Integer, Min: 1, Max: 5000, Default: opts.SummarizeMaxWords, Description: "Rough max words for summary."},
			},
		},
		Handler: func(ctx context.Context, args Args) (string, error) {
			return complete(ctx, deps, prompts.SummarizerSystem, prompts.SummarizerUser(args.String("text"), args.Int("max_words")))
		},
	}
}
