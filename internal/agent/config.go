package agent

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/heliohq/helio/internal/chunker"
	"github.com/heliohq/helio/internal/config"
	"github.com/heliohq/helio/internal/llm"
)

// RunConfig is fixed for the duration of one run.
type RunConfig struct {
	// StepBudget is the number of model responses with tool calls the
	// run may produce. Reaching it aborts the run.
	StepBudget       int
	ApprovalRequired bool
	Scope            []string // document paths or folders; empty disables retrieval
	DocumentsOnly    bool     // removes web_fetch from the registry
	Critique         bool
	ToolTimeout      time.Duration
	TopK             int

	// Per-tool timeouts. Zero uses ToolTimeout.
	WebFetchTimeout time.Duration
	CodeExecTimeout time.Duration
}

// Validate reports the first problem that prevents the run from starting.
func (c RunConfig) Validate() error {
	if c.StepBudget < 1 {
		return &ConfigurationError{Field: "step_budget", Reason: fmt.Sprintf("must be at least 1, got %d", c.StepBudget)}
	}
	if c.ToolTimeout <= 0 {
		return &ConfigurationError{Field: "tool_timeout", Reason: fmt.Sprintf("must be positive, got %s", c.ToolTimeout)}
	}
	for field, d := range map[string]time.Duration{"web_fetch_timeout": c.WebFetchTimeout, "code_exec_timeout": c.CodeExecTimeout} {
		if d < 0 {
			return &ConfigurationError{Field: field, Reason: fmt.Sprintf("must not be negative, got %s", d)}
		}
	}
	if c.TopK < 1 {
		return &ConfigurationError{Field: "top_k", Reason: fmt.Sprintf("must be at least 1, got %d", c.TopK)}
	}
	for _, p := range c.Scope {
		p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
		if path.IsAbs(p) {
			return &ConfigurationError{Field: "scope", Reason: fmt.Sprintf("%q must be relative to the documents folder", p)}
		}
	}
	return nil
}

// Config holds the process-wide defaults a loop applies to every run.
type Config struct {
	Provider    string
	Model       string
	Models      map[string]string // default model per provider
	Credentials llm.Credentials

	RecentTurns    int
	Chunking       chunker.Options
	FirstNFallback bool

	PlanMaxSteps      int
	SummarizeMaxWords int
	CritiqueMaxWords  int
	WebFetchMaxChars  int
}

// NewConfig derives loop defaults from the application config.
func NewConfig(cfg *config.Config) Config {
	models := make(map[string]string, len(llm.Providers))
	for _, p := range llm.Providers {
		models[p] = cfg.DefaultModel(p)
	}
	return Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.DefaultModel(""),
		Models:   models,
		Credentials: llm.Credentials{
			OpenAI:     cfg.Providers.OpenAI.APIKey,
			Anthropic:  cfg.Providers.Anthropic.APIKey,
			Google:     cfg.Providers.Google.APIKey,
			Perplexity: cfg.Providers.Perplexity.APIKey,
		},
		RecentTurns:       cfg.Agent.MemoryRecentTurns,
		Chunking:          chunker.Options{Size: cfg.RAG.ChunkSize, Overlap: cfg.RAG.ChunkOverlap},
		FirstNFallback:    cfg.RAG.FallbackEnabled(),
		PlanMaxSteps:      cfg.Tools.PlanMaxSteps,
		SummarizeMaxWords: cfg.Tools.SummarizeMaxWords,
		CritiqueMaxWords:  cfg.Tools.SummarizeCritiqueMaxWords,
		WebFetchMaxChars:  cfg.Tools.WebFetchMaxChars,
	}
}

// DefaultRunConfig returns the run configuration the application config
// implies when the caller sets nothing.
func DefaultRunConfig(cfg *config.Config) RunConfig {
	return RunConfig{
		StepBudget:       cfg.Agent.RecursionLimit,
		ApprovalRequired: cfg.Agent.ApprovalRequired(),
		ToolTimeout:      cfg.ToolTimeout(),
		TopK:             cfg.RAG.TopK,
		WebFetchTimeout:  cfg.WebFetchTimeout(),
		CodeExecTimeout:  cfg.CodeExecTimeout(),
	}
}

// modelFor resolves the model for a run.
func (c Config) modelFor(provider, requested string) string {
	switch {
	case requested != "":
		return requested
	case provider == c.Provider && c.Model != "":
		return c.Model
	default:
		return c.Models[provider]
	}
}
