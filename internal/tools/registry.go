// Package tools defines the closed set of tools the supervisor can call,
// their input schemas, and the per-run registry that validates and
// executes calls.
package tools

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/heliohq/helio/internal/fetch"
	"github.com/heliohq/helio/internal/llm"
	"github.com/heliohq/helio/internal/retrieval"
)

// Handler executes one validated call.
type Handler func(ctx context.Context, args Args) (string, error)

// Tool is a descriptor bound to its handler.
type Tool struct {
	Descriptor
	Handler Handler
	Timeout time.Duration // zero uses the registry default
}

// Fetcher retrieves external content for web_fetch.
type Fetcher interface {
	Fetch(ctx context.Context, url string, maxChars int) (*fetch.Result, error)
}

// NoteWriter stores notes for write_note.
type NoteWriter interface {
	Write(title, content string) (string, error)
}

// Searcher answers rag_search queries against the run's index.
type Searcher interface {
	Query(ctx context.Context, text string, topK int) (retrieval.Result, error)
	Sources() []string // documents the run's scope resolved to
}

// Deps are the collaborators tool handlers call.
type Deps struct {
	LLM   llm.Client // plan_tasks, summarize_text
	Model string

	Fetcher Fetcher
	Code    CodeRunner
	Notes   NoteWriter
	Search  Searcher // nil when the run has no retrieval scope
}

// Options shape one run's registry.
type Options struct {
	DocumentsOnly bool // removes web_fetch

	PlanMaxSteps      int
	SummarizeMaxWords int
	WebFetchMaxChars  int
	TopK              int

	Timeout         time.Duration // default per call
	WebFetchTimeout time.Duration
	CodeExecTimeout time.Duration

	Logger *slog.Logger
}

// Registry holds the tools available to one run.
type Registry struct {
	tools   map[string]*Tool
	timeout time.Duration
	logger  *slog.Logger
}

// NewRegistry builds the registry for one run.
func NewRegistry(deps Deps, opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.PlanMaxSteps <= 0 {
		opts.PlanMaxSteps = 10
	}
	if opts.SummarizeMaxWords <= 0 {
		opts.SummarizeMaxWords = 2000
	}
	if opts.WebFetchMaxChars <= 0 {
		opts.WebFetchMaxChars = 8000
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}

	r := &Registry{
		tools:   make(map[string]*Tool),
		timeout: opts.Timeout,
		logger:  opts.Logger.With("component", "tools"),
	}

	r.Register(planTool(deps, opts))
	if !opts.DocumentsOnly {
		r.Register(webFetchTool(deps, opts))
	}
	r.Register(codeExecTool(deps, opts))
	r.Register(writeNoteTool(deps))
	r.Register(summarizeTool(deps, opts))
	r.Register(ragSearchTool(deps, opts))
	return r
}

// Register adds or replaces a tool.
func (r *Registry) Register(t *Tool) {
	r.tools[t.Name] = t
}

// Get returns a tool by name, or nil.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Names returns the available tool names in display order.
func (r *Registry) Names() []string {
	var names []string
	for _, k := range Kinds {
		if _, ok := r.tools[k]; ok {
			names = append(names, k)
		}
	}
	var extra []string
	for name := range r.tools {
		if !slices.Contains(Kinds, name) {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	return append(names, extra...)
}

// Risky returns the names of available tools that need confirmation.
func (r *Registry) Risky() []string {
	var names []string
	for _, name := range r.Names() {
		if r.tools[name].SideEffect == RequiresApproval {
			names = append(names, name)
		}
	}
	return names
}

// Definitions returns provider tool definitions sorted by name.
func (r *Registry) Definitions() []map[string]any {
	tools := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	slices.SortFunc(tools, func(a, b *Tool) int { return cmp.Compare(a.Name, b.Name) })

	defs := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, t.Definition())
	}
	return defs
}

// Validate checks a call's arguments against the tool's schema and
// returns typed arguments with defaults filled. Unknown tools yield a
// *ValidationError wrapping *ErrToolUnavailable.
func (r *Registry) Validate(name string, raw map[string]any) (*Tool, Args, error) {
	t := r.Get(name)
	if t == nil {
		return nil, nil, &ValidationError{Tool: name, Err: &ErrToolUnavailable{ToolName: name}}
	}
	args, err := t.validate(raw)
	if err != nil {
		return nil, nil, err
	}
	return t, args, nil
}

// Execute runs a validated call under the tool's timeout. Handler
// failures are returned as *ExecutionError.
func (r *Registry) Execute(ctx context.Context, name string, args Args) (string, error) {
	t := r.Get(name)
	if t == nil {
		return "", &ValidationError{Tool: name, Err: &ErrToolUnavailable{ToolName: name}}
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := t.Handler(ctx, args)
	elapsed := time.Since(start)

	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
		r.logger.Warn("tool failed",
			"tool", name,
			"elapsed", elapsed.Round(time.Millisecond),
			"timeout", timedOut,
			"error", err,
		)
		return "", &ExecutionError{Tool: name, Err: err, Timeout: timedOut, After: timeout}
	}

	r.logger.Debug("tool executed",
		"tool", name,
		"elapsed", elapsed.Round(time.Millisecond),
		"result_len", len(out),
	)
	return out, nil
}

func unconfigured(what string) error {
	return fmt.Errorf("%s is not configured", what)
}
