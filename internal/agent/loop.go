// Package agent implements the supervisor's orchestration loop: one run
// takes a user turn, lets the model call tools under a step budget, holds
// side-effecting calls for approval, and ends with a final answer, a
// pending action, or an abort.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/heliohq/helio/internal/approvals"
	"github.com/heliohq/helio/internal/chunker"
	"github.com/heliohq/helio/internal/conversation"
	"github.com/heliohq/helio/internal/docs"
	"github.com/heliohq/helio/internal/embeddings"
	"github.com/heliohq/helio/internal/llm"
	"github.com/heliohq/helio/internal/memory"
	"github.com/heliohq/helio/internal/prompts"
	"github.com/heliohq/helio/internal/retrieval"
	"github.com/heliohq/helio/internal/tools"
)

// Deps are the collaborators a loop uses. Only Models is required.
type Deps struct {
	Logger   *slog.Logger
	Models   llm.Factory
	Memory   memory.Store
	Library  retrieval.DocumentSource
	Embedder embeddings.Embedder
	Notes    tools.NoteWriter
	Fetcher  tools.Fetcher
	Code     tools.CodeRunner
	Pending  approvals.Store // in-process when nil
	Usage    UsageRecorder
}

// Request is one user turn.
type Request struct {
	ConversationID string
	Input          string
	History        []memory.Message // in-memory turns held by the caller
	Run            RunConfig

	Provider    string           // empty uses the configured provider
	Model       string           // empty uses the provider's default model
	Credentials *llm.Credentials // replaces the configured keys for this run only

	Decision *Decision // answer to the conversation's pending action
}

// Result is the outcome of one run.
type Result struct {
	RunID     string
	State     State
	Output    string
	ToolsUsed []string // executed tools, unique, in first-use order
	Steps     int
	Pending   *PendingAction
	Messages  []llm.Message // turn context as the model saw it, without the system prompt
	Critique  string
	Err       error

	InputTokens  int // summed over every model call of the run
	OutputTokens int
}

// Loop runs user turns. A Loop is safe for concurrent use; runs share
// nothing mutable except the pending-action store.
type Loop struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewLoop creates a loop.
func NewLoop(deps Deps, cfg Config) *Loop {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Pending == nil {
		deps.Pending = approvals.NewMemoryStore()
	}
	return &Loop{
		deps:   deps,
		cfg:    cfg,
		logger: deps.Logger.With("component", "agent"),
		now:    time.Now,
	}
}

// Pending returns the loop's pending-action store.
func (l *Loop) Pending() approvals.Store { return l.deps.Pending }

// run is the state of one Run call.
type run struct {
	loop     *Loop
	req      *Request
	convID   string
	provider string
	model    string
	logger   *slog.Logger

	client   *meteredClient
	registry *tools.Registry
	messages []llm.Message
	result   *Result
}

// Run processes one user turn. A *ConfigurationError is returned with a
// nil Result before any work is done. Every other outcome returns a
// Result; for aborted runs the returned error is Result.Err.
func (l *Loop) Run(ctx context.Context, req *Request) (*Result, error) {
	if err := req.Run.Validate(); err != nil {
		return nil, err
	}
	if l.deps.Models == nil {
		return nil, &ConfigurationError{Field: "provider", Reason: "no model factory configured"}
	}

	r := &run{
		loop:     l,
		req:      req,
		convID:   req.ConversationID,
		provider: req.Provider,
		result:   &Result{RunID: uuid.NewString(), State: AwaitingModel},
	}
	if r.convID == "" {
		r.convID = "default"
	}
	if r.provider == "" {
		r.provider = l.cfg.Provider
	}
	r.model = l.cfg.modelFor(r.provider, req.Model)
	r.logger = l.logger.With("run", r.result.RunID, "conversation", r.convID)

	creds := l.cfg.Credentials
	if req.Credentials != nil {
		creds = *req.Credentials
	}
	client, err := l.deps.Models.New(r.provider, creds)
	if err != nil {
		return nil, &ConfigurationError{Field: "provider", Reason: err.Error(), Err: err}
	}
	r.client = &meteredClient{Client: client, r: r}

	scoped := len(req.Run.Scope) > 0
	var search tools.Searcher
	if scoped {
		idx, err := l.buildIndex(ctx, req.Run.Scope, r.logger)
		if err != nil {
			var cfgErr *ConfigurationError
			if errors.As(err, &cfgErr) {
				return nil, err
			}
			if ctx.Err() != nil {
				return r.abort(ctx, ctx.Err())
			}
			r.logger.Warn("retrieval scope unavailable, continuing without documents", "error", err)
		} else {
			defer idx.Close()
			search = idx
		}
	}

	r.registry = tools.NewRegistry(tools.Deps{
		LLM:     r.client,
		Model:   r.model,
		Fetcher: l.deps.Fetcher,
		Code:    l.deps.Code,
		Notes:   l.deps.Notes,
		Search:  search,
	}, tools.Options{
		DocumentsOnly:     req.Run.DocumentsOnly,
		PlanMaxSteps:      l.cfg.PlanMaxSteps,
		SummarizeMaxWords: l.cfg.SummarizeMaxWords,
		WebFetchMaxChars:  l.cfg.WebFetchMaxChars,
		TopK:              req.Run.TopK,
		Timeout:           req.Run.ToolTimeout,
		WebFetchTimeout:   req.Run.WebFetchTimeout,
		CodeExecTimeout:   req.Run.CodeExecTimeout,
		Logger:            l.deps.Logger,
	})

	system := llm.Message{Role: "system", Content: prompts.Supervisor(prompts.SupervisorOptions{
		ApprovalRequired: req.Run.ApprovalRequired,
		Scoped:           scoped,
		DocumentsOnly:    req.Run.DocumentsOnly,
		Tools:            r.registry.Names(),
		Risky:            r.registry.Risky(),
	})}

	merger := conversation.Merger{RecentTurns: l.cfg.RecentTurns, Logger: r.logger}
	if l.deps.Memory != nil {
		merger.Store = l.deps.Memory
	}
	turn := merger.Build(ctx, req.History, req.Input, l.now())
	r.messages = toModelMessages(turn, scoped)

	r.logger.Info("run started",
		"provider", r.provider,
		"model", r.model,
		"context_messages", len(r.messages),
		"scoped", scoped,
		"documents_only", req.Run.DocumentsOnly,
		"step_budget", req.Run.StepBudget,
	)

	r.resolvePending(ctx)
	if ctx.Err() != nil {
		return r.abort(ctx, ctx.Err())
	}

	for {
		r.result.State = AwaitingModel
		resp, err := r.client.Chat(ctx, r.model, append([]llm.Message{system}, r.messages...), r.registry.Definitions())
		if err != nil {
			if ctx.Err() != nil {
				return r.abort(ctx, ctx.Err())
			}
			r.logger.Warn("model call failed", "error", err, "retryable", llm.IsRetryable(err))
			return r.abort(ctx, &ProviderError{Provider: r.provider, Model: r.model, Err: err})
		}

		calls := resp.Message.ToolCalls
		if len(calls) == 0 {
			r.result.Output = resp.Message.Content
			r.messages = append(r.messages, llm.Message{Role: "assistant", Content: resp.Message.Content})
			return r.finish(ctx)
		}

		r.result.Steps++
		if r.result.Steps >= req.Run.StepBudget {
			return r.abort(ctx, &BudgetExhaustedError{Budget: req.Run.StepBudget})
		}

		for i := range calls {
			if calls[i].ID == "" {
				calls[i].ID = "call_" + uuid.NewString()
			}
		}
		r.messages = append(r.messages, llm.Message{Role: "assistant", Content: resp.Message.Content, ToolCalls: calls})

		r.result.State = DispatchingTool
		for i, call := range calls {
			held, err := r.dispatch(ctx, call)
			if err != nil {
				return r.abort(ctx, err)
			}
			if held {
				if dropped := len(calls) - i - 1; dropped > 0 {
					r.logger.Info("remaining tool calls dropped pending approval", "dropped", dropped)
				}
				return r.suspend(ctx)
			}
			if ctx.Err() != nil {
				return r.abort(ctx, ctx.Err())
			}
		}
	}
}

func (l *Loop) buildIndex(ctx context.Context, scope []string, logger *slog.Logger) (*retrieval.Index, error) {
	if l.deps.Library == nil {
		return nil, &ConfigurationError{Field: "scope", Reason: "no document library configured"}
	}
	idx, err := retrieval.Build(ctx, retrieval.BuildInput{
		Library:        l.deps.Library,
		Scope:          scope,
		Chunking:       l.cfg.Chunking,
		Embedder:       l.deps.Embedder,
		FirstNFallback: l.cfg.FirstNFallback,
		Logger:         logger,
	})
	var chunkErr *chunker.ConfigurationError
	switch {
	case errors.As(err, &chunkErr):
		return nil, &ConfigurationError{Field: "chunking", Reason: chunkErr.Error(), Err: err}
	case errors.Is(err, docs.ErrOutsideRoot):
		return nil, &ConfigurationError{Field: "scope", Reason: err.Error(), Err: err}
	}
	return idx, err
}

// dispatch handles one tool call. It reports true when the call was
// held for approval and the run must suspend.
func (r *run) dispatch(ctx context.Context, call llm.ToolCall) (bool, error) {
	name := call.Function.Name
	tool, args, err := r.registry.Validate(name, call.Function.Arguments)
	if err != nil {
		r.logger.Warn("tool call rejected", "tool", name, "error", err)
		r.toolMessage(call, "Error: "+err.Error())
		return false, nil
	}

	if tool.SideEffect == tools.RequiresApproval && r.req.Run.ApprovalRequired {
		return true, r.hold(ctx, call)
	}

	r.execute(ctx, call, args)
	return false, nil
}

// execute runs a validated call. The caller's cancellation does not cut
// the call short; the tool's own timeout bounds it.
func (r *run) execute(ctx context.Context, call llm.ToolCall, args tools.Args) {
	name := call.Function.Name
	r.logger.Info("executing tool", "tool", name, "call_id", call.ID)

	out, err := r.registry.Execute(context.WithoutCancel(ctx), name, args)
	if !slices.Contains(r.result.ToolsUsed, name) {
		r.result.ToolsUsed = append(r.result.ToolsUsed, name)
	}
	if err != nil {
		r.toolMessage(call, "Error: "+err.Error())
		return
	}
	r.toolMessage(call, out)
}

func (r *run) toolMessage(call llm.ToolCall, content string) {
	r.messages = append(r.messages, llm.Message{
		Role:       "tool",
		Content:    content,
		ToolCallID: call.ID,
		Name:       call.Function.Name,
	})
}

// hold registers call as the conversation's pending action and asks the
// user to confirm it.
func (r *run) hold(ctx context.Context, call llm.ToolCall) error {
	action := &PendingAction{
		Token:          uuid.NewString(),
		ConversationID: r.convID,
		Call:           call,
		CreatedAt:      r.loop.now(),
	}
	if err := r.loop.deps.Pending.Put(context.WithoutCancel(ctx), action); err != nil {
		return fmt.Errorf("hold %s for approval: %w", call.Function.Name, err)
	}

	args, err := json.Marshal(call.Function.Arguments)
	if err != nil || call.Function.Arguments == nil {
		args = []byte("{}")
	}
	text := fmt.Sprintf("I want to run %s with arguments %s.\nDo you approve running this action? Approve or deny with token %s.",
		call.Function.Name, args, action.Token)

	r.messages = append(r.messages, llm.Message{Role: "assistant", Content: text})
	r.result.Output = text
	r.result.Pending = action

	r.logger.Info("tool call held for approval", "tool", call.Function.Name, "token", action.Token)
	return nil
}

// resolvePending consumes the conversation's pending action. A matching
// approval runs it, a matching denial records the refusal, and anything
// else abandons it.
func (r *run) resolvePending(ctx context.Context) {
	action, err := r.loop.deps.Pending.Take(ctx, r.convID)
	if err != nil {
		r.logger.Warn("failed to load pending action", "error", err)
		return
	}
	if action == nil {
		return
	}
	d := r.req.Decision
	if d == nil || d.Token != action.Token {
		r.logger.Info("pending action abandoned", "tool", action.Call.Function.Name, "token", action.Token)
		return
	}

	call := action.Call
	r.messages = append(r.messages, llm.Message{Role: "assistant", ToolCalls: []llm.ToolCall{call}})

	if !d.Approve {
		r.logger.Info("pending action denied", "tool", call.Function.Name)
		r.toolMessage(call, fmt.Sprintf("Action denied by user: %s was not run. Do not retry it.", call.Function.Name))
		return
	}

	r.logger.Info("pending action approved", "tool", call.Function.Name)
	r.result.Steps++
	_, args, err := r.registry.Validate(call.Function.Name, call.Function.Arguments)
	if err != nil {
		r.toolMessage(call, "Error: "+err.Error())
		return
	}
	r.execute(ctx, call, args)
}

func (r *run) finish(ctx context.Context) (*Result, error) {
	r.result.State = Done
	if r.req.Run.Critique {
		r.result.Critique = r.critique(ctx)
	}
	r.settle()

	r.persist(ctx, r.result.Output)
	if r.result.Critique != "" {
		r.append(ctx, "assistant", "[SELF_CRITIQUE]\n"+r.result.Critique)
	}

	r.logger.Info("run completed",
		"steps", r.result.Steps,
		"tools_used", r.result.ToolsUsed,
		"output_len", len(r.result.Output),
	)
	return r.result, nil
}

func (r *run) suspend(ctx context.Context) (*Result, error) {
	r.result.State = AwaitingApproval
	r.settle()
	r.persist(ctx, r.result.Output)
	return r.result, nil
}

func (r *run) abort(ctx context.Context, err error) (*Result, error) {
	r.result.State = Aborted
	r.result.Err = err
	r.result.Output = "Run aborted: " + err.Error()
	r.settle()

	r.logger.Warn("run aborted",
		"steps", r.result.Steps,
		"tools_used", r.result.ToolsUsed,
		"error", err,
	)
	r.persist(ctx, r.result.Output)
	return r.result, err
}

// settle copies the turn context and token totals into the result.
func (r *run) settle() {
	r.result.Messages = r.messages
	if r.client != nil {
		r.result.InputTokens, r.result.OutputTokens = r.client.totals()
	}
}

// persist records the user's input and the run's reply in durable memory.
func (r *run) persist(ctx context.Context, reply string) {
	r.append(ctx, "user", r.req.Input)
	r.append(ctx, "assistant", reply)
}

func (r *run) append(ctx context.Context, role, content string) {
	store := r.loop.deps.Memory
	if store == nil {
		return
	}
	msg := memory.Message{Role: role, Content: content, Timestamp: r.loop.now()}
	if err := store.Append(context.WithoutCancel(ctx), msg); err != nil {
		r.logger.Warn("failed to persist message", "role", role, "error", err)
	}
}

// toModelMessages converts a turn context for the model. When scoped,
// the final user message carries the retrieval hint.
func toModelMessages(turn []memory.Message, scoped bool) []llm.Message {
	out := make([]llm.Message, 0, len(turn))
	for i, m := range turn {
		role := m.Role
		if role != "user" {
			role = "assistant"
		}
		content := m.Content
		if scoped && i == len(turn)-1 {
			content = prompts.RAGHint + content
		}
		out = append(out, llm.Message{Role: role, Content: content})
	}
	return out
}
