package tools

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/heliohq/helio/internal/fetch"
	"github.com/heliohq/helio/internal/llm"
	"github.com/heliohq/helio/internal/retrieval"
)

type echoLLM struct {
	got []llm.Message
}

func (e *echoLLM) Chat(_ context.Context, _ string, messages []llm.Message, _ []map[string]any) (*llm.ChatResponse, error) {
	e.got = messages
	return &llm.ChatResponse{Message: llm.Message{Role: "assistant", Content: "  reply  "}}, nil
}

type fakeFetcher struct{ maxChars int }

func (f *fakeFetcher) Fetch(_ context.Context, url string, maxChars int) (*fetch.Result, error) {
	f.maxChars = maxChars
	return &fetch.Result{URL: url, Content: "page text"}, nil
}

type fakeNotes struct{ title, content string }

func (n *fakeNotes) Write(title, content string) (string, error) {
	n.title, n.content = title, content
	return "/notes/" + title + ".md", nil
}

type fakeRunner struct {
	res *ExecResult
	err error
}

func (f *fakeRunner) Run(context.Context, string) (*ExecResult, error) { return f.res, f.err }

type fakeSearch struct {
	res     retrieval.Result
	err     error
	k       int
	sources []string
}

func (f *fakeSearch) Sources() []string { return f.sources }

func (f *fakeSearch) Query(_ context.Context, _ string, topK int) (retrieval.Result, error) {
	f.k = topK
	return f.res, f.err
}

func TestNewRegistry_DocumentsOnly(t *testing.T) {
	full := NewRegistry(Deps{}, Options{})
	if want := Kinds; !slices.Equal(full.Names(), want) {
		t.Errorf("Names() = %v, want %v", full.Names(), want)
	}

	docsOnly := NewRegistry(Deps{}, Options{DocumentsOnly: true})
	if docsOnly.Get(WebFetch) != nil {
		t.Error("documents-only registry must not contain web_fetch")
	}
	for _, def := range docsOnly.Definitions() {
		if name, _, _, _ := llm.ToolFunction(def); name == WebFetch {
			t.Error("web_fetch present in definitions")
		}
	}
	_, _, err := docsOnly.Validate(WebFetch, map[string]any{"url": "https://example.com"})
	var ve *ValidationError
	var unavailable *ErrToolUnavailable
	if !errors.As(err, &ve) || !errors.As(err, &unavailable) {
		t.Fatalf("Validate(web_fetch) error = %v, want ValidationError wrapping ErrToolUnavailable", err)
	}
}

func TestRegistry_SideEffects(t *testing.T) {
	r := NewRegistry(Deps{}, Options{})
	want := []string{WebFetch, CodeExec, WriteNote}
	if got := r.Risky(); !slices.Equal(got, want) {
		t.Errorf("Risky() = %v, want %v", got, want)
	}
	for _, name := range []string{PlanTasks, SummarizeText, RAGSearch} {
		if r.Get(name).SideEffect != Safe {
			t.Errorf("%s should be safe", name)
		}
	}
}

func TestRegistry_DefinitionsSorted(t *testing.T) {
	defs := NewRegistry(Deps{}, Options{}).Definitions()
	var names []string
	for _, d := range defs {
		name, _, params, ok := llm.ToolFunction(d)
		if !ok {
			t.Fatalf("malformed definition %v", d)
		}
		if params["type"] != "object" {
			t.Errorf("%s schema type = %v", name, params["type"])
		}
		names = append(names, name)
	}
	if !slices.IsSorted(names) {
		t.Errorf("definitions not sorted: %v", names)
	}
}

func TestRegistry_Validate(t *testing.T) {
	r := NewRegistry(Deps{}, Options{PlanMaxSteps: 8, SummarizeMaxWords: 300, WebFetchMaxChars: 1000})

	tests := []struct {
		name      string
		tool      string
		args      map[string]any
		wantErr   string // substring; empty means valid
		wantField string
		wantValue any
	}{
		{name: "plan default steps", tool: PlanTasks, args: map[string]any{"goal": "ship"}, wantField: "max_steps", wantValue: 8},
		{name: "plan float steps", tool: PlanTasks, args: map[string]any{"goal": "ship", "max_steps": float64(3)}, wantField: "max_steps", wantValue: 3},
		{name: "plan string steps", tool: PlanTasks, args: map[string]any{"goal": "ship", "max_steps": "4"}, wantField: "max_steps", wantValue: 4},
		{name: "plan fractional steps", tool: PlanTasks, args: map[string]any{"goal": "ship", "max_steps": 2.5}, wantErr: "expected integer"},
		{name: "plan too many steps", tool: PlanTasks, args: map[string]any{"goal": "ship", "max_steps": 51}, wantErr: "at most 50"},
		{name: "plan zero steps", tool: PlanTasks, args: map[string]any{"goal": "ship", "max_steps": 0}, wantErr: "at least 1"},
		{name: "plan missing goal", tool: PlanTasks, args: map[string]any{}, wantErr: `"goal"`},
		{name: "plan blank goal", tool: PlanTasks, args: map[string]any{"goal": "  "}, wantErr: "must not be empty"},
		{name: "summarize default words", tool: SummarizeText, args: map[string]any{"text": "abc"}, wantField: "max_words", wantValue: 300},
		{name: "summarize too many words", tool: SummarizeText, args: map[string]any{"text": "abc", "max_words": 5001}, wantErr: "at most 5000"},
		{name: "note long title", tool: WriteNote, args: map[string]any{"title": strings.Repeat("t", 201), "content": "c"}, wantErr: "longer than 200"},
		{name: "note wrong type", tool: WriteNote, args: map[string]any{"title": 7, "content": "c"}, wantErr: "expected string"},
		{name: "code too long", tool: CodeExec, args: map[string]any{"code": strings.Repeat("x", 20001)}, wantErr: "longer than 20000"},
		{name: "fetch over cap", tool: WebFetch, args: map[string]any{"url": "u", "max_chars": 1001}, wantErr: "at most 1000"},
		{name: "fetch default cap", tool: WebFetch, args: map[string]any{"url": "u"}, wantField: "max_chars", wantValue: 1000},
		{name: "unknown tool", tool: "delete_everything", args: nil, wantErr: "not available"},
		{name: "unknown args dropped", tool: RAGSearch, args: map[string]any{"query": "q", "extra": true}, wantField: "extra", wantValue: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, args, err := r.Validate(tt.tool, tt.args)
			if tt.wantErr != "" {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("error = %v, want *ValidationError", err)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %q, want substring %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := args[tt.wantField]; got != tt.wantValue {
				t.Errorf("args[%q] = %#v, want %#v", tt.wantField, got, tt.wantValue)
			}
		})
	}
}

func TestRegistry_ExecuteHandlers(t *testing.T) {
	model := &echoLLM{}
	fetcher := &fakeFetcher{}
	notes := &fakeNotes{}
	r := NewRegistry(Deps{
		LLM:     model,
		Fetcher: fetcher,
		Notes:   notes,
		Code:    &fakeRunner{res: &ExecResult{Stdout: "42\n"}},
	}, Options{})

	run := func(name string, raw map[string]any) string {
		t.Helper()
		_, args, err := r.Validate(name, raw)
		if err != nil {
			t.Fatalf("Validate(%s): %v", name, err)
		}
		out, err := r.Execute(t.Context(), name, args)
		if err != nil {
			t.Fatalf("Execute(%s): %v", name, err)
		}
		return out
	}

	if got := run(PlanTasks, map[string]any{"goal": "launch"}); got != "reply" {
		t.Errorf("plan_tasks = %q", got)
	}
	if !strings.Contains(model.got[0].Content, "at most 10 steps") || model.got[1].Content != "launch" {
		t.Errorf("planner messages = %+v", model.got)
	}

	run(SummarizeText, map[string]any{"text": "long text", "max_words": 20})
	if model.got[1].Content != "Max words: 20\n\nTEXT:\nlong text" {
		t.Errorf("summarizer user message = %q", model.got[1].Content)
	}

	if got := run(WebFetch, map[string]any{"url": "example.com"}); got != "page text" {
		t.Errorf("web_fetch = %q", got)
	}
	if fetcher.maxChars != 8000 {
		t.Errorf("fetch max chars = %d, want default 8000", fetcher.maxChars)
	}

	if got := run(WriteNote, map[string]any{"title": "todo", "content": "buy milk"}); got != "Note written to /notes/todo.md" {
		t.Errorf("write_note = %q", got)
	}
	if notes.content != "buy milk" {
		t.Errorf("note content = %q", notes.content)
	}

	if got := run(CodeExec, map[string]any{"code": "print(42)"}); got != "42" {
		t.Errorf("code_exec = %q", got)
	}
}

func TestRegistry_ExecuteTimeout(t *testing.T) {
	r := NewRegistry(Deps{}, Options{Timeout: 20 * time.Millisecond})
	r.Register(&Tool{
		Descriptor: Descriptor{Name: "slow"},
		Handler: func(ctx context.Context, _ Args) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	})

	_, err := r.Execute(t.Context(), "slow", Args{})
	var ee *ExecutionError
	if !errors.As(err, &ee) {
		t.Fatalf("error = %v, want *ExecutionError", err)
	}
	if !ee.Timeout || ee.After != 20*time.Millisecond {
		t.Errorf("ExecutionError = %+v, want timeout after 20ms", ee)
	}
}

func TestRegistry_ExecuteHandlerError(t *testing.T) {
	r := NewRegistry(Deps{}, Options{})
	_, args, err := r.Validate(WriteNote, map[string]any{"title": "a", "content": "b"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.Execute(t.Context(), WriteNote, args)
	var ee *ExecutionError
	if !errors.As(err, &ee) || ee.Timeout {
		t.Fatalf("error = %v, want non-timeout *ExecutionError", err)
	}
}

func TestRAGSearch(t *testing.T) {
	chunks := []retrieval.Chunk{
		{Source: "guide.md", Title: "Guide", Ordinal: 0, Text: "alpha"},
		{Source: "notes.txt", Ordinal: 2, Text: "beta"},
	}

	tests := []struct {
		name   string
		search Searcher
		want   []string
	}{
		{name: "no scope", search: nil, want: []string{"No documents are selected"}},
		{name: "scope matched nothing", search: &fakeSearch{err: &retrieval.ScopeError{}}, want: []string{"No documents matched"}},
		{name: "no extractable text", search: &fakeSearch{err: &retrieval.ScopeError{Sources: []string{"scan.pdf"}}}, want: []string{"(scan.pdf) contain no extractable text"}},
		{name: "no relevant chunks", search: &fakeSearch{sources: []string{"a.md", "b.md"}}, want: []string{"No relevant chunks", "(a.md, b.md)"}},
		{
			name:   "ranked",
			search: &fakeSearch{res: retrieval.Result{Chunks: chunks}},
			want:   []string{"[1] source: guide.md (Guide), chunk 0\nalpha", "[2] source: notes.txt, chunk 2\nbeta"},
		},
		{
			name:   "fallback",
			search: &fakeSearch{res: retrieval.Result{Chunks: chunks[:1], Fallback: true}},
			want:   []string{"first 1 chunk(s)", "[1] source: guide.md"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(Deps{Search: tt.search}, Options{TopK: 3})
			_, args, err := r.Validate(RAGSearch, map[string]any{"query": "q"})
			if err != nil {
				t.Fatal(err)
			}
			out, err := r.Execute(t.Context(), RAGSearch, args)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			for _, s := range tt.want {
				if !strings.Contains(out, s) {
					t.Errorf("output %q missing %q", out, s)
				}
			}
			if fs, ok := tt.search.(*fakeSearch); ok && fs.k != 3 {
				t.Errorf("top_k passed = %d, want default 3", fs.k)
			}
		})
	}
}
