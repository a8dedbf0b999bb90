package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/heliohq/helio/internal/agent"
	"github.com/heliohq/helio/internal/approvals"
	"github.com/heliohq/helio/internal/config"
	"github.com/heliohq/helio/internal/docs"
	"github.com/heliohq/helio/internal/embeddings"
	"github.com/heliohq/helio/internal/fetch"
	"github.com/heliohq/helio/internal/llm"
	"github.com/heliohq/helio/internal/memory"
	"github.com/heliohq/helio/internal/notes"
	"github.com/heliohq/helio/internal/tools"
	"github.com/heliohq/helio/internal/usage"
)

// app is the wired process: one loop plus the handles that need closing.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	loop    *agent.Loop
	library *docs.Library
	memory  memory.Store // nil with the "none" backend
	usage   *usage.Store
	pending *approvals.SQLiteStore
}

// loadConfig finds and loads the config file. With no explicit path and
// nothing on the search path, the built-in defaults are used.
func loadConfig(configPath string) (*config.Config, error) {
	path, err := config.FindConfig(configPath)
	if err != nil {
		if configPath != "" {
			return nil, err
		}
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// newLogger builds the process logger from the config's level and format.
func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return config.NewLogger(w, level, cfg.LogFormat), nil
}

// newApp wires every collaborator the loop needs from cfg.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	store, err := memory.Open(cfg.Memory.Backend, cfg.Memory.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("open memory: %w", err)
	}

	closeStore := func() {
		if store != nil {
			store.Close()
		}
	}

	embedder, err := embeddings.New(embeddings.Config{
		Provider: cfg.RAG.Embeddings.Provider,
		BaseURL:  cfg.RAG.Embeddings.BaseURL,
		Model:    cfg.RAG.Embeddings.Model,
		APIKey:   cfg.Providers.OpenAI.APIKey,
	})
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("embeddings: %w", err)
	}

	usageStore, err := openUsage(cfg)
	if err != nil {
		closeStore()
		return nil, err
	}

	// Pending actions live on disk so a later ask or chat process can
	// answer them.
	pending, err := approvals.NewSQLiteStore(filepath.Join(cfg.Memory.Dir, "pending.db"))
	if err != nil {
		closeStore()
		usageStore.Close()
		return nil, fmt.Errorf("open pending actions: %w", err)
	}

	library := docs.NewLibrary(cfg.RAG.DocsDir, cfg.RAG.AllowedExtensions, logger)

	deps := agent.Deps{
		Logger: logger,
		Models: &llm.ProviderFactory{
			OllamaURL:         cfg.LLM.OllamaURL,
			OpenAIBaseURL:     cfg.Providers.OpenAI.BaseURL,
			AnthropicBaseURL:  cfg.Providers.Anthropic.BaseURL,
			GoogleBaseURL:     cfg.Providers.Google.BaseURL,
			PerplexityBaseURL: cfg.Providers.Perplexity.BaseURL,
			Options: llm.Options{
				Temperature: cfg.LLM.Temperature,
				MaxTokens:   cfg.LLM.MaxTokens,
				NumCtx:      cfg.LLM.NumCtx,
			},
			Logger: logger,
			Models: modelRoutes(cfg),
		},
		Memory:  store,
		Library: library,
		Notes:   notes.NewWriter(cfg.NotesDir),
		Fetcher: fetch.New(fetch.Options{
			Timeout:  cfg.WebFetchTimeout(),
			MaxChars: cfg.Tools.WebFetchMaxChars,
			Logger:   logger,
		}),
		Code:     &tools.PythonRunner{Python: cfg.Tools.Python},
		Embedder: embedder, // nil keeps retrieval lexical
		Usage:    usageStore,
		Pending:  pending,
	}

	logger.Debug("helio wired",
		"provider", cfg.LLM.Provider,
		"memory_backend", cfg.Memory.Backend,
		"docs_dir", cfg.RAG.DocsDir,
		"embeddings", cfg.RAG.Embeddings.Provider,
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		loop:    agent.NewLoop(deps, agent.NewConfig(cfg)),
		library: library,
		memory:  store,
		usage:   usageStore,
		pending: pending,
	}, nil
}

// modelRoutes maps each provider's default model back to the provider,
// so asking for "sonar" reaches perplexity whatever the run's provider.
func modelRoutes(cfg *config.Config) map[string]string {
	routes := make(map[string]string, len(llm.Providers))
	for _, p := range llm.Providers {
		m := cfg.DefaultModel(p)
		if _, taken := routes[m]; m != "" && !taken {
			routes[m] = p
		}
	}
	return routes
}

// setup is the shared prologue of the commands that run the agent.
func setup(configPath string, stderr io.Writer) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(stderr, cfg)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, logger)
}

// openUsage opens the token usage database next to the conversation log.
func openUsage(cfg *config.Config) (*usage.Store, error) {
	s, err := usage.NewStore(filepath.Join(cfg.Memory.Dir, "usage.db"))
	if err != nil {
		return nil, fmt.Errorf("open usage: %w", err)
	}
	return s, nil
}

func (a *app) Close() error {
	var errs []error
	if a.memory != nil {
		errs = append(errs, a.memory.Close())
	}
	errs = append(errs, a.usage.Close(), a.pending.Close())
	return errors.Join(errs...)
}

// printResult renders a run outcome for a terminal. answer tells the
// user how to approve or deny a pending action.
func printResult(w io.Writer, res *agent.Result, answer func(token string) string) {
	fmt.Fprintln(w, res.Output)
	if res.Critique != "" {
		fmt.Fprintf(w, "\n--- Self-critique ---\n%s\n", res.Critique)
	}
	if len(res.ToolsUsed) > 0 {
		fmt.Fprintf(w, "\n[tools used: %s]\n", strings.Join(res.ToolsUsed, ", "))
	}
	if res.Pending != nil {
		fmt.Fprintf(w, "\n[pending: %s]\n", answer(res.Pending.Token))
	}
}
