// Package config handles Helio configuration loading.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order used when no
// explicit -config flag is given: ./config.yaml,
// ~/.config/helio/config.yaml, /etc/helio/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "helio", "config.yaml"))
	}

	paths = append(paths, "/etc/helio/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise the first existing entry of DefaultSearchPaths is returned.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Helio configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Providers ProvidersConfig `yaml:"providers"`
	Agent     AgentConfig     `yaml:"agent"`
	Tools     ToolsConfig     `yaml:"tools"`
	RAG       RAGConfig       `yaml:"rag"`
	Memory    MemoryConfig    `yaml:"memory"`
	NotesDir  string          `yaml:"notes_dir"`
	LogLevel  string          `yaml:"log_level"`
	LogFormat string          `yaml:"log_format"` // text or json
}

// LLMConfig selects the default provider and model parameters.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // ollama, openai, anthropic, google, perplexity
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	OllamaURL   string  `yaml:"ollama_url"`
	NumCtx      int     `yaml:"num_ctx"`
}

// ProvidersConfig carries per-provider credentials and endpoints. Keys
// here are process defaults; a run may supply its own credentials, which
// then replace these for that run only.
type ProvidersConfig struct {
	OpenAI     ProviderConfig `yaml:"openai"`
	Anthropic  ProviderConfig `yaml:"anthropic"`
	Google     ProviderConfig `yaml:"google"` // Gemini through its OpenAI-compatible API
	Perplexity ProviderConfig `yaml:"perplexity"`
}

// ProviderConfig is one provider's endpoint settings.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"` // default model when this provider is selected
}

// AgentConfig controls the orchestration loop.
type AgentConfig struct {
	EnableHumanApproval *bool `yaml:"enable_human_approval"`
	// RecursionLimit is the step budget: the maximum number of model
	// responses with tool calls a single run may produce.
	RecursionLimit    int `yaml:"recursion_limit"`
	MemoryRecentTurns int `yaml:"memory_recent_turns"`
	// ToolTimeoutSec bounds any tool without a more specific timeout.
	ToolTimeoutSec int `yaml:"tool_timeout_sec"`
}

// ApprovalRequired reports whether side-effecting tools need confirmation.
// Defaults to true when unset.
func (a AgentConfig) ApprovalRequired() bool {
	return a.EnableHumanApproval == nil || *a.EnableHumanApproval
}

// ToolsConfig holds per-tool limits.
type ToolsConfig struct {
	PlanMaxSteps              int     `yaml:"plan_max_steps"`
	SummarizeMaxWords         int     `yaml:"summarize_max_words"`
	SummarizeCritiqueMaxWords int     `yaml:"summarize_critique_max_words"`
	WebFetchMaxChars          int     `yaml:"web_fetch_max_chars"`
	WebFetchTimeoutSec        float64 `yaml:"web_fetch_timeout_sec"`
	CodeExecTimeoutSec        int     `yaml:"code_exec_timeout_sec"`
	Python                    string  `yaml:"python"` // interpreter for code_exec
}

// RAGConfig configures document retrieval.
type RAGConfig struct {
	DocsDir           string           `yaml:"docs_dir"`
	ChunkSize         int              `yaml:"chunk_size"`
	ChunkOverlap      int              `yaml:"chunk_overlap"`
	TopK              int              `yaml:"top_k"`
	AllowedExtensions []string         `yaml:"allowed_extensions"`
	FirstNFallback    *bool            `yaml:"first_n_fallback"`
	Embeddings        EmbeddingsConfig `yaml:"embeddings"`
}

// FallbackEnabled reports whether an empty ranked search returns the
// leading chunks of the scope. Defaults to true when unset.
func (r RAGConfig) FallbackEnabled() bool {
	return r.FirstNFallback == nil || *r.FirstNFallback
}

// EmbeddingsConfig selects the embedding backend. An empty provider
// disables embeddings; retrieval then uses the lexical strategy.
type EmbeddingsConfig struct {
	Provider string `yaml:"provider"` // "", ollama, openai
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

// MemoryConfig selects the durable conversation store.
type MemoryConfig struct {
	Backend string `yaml:"backend"` // jsonl, sqlite, or none
	Dir     string `yaml:"dir"`
}

// Load reads configuration from a YAML file, expanding ${ENV} references,
// then applies defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values with Helio's defaults.
func (c *Config) ApplyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "ollama"
	}
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.1
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 8192
	}
	if c.LLM.OllamaURL == "" {
		c.LLM.OllamaURL = "http://localhost:11434"
	}
	if c.LLM.NumCtx == 0 {
		c.LLM.NumCtx = 4096
	}
	if c.Providers.Google.Model == "" {
		c.Providers.Google.Model = "gemini-2.0-flash"
	}
	if c.Providers.Perplexity.BaseURL == "" {
		c.Providers.Perplexity.BaseURL = "https://api.perplexity.ai"
	}
	if c.Providers.Perplexity.Model == "" {
		c.Providers.Perplexity.Model = "sonar"
	}

	if c.Agent.RecursionLimit == 0 {
		c.Agent.RecursionLimit = 50
	}
	if c.Agent.MemoryRecentTurns == 0 {
		c.Agent.MemoryRecentTurns = 6
	}
	if c.Agent.ToolTimeoutSec == 0 {
		c.Agent.ToolTimeoutSec = 60
	}

	if c.Tools.PlanMaxSteps == 0 {
		c.Tools.PlanMaxSteps = 10
	}
	if c.Tools.SummarizeMaxWords == 0 {
		c.Tools.SummarizeMaxWords = 2000
	}
	if c.Tools.SummarizeCritiqueMaxWords == 0 {
		c.Tools.SummarizeCritiqueMaxWords = 2000
	}
	if c.Tools.WebFetchMaxChars == 0 {
		c.Tools.WebFetchMaxChars = 8000
	}
	if c.Tools.WebFetchTimeoutSec == 0 {
		c.Tools.WebFetchTimeoutSec = 10
	}
	if c.Tools.CodeExecTimeoutSec == 0 {
		c.Tools.CodeExecTimeoutSec = 10
	}
	if c.Tools.Python == "" {
		c.Tools.Python = "python3"
	}

	if c.Memory.Dir == "" {
		c.Memory.Dir = "memory"
	}
	if c.Memory.Backend == "" {
		c.Memory.Backend = "jsonl"
	}
	if c.NotesDir == "" {
		c.NotesDir = c.Memory.Dir
	}

	if c.RAG.DocsDir == "" {
		c.RAG.DocsDir = filepath.Join(c.Memory.Dir, "docs")
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = 1000
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = 200
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = 5
	}
	if len(c.RAG.AllowedExtensions) == 0 {
		c.RAG.AllowedExtensions = []string{".md", ".txt", ".pdf"}
	}
	if c.RAG.Embeddings.Provider == "ollama" && c.RAG.Embeddings.BaseURL == "" {
		c.RAG.Embeddings.BaseURL = c.LLM.OllamaURL
	}
}

// Validate reports configuration errors that must stop startup.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case "ollama", "openai", "anthropic", "google", "perplexity":
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unsupported provider %q", c.LLM.Provider))
	}
	if c.Agent.RecursionLimit < 1 {
		errs = append(errs, fmt.Errorf("agent.recursion_limit must be at least 1, got %d", c.Agent.RecursionLimit))
	}
	if c.Agent.MemoryRecentTurns < 0 {
		errs = append(errs, fmt.Errorf("agent.memory_recent_turns must not be negative"))
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		errs = append(errs, fmt.Errorf("rag.chunk_overlap (%d) must be >= 0 and less than rag.chunk_size (%d)",
			c.RAG.ChunkOverlap, c.RAG.ChunkSize))
	}
	if c.RAG.TopK < 1 {
		errs = append(errs, fmt.Errorf("rag.top_k must be at least 1, got %d", c.RAG.TopK))
	}
	switch c.RAG.Embeddings.Provider {
	case "", "ollama", "openai":
	default:
		errs = append(errs, fmt.Errorf("rag.embeddings.provider: unsupported provider %q", c.RAG.Embeddings.Provider))
	}
	switch c.Memory.Backend {
	case "jsonl", "sqlite", "none":
	default:
		errs = append(errs, fmt.Errorf("memory.backend: unsupported backend %q", c.Memory.Backend))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format: expected text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// ToolTimeout returns the generic tool timeout.
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.Agent.ToolTimeoutSec) * time.Second
}

// WebFetchTimeout returns the web_fetch timeout.
func (c *Config) WebFetchTimeout() time.Duration {
	return time.Duration(c.Tools.WebFetchTimeoutSec * float64(time.Second))
}

// CodeExecTimeout returns the code_exec timeout.
func (c *Config) CodeExecTimeout() time.Duration {
	return time.Duration(c.Tools.CodeExecTimeoutSec) * time.Second
}

// DefaultModel returns the configured model, falling back to a
// per-provider default.
func (c *Config) DefaultModel(provider string) string {
	if provider == "" || provider == c.LLM.Provider {
		if c.LLM.Model != "" {
			return c.LLM.Model
		}
		provider = c.LLM.Provider
	}
	switch provider {
	case "openai":
		if c.Providers.OpenAI.Model != "" {
			return c.Providers.OpenAI.Model
		}
		return "gpt-4o-mini"
	case "anthropic":
		if c.Providers.Anthropic.Model != "" {
			return c.Providers.Anthropic.Model
		}
		return "claude-sonnet-4-20250514"
	case "google":
		return c.Providers.Google.Model
	case "perplexity":
		return c.Providers.Perplexity.Model
	default:
		return "llama3.1"
	}
}
