package llm

import (
	"fmt"
	"log/slog"
	"strings"
)

// Credentials are the provider API keys one run may use. They are passed
// explicitly to every client built for the run and never read from or
// written to the process environment.
type Credentials struct {
	OpenAI     string
	Anthropic  string
	Google     string
	Perplexity string
}

// Factory builds a model client for one run.
type Factory interface {
	New(provider string, creds Credentials) (Client, error)
}

// ProviderFactory builds clients for the supported providers.
type ProviderFactory struct {
	OllamaURL         string
	OpenAIBaseURL     string
	AnthropicBaseURL  string
	GoogleBaseURL     string
	PerplexityBaseURL string
	Options           Options
	Logger            *slog.Logger

	// Models routes model names to providers. When set, New returns a
	// [MultiClient] whose fallback is the requested provider; models of
	// providers without credentials stay on the fallback.
	Models map[string]string
}

// Providers lists the provider names ProviderFactory understands.
var Providers = []string{"ollama", "openai", "anthropic", "google", "perplexity"}

// googleBaseURL is Gemini's OpenAI-compatible endpoint.
const googleBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// New returns a client for provider. Hosted providers require their key
// in creds.
func (f *ProviderFactory) New(provider string, creds Credentials) (Client, error) {
	provider = strings.ToLower(provider)
	primary, err := f.client(provider, creds)
	if err != nil || len(f.Models) == 0 {
		return primary, err
	}

	multi := NewMultiClient(primary)
	multi.AddProvider(provider, primary)
	for model, p := range f.Models {
		p = strings.ToLower(p)
		if !multi.HasProvider(p) {
			c, err := f.client(p, creds)
			if err != nil {
				continue
			}
			multi.AddProvider(p, c)
		}
		multi.AddModel(model, p)
	}
	return multi, nil
}

func (f *ProviderFactory) client(provider string, creds Credentials) (Client, error) {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch provider {
	case "ollama":
		return NewOllamaClient(f.OllamaURL, f.Options, logger), nil
	case "openai":
		if creds.OpenAI == "" {
			return nil, fmt.Errorf("openai: api key is required")
		}
		return NewOpenAIClient("openai", creds.OpenAI, f.OpenAIBaseURL, f.Options, logger), nil
	case "anthropic":
		if creds.Anthropic == "" {
			return nil, fmt.Errorf("anthropic: api key is required")
		}
		return NewAnthropicClient(creds.Anthropic, f.AnthropicBaseURL, f.Options, logger), nil
	case "google":
		if creds.Google == "" {
			return nil, fmt.Errorf("google: api key is required")
		}
		base := f.GoogleBaseURL
		if base == "" {
			base = googleBaseURL
		}
		return NewOpenAIClient("google", creds.Google, base, f.Options, logger), nil
	case "perplexity":
		if creds.Perplexity == "" {
			return nil, fmt.Errorf("perplexity: api key is required")
		}
		base := f.PerplexityBaseURL
		if base == "" {
			base = "https://api.perplexity.ai"
		}
		return NewOpenAIClient("perplexity", creds.Perplexity, base, f.Options, logger), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}
