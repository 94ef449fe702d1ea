package embedding

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Provider selects an embedding backend. It is resolved from configuration
// once; there is no runtime discovery.
type Provider string

const (
	ProviderNone   Provider = "none"
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// ParseProvider accepts "openai", "ollama", "none" or "" (none).
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case "", ProviderNone:
		return ProviderNone, nil
	case ProviderOpenAI, ProviderOllama:
		return p, nil
	default:
		return ProviderNone, fmt.Errorf("unknown embedding provider %q (valid: openai, ollama, none)", s)
	}
}

// Config describes one provider.
type Config struct {
	Provider Provider
	BaseURL  string
	APIKey   string
	Model    string
	Dims     int
	Timeout  time.Duration
}

// New builds the embedder described by cfg. It returns an error when the
// provider is disabled or misconfigured; callers degrade to keyword search.
func New(cfg Config) (Embedder, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid embedding base url %q", cfg.BaseURL)
		}
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" && (cfg.BaseURL == "" || cfg.BaseURL == DefaultOpenAIURL) {
			return nil, fmt.Errorf("openai provider requires an api key")
		}
		return NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dims, timeout), nil
	case ProviderOllama:
		return NewOllamaEmbedder(cfg.BaseURL, cfg.Model, timeout), nil
	case ProviderNone, "":
		return nil, fmt.Errorf("embedding provider disabled")
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
