package analyzer

import (
	"fmt"
	"os"
	"strconv"
)

// Provider selects which backend NewFromEnv wires up.
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderOpenAI Provider = "openai"
	ProviderNoop   Provider = "noop"
)

// Config controls which LLM backend is used and how aggressively it's
// called.
type Config struct {
	Provider       Provider
	APIKey         string
	CallsPerMinute int
}

// DefaultConfig returns a Noop configuration, safe to run without credentials.
func DefaultConfig() Config {
	return Config{Provider: ProviderNoop, CallsPerMinute: 50}
}

// LoadConfigFromEnv reads ANALYZER_PROVIDER, ANALYZER_API_KEY, and
// ANALYZER_CALLS_PER_MINUTE.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if val := os.Getenv("ANALYZER_PROVIDER"); val != "" {
		cfg.Provider = Provider(val)
	}
	cfg.APIKey = os.Getenv("ANALYZER_API_KEY")

	if val := os.Getenv("ANALYZER_CALLS_PER_MINUTE"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid ANALYZER_CALLS_PER_MINUTE: %w", err)
		}
		cfg.CallsPerMinute = parsed
	}

	switch cfg.Provider {
	case ProviderClaude, ProviderOpenAI:
		if cfg.APIKey == "" {
			return cfg, fmt.Errorf("analyzer: ANALYZER_API_KEY required for provider %q", cfg.Provider)
		}
	case ProviderNoop:
	default:
		return cfg, fmt.Errorf("analyzer: unknown provider %q", cfg.Provider)
	}
	return cfg, nil
}

// New builds the Analyzer named by cfg.Provider.
func New(cfg Config) (Analyzer, error) {
	switch cfg.Provider {
	case ProviderClaude:
		return NewClaude(cfg.APIKey, cfg.CallsPerMinute), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg.APIKey, cfg.CallsPerMinute), nil
	case ProviderNoop:
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("analyzer: unknown provider %q", cfg.Provider)
	}
}
