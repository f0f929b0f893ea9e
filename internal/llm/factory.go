package llm

import (
	"fmt"
	"strings"

	"github.com/smolbet/oracle/internal/config"
)

// NewProvider creates a new provider based on configuration
func NewProvider(cfg Config) (Provider, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(cfg)

	case "anthropic", "claude":
		return NewAnthropicProvider(cfg)

	case "ollama":
		return NewOllamaProvider(cfg)

	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: openai, anthropic, ollama)", cfg.Provider)
	}
}

// ConfigFromJudge converts the top-level judge settings to llm.Config
func ConfigFromJudge(jc config.JudgeConfig, hc config.HTTPConfig) Config {
	return Config{
		Provider:   jc.Provider,
		Model:      jc.Model,
		APIKey:     jc.APIKey,
		BaseURL:    jc.BaseURL,
		Timeout:    jc.Timeout,
		MaxTokens:  jc.MaxTokens,
		HTTPProxy:  hc.HTTPProxy,
		HTTPSProxy: hc.HTTPSProxy,
		NoProxy:    hc.NoProxy,
	}
}
