package providers

import (
	"fmt"

	"github.com/probelab/redscan/internal/config"
	"github.com/probelab/redscan/internal/llm"
	"github.com/probelab/redscan/internal/types"
)

// NewProvider creates an LLM provider from its configuration.
func NewProvider(cfg config.ProviderConfig) (llm.Provider, error) {
	switch cfg.Name {
	case "anthropic":
		return NewAnthropicProvider(cfg)

	case "openai":
		return NewOpenAIProvider(cfg)

	case "ollama":
		return NewOllamaProvider(cfg)

	case "mock":
		return NewMockProvider([]string{"Mock response"}), nil

	default:
		return nil, types.NewError(types.PROVIDER_NOT_CONFIGURED,
			fmt.Sprintf("unknown provider: %s", cfg.Name))
	}
}
