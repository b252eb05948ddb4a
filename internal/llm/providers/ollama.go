package providers

import (
	"context"

	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/probelab/redscan/internal/config"
	"github.com/probelab/redscan/internal/llm"
	"github.com/probelab/redscan/internal/types"
)

// OllamaProvider implements llm.Provider for local Ollama models.
type OllamaProvider struct {
	client *ollama.LLM
	config config.ProviderConfig
}

// NewOllamaProvider creates a new Ollama provider pointed at the
// configured server URL, defaulting to the local daemon.
func NewOllamaProvider(cfg config.ProviderConfig) (*OllamaProvider, error) {
	serverURL := cfg.BaseURL
	if serverURL == "" {
		serverURL = "http://localhost:11434"
	}

	opts := []ollama.Option{
		ollama.WithServerURL(serverURL),
	}

	if cfg.Model != "" {
		opts = append(opts, ollama.WithModel(cfg.Model))
	}

	client, err := ollama.New(opts...)
	if err != nil {
		return nil, llm.TranslateError("ollama", err)
	}

	return &OllamaProvider{
		client: client,
		config: cfg,
	}, nil
}

// Name returns the provider name.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Complete sends a completion request.
func (p *OllamaProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	messages := toSchemaMessages(req.Messages)
	callOpts := buildCallOptions(req)

	resp, err := p.client.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return nil, llm.TranslateError("ollama", err)
	}

	return fromLangchainResponse(resp, req.Model), nil
}

// Health probes the backend with a one-token completion.
func (p *OllamaProvider) Health(ctx context.Context) types.HealthStatus {
	req := llm.CompletionRequest{
		Model:     p.config.Model,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: "ping"}},
		MaxTokens: 1,
	}

	if _, err := p.Complete(ctx, req); err != nil {
		return types.Unhealthy(err.Error())
	}
	return types.Healthy("")
}
