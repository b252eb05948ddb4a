package providers

import (
	"context"
	"os"

	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/probelab/redscan/internal/config"
	"github.com/probelab/redscan/internal/llm"
	"github.com/probelab/redscan/internal/types"
)

// AnthropicProvider implements llm.Provider for Anthropic's Claude models.
type AnthropicProvider struct {
	client *anthropic.LLM
	config config.ProviderConfig
}

// NewAnthropicProvider creates a new Anthropic provider. The API key
// comes from the configuration or the ANTHROPIC_API_KEY environment
// variable.
func NewAnthropicProvider(cfg config.ProviderConfig) (*AnthropicProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	if apiKey == "" {
		return nil, llm.NewAuthError("anthropic", nil)
	}

	opts := []anthropic.Option{
		anthropic.WithToken(apiKey),
	}

	if cfg.Model != "" {
		opts = append(opts, anthropic.WithModel(cfg.Model))
	}

	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	client, err := anthropic.New(opts...)
	if err != nil {
		return nil, llm.TranslateError("anthropic", err)
	}

	return &AnthropicProvider{
		client: client,
		config: cfg,
	}, nil
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Complete sends a completion request.
func (p *AnthropicProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	messages := toSchemaMessages(req.Messages)
	callOpts := buildCallOptions(req)

	resp, err := p.client.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return nil, llm.TranslateError("anthropic", err)
	}

	return fromLangchainResponse(resp, req.Model), nil
}

// Health probes the backend with a one-token completion.
func (p *AnthropicProvider) Health(ctx context.Context) types.HealthStatus {
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
