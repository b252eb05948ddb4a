package providers

import (
	"context"
	"os"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/probelab/redscan/internal/config"
	"github.com/probelab/redscan/internal/llm"
	"github.com/probelab/redscan/internal/types"
)

// OpenAIProvider implements llm.Provider for OpenAI's GPT models.
type OpenAIProvider struct {
	client *openai.LLM
	config config.ProviderConfig
}

// NewOpenAIProvider creates a new OpenAI provider. The API key comes
// from the configuration or the OPENAI_API_KEY environment variable.
func NewOpenAIProvider(cfg config.ProviderConfig) (*OpenAIProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	if apiKey == "" {
		return nil, llm.NewAuthError("openai", nil)
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
	}

	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}

	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, llm.TranslateError("openai", err)
	}

	return &OpenAIProvider{
		client: client,
		config: cfg,
	}, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete sends a completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	messages := toSchemaMessages(req.Messages)
	callOpts := buildCallOptions(req)

	resp, err := p.client.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return nil, llm.TranslateError("openai", err)
	}

	return fromLangchainResponse(resp, req.Model), nil
}

// Health probes the backend with a one-token completion.
func (p *OpenAIProvider) Health(ctx context.Context) types.HealthStatus {
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
