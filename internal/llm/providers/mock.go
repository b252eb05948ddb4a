package providers

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/probelab/redscan/internal/llm"
	"github.com/probelab/redscan/internal/types"
)

// MockCall records a single request made against the mock provider.
type MockCall struct {
	Request llm.CompletionRequest
}

// MockProvider implements llm.Provider for testing. It replays a fixed
// sequence of responses and records every request it receives.
type MockProvider struct {
	mu            sync.Mutex
	responses     []string
	responseIndex int
	calls         []MockCall
	err           error
}

// NewMockProvider creates a mock provider that cycles through the given
// responses.
func NewMockProvider(responses []string) *MockProvider {
	return &MockProvider{
		responses: responses,
		calls:     make([]MockCall, 0),
	}
}

// Name returns the provider name.
func (p *MockProvider) Name() string {
	return "mock"
}

// Complete records the request and returns the next queued response.
func (p *MockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, MockCall{Request: req})

	if p.err != nil {
		return nil, p.err
	}

	if len(p.responses) == 0 {
		return nil, types.NewError(types.PROVIDER_CALL_FAILED, "mock provider has no responses configured")
	}

	response := p.responses[p.responseIndex%len(p.responses)]
	p.responseIndex++

	return &llm.CompletionResponse{
		ID:           uuid.New().String(),
		Model:        req.Model,
		Content:      response,
		FinishReason: llm.FinishReasonStop,
	}, nil
}

// Health reports healthy unless a forced error is set.
func (p *MockProvider) Health(ctx context.Context) types.HealthStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return types.Unhealthy(p.err.Error())
	}
	return types.Healthy("")
}

// SetError makes every subsequent Complete call fail with err. Passing
// nil restores normal behavior.
func (p *MockProvider) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Calls returns a copy of the recorded requests.
func (p *MockProvider) Calls() []MockCall {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]MockCall, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallCount returns the number of requests the mock has received.
func (p *MockProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
