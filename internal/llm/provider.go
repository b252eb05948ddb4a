// Package llm defines the provider abstraction used by the test
// generation pipeline and its langchaingo-backed implementations.
package llm

import (
	"context"

	"github.com/probelab/redscan/internal/types"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes a single chat completion call.
type CompletionRequest struct {
	Messages      []Message `json:"messages"`
	Model         string    `json:"model,omitempty"`
	Temperature   float64   `json:"temperature,omitempty"`
	MaxTokens     int       `json:"max_tokens,omitempty"`
	TopP          float64   `json:"top_p,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
}

// FinishReason indicates why the model stopped generating.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonContentFilter FinishReason = "content_filter"
)

// CompletionResponse is the provider's answer to a CompletionRequest.
type CompletionResponse struct {
	ID           string       `json:"id"`
	Model        string       `json:"model"`
	Content      string       `json:"content"`
	FinishReason FinishReason `json:"finish_reason"`
}

// Provider is the interface all LLM backends implement. Implementations
// must be safe for concurrent use.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai").
	Name() string

	// Complete sends a chat completion request and returns the response.
	// The context controls cancellation and deadlines.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Health checks whether the backend is reachable and able to
	// serve completions.
	Health(ctx context.Context) types.HealthStatus
}
