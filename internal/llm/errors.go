package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/probelab/redscan/internal/types"
)

// NewAuthError creates an error for missing or rejected credentials.
func NewAuthError(provider string, cause error) *types.CodedError {
	return &types.CodedError{
		Code:    types.PROVIDER_AUTH_FAILED,
		Message: "authentication failed for provider: " + provider,
		Cause:   cause,
	}
}

// TranslateError maps a raw provider error onto a coded error, marking
// transient failures retryable so callers can decide whether to retry.
func TranslateError(provider string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var coded *types.CodedError
	if errors.As(err, &coded) {
		return err
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return &types.CodedError{
			Code:      types.PROVIDER_RATE_LIMITED,
			Message:   "rate limit exceeded for provider: " + provider,
			Retryable: true,
			Cause:     err,
		}

	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "401") ||
		strings.Contains(msg, "invalid api key") || strings.Contains(msg, "authentication"):
		return NewAuthError(provider, err)

	case strings.Contains(msg, "timeout") || strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") || strings.Contains(msg, "503") ||
		strings.Contains(msg, "502"):
		return &types.CodedError{
			Code:      types.PROVIDER_CALL_FAILED,
			Message:   "provider temporarily unavailable: " + provider,
			Retryable: true,
			Cause:     err,
		}

	default:
		return types.WrapError(types.PROVIDER_CALL_FAILED, "completion failed for provider: "+provider, err)
	}
}
