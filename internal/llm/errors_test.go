package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/redscan/internal/types"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  types.ErrorCode
		retryable bool
	}{
		{
			name:      "rate limit",
			err:       errors.New("429: rate limit exceeded"),
			wantCode:  types.PROVIDER_RATE_LIMITED,
			retryable: true,
		},
		{
			name:      "unauthorized",
			err:       errors.New("401 Unauthorized: invalid api key"),
			wantCode:  types.PROVIDER_AUTH_FAILED,
			retryable: false,
		},
		{
			name:      "connection refused",
			err:       errors.New("dial tcp: connection refused"),
			wantCode:  types.PROVIDER_CALL_FAILED,
			retryable: true,
		},
		{
			name:      "unknown failure",
			err:       errors.New("something odd happened"),
			wantCode:  types.PROVIDER_CALL_FAILED,
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			translated := TranslateError("openai", tt.err)

			var coded *types.CodedError
			require.ErrorAs(t, translated, &coded)
			assert.Equal(t, tt.wantCode, coded.Code)
			assert.Equal(t, tt.retryable, coded.Retryable)
			assert.ErrorIs(t, translated, tt.err)
		})
	}
}

func TestTranslateErrorNil(t *testing.T) {
	assert.NoError(t, TranslateError("openai", nil))
}

func TestTranslateErrorPreservesContextCancellation(t *testing.T) {
	err := TranslateError("openai", context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)

	var coded *types.CodedError
	assert.False(t, errors.As(err, &coded))
}

func TestTranslateErrorPassesThroughCodedErrors(t *testing.T) {
	orig := types.NewError(types.PROVIDER_RATE_LIMITED, "slow down")
	assert.Equal(t, error(orig), TranslateError("openai", orig))
}
