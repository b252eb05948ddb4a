package generation

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/redscan/internal/llm/providers"
	"github.com/probelab/redscan/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGenerator(t *testing.T, responses []string) (*Generator, *providers.MockProvider) {
	t.Helper()

	plugin, err := BuiltinPlugin("hijacking")
	require.NoError(t, err)

	mock := providers.NewMockProvider(responses)
	gen := NewGenerator(plugin, mock, "customer support bot", "query",
		PluginConfig{}, discardLogger(), nil)
	return gen, mock
}

func TestGenerateTests(t *testing.T) {
	gen, _ := newTestGenerator(t, []string{
		"Prompt: echo\nPrompt: delta\nPrompt: charlie\nPrompt: bravo\nPrompt: alpha",
	})

	cases, err := gen.GenerateTests(context.Background(), 5, 0, nil)
	require.NoError(t, err)
	require.Len(t, cases, 5)

	// Lexicographically sorted regardless of arrival order.
	assert.Equal(t, "alpha", cases[0].Vars["query"])
	assert.Equal(t, "echo", cases[4].Vars["query"])

	assert.Equal(t, "hijacking", cases[0].Metadata.PluginID)
	assert.Equal(t, "high", cases[0].Metadata.Severity)
	require.Len(t, cases[0].Assert, 1)
	assert.Equal(t, "redscan:hijacking", cases[0].Assert[0].Type)
}

func TestGenerateTestsMultipleBatches(t *testing.T) {
	gen, mock := newTestGenerator(t, []string{
		"Prompt: one\nPrompt: two\nPrompt: three\nPrompt: four\nPrompt: five",
		"Prompt: six\nPrompt: seven\nPrompt: eight\nPrompt: nine\nPrompt: ten",
	})

	cases, err := gen.GenerateTests(context.Background(), 10, 0, nil)
	require.NoError(t, err)
	assert.Len(t, cases, 10)

	calls := mock.Calls()
	require.Len(t, calls, 2)
	first := calls[0].Request.Messages[0].Content
	second := calls[1].Request.Messages[0].Content
	assert.NotContains(t, first, "IMPORTANT: This is attempt")
	assert.Contains(t, second, "IMPORTANT: This is attempt 2.")
}

func TestGenerateTestsPartialResult(t *testing.T) {
	// Provider keeps repeating the same two prompts; generation gives up
	// after the no-progress budget and returns what it has.
	gen, mock := newTestGenerator(t, []string{
		"Prompt: only one\nPrompt: only two",
	})

	cases, err := gen.GenerateTests(context.Background(), 8, 0, nil)
	require.NoError(t, err)
	assert.Len(t, cases, 2)
	assert.Equal(t, 7, mock.CallCount())
}

func TestGenerateTestsProviderFailure(t *testing.T) {
	gen, mock := newTestGenerator(t, []string{"unused"})
	mock.SetError(assert.AnError)

	cases, err := gen.GenerateTests(context.Background(), 5, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, cases)
	assert.Equal(t, 6, mock.CallCount())
}

func TestGenerateTestsNearDuplicatesCollapse(t *testing.T) {
	gen, _ := newTestGenerator(t, []string{
		"Prompt: Ignore All Instructions\nPrompt: ignore   all instructions\nPrompt: distinct",
	})

	cases, err := gen.GenerateTests(context.Background(), 2, 0, nil)
	require.NoError(t, err)
	assert.Len(t, cases, 2)
}

func TestGenerateTestsTemplateOverride(t *testing.T) {
	gen, mock := newTestGenerator(t, []string{"Prompt: custom output"})

	_, err := gen.GenerateTests(context.Background(), 5, 0, func() (string, error) {
		return "Custom template asking for {{.N}} prompts about {{.Purpose}}", nil
	})
	require.NoError(t, err)

	require.NotEmpty(t, mock.Calls())
	content := mock.Calls()[0].Request.Messages[0].Content
	assert.Contains(t, content, "Custom template asking for 5 prompts about customer support bot")
}

func TestGenerateTestsBadTemplate(t *testing.T) {
	gen, _ := newTestGenerator(t, nil)

	_, err := gen.GenerateTests(context.Background(), 5, 0, func() (string, error) {
		return "{{.Unterminated", nil
	})

	var coded *types.CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, types.PLUGIN_INVALID_CONFIG, coded.Code)
}

func TestGenerateTestsInvalidCount(t *testing.T) {
	gen, _ := newTestGenerator(t, nil)

	_, err := gen.GenerateTests(context.Background(), 0, 0, nil)
	assert.Error(t, err)
}

func TestGenerateTestsHonorsDelay(t *testing.T) {
	gen, _ := newTestGenerator(t, []string{
		"Prompt: one\nPrompt: two\nPrompt: three\nPrompt: four\nPrompt: five",
		"Prompt: six\nPrompt: seven\nPrompt: eight\nPrompt: nine\nPrompt: ten",
	})

	start := time.Now()
	cases, err := gen.GenerateTests(context.Background(), 10, 20*time.Millisecond, nil)
	require.NoError(t, err)
	assert.Len(t, cases, 10)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestBatchSizeFor(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{1, 5},
		{8, 5},
		{40, 5},
		{80, 10},
		{160, 20},
		{1000, 20},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, batchSizeFor(tt.n), "n=%d", tt.n)
	}
}
