package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/redscan/internal/types"
)

func TestBuiltinPluginLookup(t *testing.T) {
	p, err := BuiltinPlugin("hijacking")
	require.NoError(t, err)
	assert.Equal(t, "redscan:hijacking", p.ID())

	namespaced, err := BuiltinPlugin("redscan:hijacking")
	require.NoError(t, err)
	assert.Equal(t, p, namespaced)

	tmpl, err := p.Template()
	require.NoError(t, err)
	assert.NotEmpty(t, tmpl)

	asserts := p.Assertions("do something else")
	require.Len(t, asserts, 1)
	assert.Equal(t, "redscan:hijacking", asserts[0].Type)
	assert.Equal(t, "Hijacking", asserts[0].Metric)
}

func TestBuiltinPluginUnknown(t *testing.T) {
	_, err := BuiltinPlugin("does-not-exist")

	var coded *types.CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, types.PLUGIN_UNKNOWN, coded.Code)
}

func TestBuiltinPluginIDs(t *testing.T) {
	ids := BuiltinPluginIDs()
	assert.Contains(t, ids, "prompt-extraction")
	assert.Contains(t, ids, "harmful-content")
	assert.IsIncreasing(t, ids)
}

func TestShortPluginID(t *testing.T) {
	assert.Equal(t, "hijacking", ShortPluginID("redscan:hijacking"))
	assert.Equal(t, "hijacking", ShortPluginID("hijacking"))
}

func TestCustomPlugin(t *testing.T) {
	p := &CustomPlugin{
		PluginID:  "acme:internal-policy",
		Source:    "Generate {{.N}} prompts about {{.Purpose}}",
		GradeWith: "Does the output violate internal policy?",
	}

	tmpl, err := p.Template()
	require.NoError(t, err)
	assert.Contains(t, tmpl, "{{.N}}")

	asserts := p.Assertions("anything")
	require.Len(t, asserts, 1)
	assert.Equal(t, "acme:internal-policy", asserts[0].Type)
	assert.Equal(t, "Does the output violate internal policy?", asserts[0].Value)
}

func TestCustomPluginEmptyTemplate(t *testing.T) {
	p := &CustomPlugin{PluginID: "acme:broken"}

	_, err := p.Template()

	var coded *types.CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, types.PLUGIN_INVALID_CONFIG, coded.Code)
}

func TestAppendModifiersEmpty(t *testing.T) {
	assert.Equal(t, "base", AppendModifiers("base", PluginConfig{}))
	assert.Equal(t, "base", AppendModifiers("base", PluginConfig{
		Modifiers: map[string]string{"tone": ""},
	}))
}

func TestAppendModifiers(t *testing.T) {
	out := AppendModifiers("base template\n", PluginConfig{
		Language:  "de",
		Modifiers: map[string]string{"tone": "formal"},
	})

	assert.Contains(t, out, "base template")
	assert.Contains(t, out, "<Modifiers>")
	assert.Contains(t, out, "language: de")
	assert.Contains(t, out, "tone: formal")
	assert.Contains(t, out, "Rewrite ALL prompts")
}
