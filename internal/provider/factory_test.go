package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveModelKnown(t *testing.T) {
	assert.Equal(t, "gemini-2.5-flash", ResolveModel("gemini-2.5-flash"))
	assert.Equal(t, "gemini-2.5-flash-lite", ResolveModel("gemini-2.5-flash-lite"))
	assert.Equal(t, "gpt-4o-mini", ResolveModel("gpt-4o-mini"))
	assert.Equal(t, "gpt-4.1-nano", ResolveModel("gpt-4.1-nano"))
	assert.Equal(t, "molmo-2-8b", ResolveModel("molmo-2-8b"))
	assert.Equal(t, "qwen-2-vl-7b", ResolveModel("qwen-2-vl-7b"))
	assert.Equal(t, "phi-4-multimodal", ResolveModel("phi-4-multimodal"))
}

func TestResolveModelUnknownFallsBack(t *testing.T) {
	assert.Equal(t, DefaultModel, ResolveModel("llava-13b"))
	assert.Equal(t, DefaultModel, ResolveModel(""))
	assert.Equal(t, DefaultModel, ResolveModel("  "))
}

func TestResolveModelClaudePassthrough(t *testing.T) {
	assert.Equal(t, "claude-sonnet-4-5", ResolveModel("claude-sonnet-4-5"))
}

func TestFactoryMissingKeyIsConfigError(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewOpenAIProvider("gpt-4o-mini")
	assert.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))

	t.Setenv("OPENROUTER_API_KEY", "")
	_, err = NewOpenRouterProvider("qwen/qwen-2-vl-7b-instruct", nil)
	assert.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))

	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err = NewAnthropicProvider("claude-sonnet-4-5")
	assert.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
}

func TestFactorySharesOpenRouterLimiter(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")

	f := NewFactory()
	a, err := NewOpenRouterProvider("allenai/molmo-2-8b:free", f.orLimiter)
	assert.NoError(t, err)
	b, err := NewOpenRouterProvider("qwen/qwen-2-vl-7b-instruct", f.orLimiter)
	assert.NoError(t, err)
	assert.Same(t, a.limiter, b.limiter)
}
