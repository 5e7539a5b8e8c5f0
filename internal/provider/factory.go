package provider

import (
	"context"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultModel is used when VIDEO_INGESTOR_MODEL is unset or names a model
// outside the allow list.
const DefaultModel = "gemini-2.5-flash"

type providerClass string

const (
	classGoogle     providerClass = "google"
	classOpenAI     providerClass = "openai"
	classAnthropic  providerClass = "anthropic"
	classOpenRouter providerClass = "openrouter"
)

// modelTable maps a user-facing model name to its provider class and, for
// OpenRouter, the full model slug expected by the API.
var modelTable = map[string]struct {
	class providerClass
	slug  string
}{
	"gemini-2.5-flash":      {classGoogle, "gemini-2.5-flash"},
	"gemini-2.5-flash-lite": {classGoogle, "gemini-2.5-flash-lite"},
	"gpt-4.1-nano":          {classOpenAI, "gpt-4.1-nano"},
	"gpt-4o-mini":           {classOpenAI, "gpt-4o-mini"},
	"molmo-2-8b":            {classOpenRouter, "allenai/molmo-2-8b:free"},
	"qwen-2-vl-7b":          {classOpenRouter, "qwen/qwen-2-vl-7b-instruct"},
	"phi-4-multimodal":      {classOpenRouter, "microsoft/phi-4-multimodal-instruct"},
}

// Factory resolves model names into providers. It owns the shared
// OpenRouter limiter so every OpenRouter provider it hands out draws from
// one token bucket.
type Factory struct {
	mu        sync.Mutex
	orLimiter *rate.Limiter
}

func NewFactory() *Factory {
	return &Factory{
		orLimiter: rate.NewLimiter(rate.Every(time.Minute/OpenRouterRequestsPerMinute), 1),
	}
}

// ResolveModel validates a requested model name against the allow list,
// falling back to DefaultModel with a warning for unknown names.
func ResolveModel(model string) string {
	model = strings.TrimSpace(model)
	if model == "" {
		return DefaultModel
	}
	if _, ok := modelTable[model]; ok {
		return model
	}
	// The allow list carries no Anthropic entry, so claude-* names pass
	// through to the Anthropic provider instead of falling back.
	if strings.HasPrefix(model, "claude-") {
		log.Printf("[provider] model %q is outside the allow list, routing to anthropic", model)
		return model
	}
	log.Printf("[provider] unknown model %q, falling back to %s", model, DefaultModel)
	return DefaultModel
}

// New builds a provider for the given model name. Unknown names fall back
// to the default model rather than failing; missing API keys surface as a
// KindConfig error.
func (f *Factory) New(ctx context.Context, model string) (ModelProvider, error) {
	model = ResolveModel(model)

	if strings.HasPrefix(model, "claude-") {
		return NewAnthropicProvider(model)
	}

	entry := modelTable[model]
	switch entry.class {
	case classGoogle:
		return NewGoogleProvider(ctx, model)
	case classOpenAI:
		return NewOpenAIProvider(model)
	case classOpenRouter:
		f.mu.Lock()
		limiter := f.orLimiter
		f.mu.Unlock()
		return NewOpenRouterProvider(entry.slug, limiter)
	default:
		return NewGoogleProvider(ctx, DefaultModel)
	}
}

// FromEnv builds a provider for whatever VIDEO_INGESTOR_MODEL currently
// names. Used at startup and again whenever settings change.
func (f *Factory) FromEnv(ctx context.Context) (ModelProvider, error) {
	return f.New(ctx, os.Getenv("VIDEO_INGESTOR_MODEL"))
}
