package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func newTestOpenRouter(t *testing.T, handler http.HandlerFunc) (*OpenRouterProvider, *httptest.Server) {
	t.Helper()
	t.Setenv("OPENROUTER_API_KEY", "sk-test")

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewOpenRouterProvider("qwen/qwen-2-vl-7b-instruct", rate.NewLimiter(rate.Inf, 1))
	assert.NoError(t, err)
	p.baseURL = srv.URL
	return p, srv
}

func TestOpenRouterGenerate(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	p, _ := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"task_updates\":[{\"task_number\":2,\"task_note\":\"door opened\",\"task_done\":true}],\"system_actions\":[]}"}}]}`))
	})

	out, err := p.Generate(context.Background(), Request{ImageJPEG: []byte{0xff, 0xd8}, Prompt: "watch the door"})
	assert.NoError(t, err)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "qwen/qwen-2-vl-7b-instruct", gotBody["model"])
	assert.Len(t, out.TaskUpdates, 1)
	assert.Equal(t, 2, out.TaskUpdates[0].TaskNumber)
	assert.True(t, out.TaskUpdates[0].TaskDone)
}

func TestOpenRouterRateLimited(t *testing.T) {
	p, _ := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","code":429}}`))
	})

	_, err := p.Generate(context.Background(), Request{ImageJPEG: []byte{1}, Prompt: "x"})
	assert.Error(t, err)
	assert.Equal(t, KindRateLimit, KindOf(err))
}

func TestOpenRouterBadKey(t *testing.T) {
	p, _ := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","code":401}}`))
	})

	_, err := p.Generate(context.Background(), Request{ImageJPEG: []byte{1}, Prompt: "x"})
	assert.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
}

func TestOpenRouterEmptyChoices(t *testing.T) {
	p, _ := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := p.Generate(context.Background(), Request{ImageJPEG: []byte{1}, Prompt: "x"})
	assert.Error(t, err)
	assert.Equal(t, KindEmpty, KindOf(err))
}

func TestOpenRouterLimiterHonorsContext(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")

	// Drained bucket: the single burst token is consumed up front so the
	// next Wait blocks until the context expires.
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	limiter.Allow()

	p, err := NewOpenRouterProvider("qwen/qwen-2-vl-7b-instruct", limiter)
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = p.Generate(ctx, Request{ImageJPEG: []byte{1}, Prompt: "x"})
	assert.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
}
