package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterRequestsPerMinute is the free-tier budget. The limiter is shared
// across every OpenRouter provider instance the factory hands out, so the
// cap holds globally no matter how many ingestors run.
const OpenRouterRequestsPerMinute = 18

// OpenRouterProvider serves open-weight vision models through OpenRouter's
// OpenAI-compatible REST API. There is no official SDK; requests are plain
// JSON over HTTP.
type OpenRouterProvider struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	model      string
	apiKey     string
}

// NewOpenRouterProvider builds a provider for one model slug. The limiter
// is injected so all instances of this class share one token bucket.
func NewOpenRouterProvider(model string, limiter *rate.Limiter) (*OpenRouterProvider, error) {
	name := "openrouter/" + model
	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		return nil, newError(KindConfig, name, errors.New("OPENROUTER_API_KEY is not set"))
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(time.Minute/OpenRouterRequestsPerMinute), 1)
	}
	return &OpenRouterProvider{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    limiter,
		baseURL:    openRouterBaseURL,
		model:      model,
		apiKey:     apiKey,
	}, nil
}

func (p *OpenRouterProvider) Name() string { return "openrouter/" + p.model }

type openRouterResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (p *OpenRouterProvider) Generate(ctx context.Context, req Request) (*IngestorOutput, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, newError(KindTransport, p.Name(), err)
	}

	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(req.ImageJPEG)

	body := map[string]any{
		"model": p.model,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
					{"type": "text", "text": req.Prompt},
				},
			},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "video_ingestor_output",
				"strict": true,
				"schema": outputSchema,
			},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, newError(KindParse, p.Name(), err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, newError(KindTransport, p.Name(), err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, newError(KindTransport, p.Name(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, newError(KindTransport, p.Name(), err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newError(kindFromStatus(resp.StatusCode), p.Name(),
			fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(raw)))
	}

	var parsed openRouterResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, newError(KindParse, p.Name(), err)
	}
	if parsed.Error != nil {
		return nil, newError(kindFromStatus(parsed.Error.Code), p.Name(), errors.New(parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return nil, newError(KindEmpty, p.Name(), errors.New("no choices in response"))
	}
	if refusal := parsed.Choices[0].Message.Refusal; refusal != "" {
		return nil, newError(KindRefusal, p.Name(), errors.New(refusal))
	}
	return decodeOutput(p.Name(), parsed.Choices[0].Message.Content)
}
