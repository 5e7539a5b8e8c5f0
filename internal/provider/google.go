package provider

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// GoogleProvider serves the gemini-* models through the Gemini API.
type GoogleProvider struct {
	client *genai.Client
	model  string
}

func NewGoogleProvider(ctx context.Context, model string) (*GoogleProvider, error) {
	name := "google/" + model
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		return nil, newError(KindConfig, name, errors.New("GOOGLE_API_KEY is not set"))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, newError(KindConfig, name, err)
	}
	return &GoogleProvider{client: client, model: model}, nil
}

func (p *GoogleProvider) Name() string { return "google/" + p.model }

func (p *GoogleProvider) Generate(ctx context.Context, req Request) (*IngestorOutput, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(req.ImageJPEG, "image/jpeg"),
		genai.NewPartFromText(req.Prompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   googleOutputSchema(),
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, newError(kindFromStatus(apiErr.Code), p.Name(), err)
		}
		return nil, newError(KindTransport, p.Name(), err)
	}

	if resp == nil {
		return nil, newError(KindEmpty, p.Name(), fmt.Errorf("nil response"))
	}
	return decodeOutput(p.Name(), resp.Text())
}

// googleOutputSchema mirrors outputSchema in the genai SDK's own type.
func googleOutputSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"task_updates": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"task_number": {Type: genai.TypeInteger},
						"task_note":   {Type: genai.TypeString},
						"task_done":   {Type: genai.TypeBoolean},
					},
					Required: []string{"task_number", "task_note", "task_done"},
				},
			},
			"system_actions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"take_action": {Type: genai.TypeString},
					},
					Required: []string{"take_action"},
				},
			},
		},
		Required: []string{"task_updates", "system_actions"},
	}
}
