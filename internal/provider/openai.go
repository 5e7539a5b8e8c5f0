package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

// OpenAIProvider serves the gpt-* models via chat completions with a
// strict json_schema response format.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

func NewOpenAIProvider(model string) (*OpenAIProvider, error) {
	name := "openai/" + model
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, newError(KindConfig, name, errors.New("OPENAI_API_KEY is not set"))
	}
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai/" + p.model }

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*IngestorOutput, error) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(req.ImageJPEG)

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
				openai.TextContentPart(req.Prompt),
			}),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "video_ingestor_output",
					Schema: outputSchema,
					Strict: openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, newError(kindFromStatus(apiErr.StatusCode), p.Name(), err)
		}
		return nil, newError(KindTransport, p.Name(), err)
	}

	if len(resp.Choices) == 0 {
		return nil, newError(KindEmpty, p.Name(), fmt.Errorf("no choices in response"))
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, newError(KindRefusal, p.Name(), errors.New(choice.Message.Refusal))
	}
	return decodeOutput(p.Name(), choice.Message.Content)
}
