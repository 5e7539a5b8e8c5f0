package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider serves claude-* models. Claude has no schema-constrained
// output mode for plain messages, so the schema is carried in the prompt
// preamble and the response is schema-validated on decode.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

const anthropicPreamble = "Respond with a single JSON object matching this schema and nothing else:\n" +
	`{"task_updates":[{"task_number":int,"task_note":string,"task_done":bool}],"system_actions":[{"take_action":string}]}` + "\n\n"

func NewAnthropicProvider(model string) (*AnthropicProvider, error) {
	name := "anthropic/" + model
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, newError(KindConfig, name, errors.New("ANTHROPIC_API_KEY is not set"))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic/" + p.model }

func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (*IngestorOutput, error) {
	b64 := base64.StdEncoding.EncodeToString(req.ImageJPEG)

	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64("image/jpeg", b64),
				anthropic.NewTextBlock(anthropicPreamble+req.Prompt),
			),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, newError(kindFromStatus(apiErr.StatusCode), p.Name(), err)
		}
		return nil, newError(KindTransport, p.Name(), err)
	}

	if msg == nil || len(msg.Content) == 0 {
		return nil, newError(KindEmpty, p.Name(), fmt.Errorf("empty message content"))
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return decodeOutput(p.Name(), text)
}
