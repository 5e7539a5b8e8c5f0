// Package provider defines the vision-language-model contract used by the
// ingestion engine and the concrete Google/OpenAI/Anthropic/OpenRouter
// implementations behind it.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Request is one inference call: a prepared JPEG frame plus the assembled
// task prompt. Providers handle base64 wrapping themselves; the image MIME
// type is always image/jpeg.
type Request struct {
	ImageJPEG []byte
	Prompt    string
}

// TaskUpdate is one observation the model produced for a numbered task.
type TaskUpdate struct {
	TaskNumber int    `json:"task_number"`
	TaskNote   string `json:"task_note"`
	TaskDone   bool   `json:"task_done"`
}

// SystemAction is a free-text action the model decided a task requires.
type SystemAction struct {
	TakeAction string `json:"take_action"`
}

// IngestorOutput is the structured output contract. Both lists may be
// empty; unknown fields are rejected at decode time.
type IngestorOutput struct {
	TaskUpdates   []TaskUpdate   `json:"task_updates"`
	SystemActions []SystemAction `json:"system_actions"`
}

// ModelProvider is the uniform synchronous VLM contract. Generate blocks;
// the ingestor runs it on a worker goroutine. Implementations must return
// either an output that validates against the schema or a *Error.
type ModelProvider interface {
	// Name identifies the provider class and model, e.g. "openai/gpt-4o-mini".
	Name() string
	Generate(ctx context.Context, req Request) (*IngestorOutput, error)
}

// ErrorKind classifies provider failures so the ingestion loop can decide
// between skipping a frame and surfacing a configuration problem.
type ErrorKind string

const (
	KindConfig    ErrorKind = "config"
	KindTransport ErrorKind = "transport"
	KindRateLimit ErrorKind = "rate_limit"
	KindParse     ErrorKind = "parse"
	KindRefusal   ErrorKind = "refusal"
	KindEmpty     ErrorKind = "empty"
)

// Error wraps a provider failure with its classification.
type Error struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, providerName string, err error) *Error {
	return &Error{Kind: kind, Provider: providerName, Err: err}
}

// KindOf extracts the classification from an error chain; unknown errors
// report as transport.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransport
}

// kindFromStatus maps an HTTP status to an error kind. 429 is its own
// class so callers can log it quietly.
func kindFromStatus(status int) ErrorKind {
	switch {
	case status == 429:
		return KindRateLimit
	case status == 401 || status == 403 || status == 404:
		return KindConfig
	default:
		return KindTransport
	}
}

// outputSchema is the JSON-schema form of IngestorOutput sent to providers
// that accept raw schema maps (OpenAI, OpenRouter). The Google variant
// rebuilds it as a genai.Schema.
var outputSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"task_updates": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"task_number": map[string]any{"type": "integer"},
					"task_note":   map[string]any{"type": "string"},
					"task_done":   map[string]any{"type": "boolean"},
				},
				"required": []string{"task_number", "task_note", "task_done"},
			},
		},
		"system_actions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"take_action": map[string]any{"type": "string"},
				},
				"required": []string{"take_action"},
			},
		},
	},
	"required": []string{"task_updates", "system_actions"},
}
