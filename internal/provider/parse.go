package provider

import (
	"encoding/json"
	"errors"
	"strings"
)

// stripFences removes a markdown code fence wrapper if the model emitted
// one (```json ... ``` or plain ```). Some models fence their structured
// output even when asked for raw JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the optional language tag on the opening fence line.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first == "json" || first == "" {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// decodeOutput parses model text into the structured output contract.
// Empty text maps to KindEmpty, schema violations to KindParse.
func decodeOutput(providerName, text string) (*IngestorOutput, error) {
	cleaned := stripFences(text)
	if cleaned == "" || cleaned == "null" {
		return nil, newError(KindEmpty, providerName, errors.New("model returned no content"))
	}

	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.DisallowUnknownFields()

	var out IngestorOutput
	if err := dec.Decode(&out); err != nil {
		return nil, newError(KindParse, providerName, err)
	}
	return &out, nil
}
