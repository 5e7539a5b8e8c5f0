package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeOutputPlainJSON(t *testing.T) {
	out, err := decodeOutput("test", `{"task_updates":[{"task_number":1,"task_note":"person entered","task_done":false}],"system_actions":[]}`)
	assert.NoError(t, err)
	assert.Len(t, out.TaskUpdates, 1)
	assert.Equal(t, 1, out.TaskUpdates[0].TaskNumber)
	assert.Equal(t, "person entered", out.TaskUpdates[0].TaskNote)
	assert.False(t, out.TaskUpdates[0].TaskDone)
	assert.Empty(t, out.SystemActions)
}

func TestDecodeOutputFencedJSON(t *testing.T) {
	text := "```json\n{\"task_updates\":[],\"system_actions\":[{\"take_action\":\"send_email\"}]}\n```"
	out, err := decodeOutput("test", text)
	assert.NoError(t, err)
	assert.Len(t, out.SystemActions, 1)
	assert.Equal(t, "send_email", out.SystemActions[0].TakeAction)
}

func TestDecodeOutputBareFence(t *testing.T) {
	text := "```\n{\"task_updates\":[],\"system_actions\":[]}\n```"
	out, err := decodeOutput("test", text)
	assert.NoError(t, err)
	assert.Empty(t, out.TaskUpdates)
}

func TestDecodeOutputUnknownField(t *testing.T) {
	_, err := decodeOutput("test", `{"task_updates":[],"system_actions":[],"extra":true}`)
	assert.Error(t, err)
	assert.Equal(t, KindParse, KindOf(err))
}

func TestDecodeOutputEmpty(t *testing.T) {
	for _, text := range []string{"", "   ", "null", "```\n```"} {
		_, err := decodeOutput("test", text)
		assert.Error(t, err)
		assert.Equal(t, KindEmpty, KindOf(err))
	}
}

func TestDecodeOutputMalformed(t *testing.T) {
	_, err := decodeOutput("test", "the camera shows a hallway")
	assert.Error(t, err)
	assert.Equal(t, KindParse, KindOf(err))
}

func TestKindOfUnwrapped(t *testing.T) {
	assert.Equal(t, KindTransport, KindOf(errors.New("plain")))

	wrapped := newError(KindRateLimit, "openrouter/x", errors.New("429"))
	assert.Equal(t, KindRateLimit, KindOf(wrapped))
}

func TestKindFromStatus(t *testing.T) {
	assert.Equal(t, KindRateLimit, kindFromStatus(429))
	assert.Equal(t, KindConfig, kindFromStatus(401))
	assert.Equal(t, KindConfig, kindFromStatus(403))
	assert.Equal(t, KindConfig, kindFromStatus(404))
	assert.Equal(t, KindTransport, kindFromStatus(500))
	assert.Equal(t, KindTransport, kindFromStatus(502))
}
