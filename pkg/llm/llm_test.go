package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelSupportsVision(t *testing.T) {
	for model, want := range map[string]bool{
		"qwen-vl-max":          true,
		"Qwen2.5-VL-72B":       true,
		"qwen3.5-plus":         true,
		"gpt-4o-mini":          true,
		"gemini-2.0-flash":     true,
		"deepseek-chat":        false,
		"qwen-max":             false,
		"gpt-4-vision-preview": true,
	} {
		assert.Equal(t, want, ModelSupportsVision(model), model)
	}
}

func TestAccumulate(t *testing.T) {
	stream := make(chan *StreamChunk, 8)
	stream <- &StreamChunk{Content: "think", Type: ContentTypeThinking}
	stream <- &StreamChunk{ToolCalls: []ToolCallDelta{{Index: 1, ID: "b", Name: "second", Arguments: `{"k":`}}}
	stream <- &StreamChunk{ToolCalls: []ToolCallDelta{{Index: 0, ID: "a", Name: "first"}}}
	stream <- &StreamChunk{ToolCalls: []ToolCallDelta{{Index: 1, Arguments: `"v"}`}}}
	stream <- &StreamChunk{ToolCalls: []ToolCallDelta{{Index: 2, Arguments: `{}`}}}
	stream <- &StreamChunk{Content: " reply "}
	stream <- &StreamChunk{FinishReason: "tool_calls"}
	close(stream)

	resp, err := Accumulate(stream)
	require.NoError(t, err)
	assert.Equal(t, "reply", resp.Content)
	assert.Equal(t, "think", resp.Reasoning)
	assert.Equal(t, "tool_calls", resp.FinishReason)

	// index 2 has no name and is dropped
	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, "first", resp.ToolCalls[0].Name)
	assert.Equal(t, "second", resp.ToolCalls[1].Name)
	assert.Equal(t, "v", resp.ToolCalls[1].Arguments["k"])
}

func TestAccumulate_Error(t *testing.T) {
	stream := make(chan *StreamChunk, 3)
	stream <- &StreamChunk{Content: "partial"}
	stream <- &StreamChunk{Error: errors.New("reset")}
	stream <- &StreamChunk{Content: "ignored"}
	close(stream)

	_, err := Accumulate(stream)
	assert.EqualError(t, err, "reset")
}

func TestDecodeArguments(t *testing.T) {
	assert.Empty(t, DecodeArguments(""))
	assert.Empty(t, DecodeArguments("not json"))
	assert.Empty(t, DecodeArguments("[1,2]"))
	assert.Equal(t, map[string]interface{}{"x": float64(1)}, DecodeArguments(`{"x":1}`))
}
