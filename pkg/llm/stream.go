package llm

// ContentType separates visible answer text from model reasoning.
type ContentType string

const (
	ContentTypeMessage  ContentType = "message"
	ContentTypeThinking ContentType = "thinking"
)

// ToolCallDelta is a fragment of a streamed tool call. Fragments sharing an
// Index belong to the same call; Arguments fragments are concatenated.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// StreamChunk is one unit of a streamed response.
type StreamChunk struct {
	Role      string
	Content   string
	Type      ContentType
	ToolCalls []ToolCallDelta
	// FinishReason is set on the last choice chunk, e.g. "stop" or "tool_calls".
	FinishReason string
	Finished     bool
	Error        error
}

// IsError reports whether the chunk carries a stream error.
func (c *StreamChunk) IsError() bool {
	return c != nil && c.Error != nil
}

// IsThinking reports whether the chunk is reasoning text.
func (c *StreamChunk) IsThinking() bool {
	return c != nil && c.Type == ContentTypeThinking
}
