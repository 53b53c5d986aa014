package types

import "encoding/json"

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// ContentPartType distinguishes text parts from image parts in multimodal messages.
type ContentPartType string

const (
	ContentPartText  ContentPartType = "text"
	ContentPartImage ContentPartType = "image_url"
)

// ContentPart is one element of a multimodal user message.
type ContentPart struct {
	Type ContentPartType `json:"type"`
	Text string          `json:"text,omitempty"`
	// ImageURL holds either a remote URL or a data URI.
	ImageURL string `json:"image_url,omitempty"`
}

// ToolCall is a tool invocation requested by the reasoning service.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`

	// RawArguments keeps the undecoded argument string as received. It is
	// replayed verbatim to the provider so the transcript stays faithful.
	RawArguments string `json:"raw_arguments,omitempty"`
}

// Message is a single entry of the conversation transcript.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`

	// Parts, when non-empty, replaces Content for multimodal user turns.
	Parts []ContentPart `json:"parts,omitempty"`

	// ToolCalls is set on assistant messages that request tool execution.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool message to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// Name is the tool name for tool messages.
	Name string `json:"name,omitempty"`
}

// NewMessage creates a plain text message with the given role.
func NewMessage(role MessageRole, content string) Message {
	return Message{Role: role, Content: content}
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates an assistant message, optionally carrying tool calls.
func NewAssistantMessage(content string, calls ...ToolCall) Message {
	m := NewMessage(RoleAssistant, content)
	if len(calls) > 0 {
		m.ToolCalls = append([]ToolCall(nil), calls...)
	}
	return m
}

// NewToolMessage creates the tool message answering callID.
func NewToolMessage(callID, name, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, Name: name}
}

// NewImageMessage creates a user message with a caption and one image.
func NewImageMessage(caption, imageURL string) Message {
	return Message{
		Role:    RoleUser,
		Content: caption,
		Parts: []ContentPart{
			{Type: ContentPartText, Text: caption},
			{Type: ContentPartImage, ImageURL: imageURL},
		},
	}
}

// HasImage reports whether the message carries an image part.
func (m Message) HasImage() bool {
	for _, p := range m.Parts {
		if p.Type == ContentPartImage {
			return true
		}
	}
	return false
}

// ArgumentsJSON returns the call arguments encoded as JSON, preferring the
// raw string the provider sent.
func (c ToolCall) ArgumentsJSON() string {
	if c.RawArguments != "" {
		return c.RawArguments
	}
	if c.Arguments == nil {
		return "{}"
	}
	b, err := json.Marshal(c.Arguments)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// CloneMessages returns a copy of msgs whose slices can be appended to
// independently of the original.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}
