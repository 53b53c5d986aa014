// Package llm provides abstractions for the reasoning service.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("DASHSCOPE_API_KEY"),
//	    openai.WithModel("qwen3.5-plus"),
//	    openai.WithBaseURL(config.DashScopeBaseURL),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := provider.Complete(ctx, &llm.ChatRequest{
//	    Messages: []types.Message{types.NewUserMessage("hello")},
//	    Tools:    registry.Catalog(),
//	})
package llm

import (
	"context"
	"strings"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

// ToolSpec is one entry of the skill catalog presented to the model.
type ToolSpec struct {
	Name        string
	Description string
	// Parameters is a JSON schema object.
	Parameters map[string]interface{}
}

// ChatRequest is a single decision request. A nil or empty Tools slice asks
// for a plain text answer.
type ChatRequest struct {
	Messages []types.Message
	Tools    []ToolSpec
}

// ChatResponse is the accumulated answer of one decision request.
type ChatResponse struct {
	Content string
	// Reasoning carries reasoning_content deltas and inline <think> blocks.
	Reasoning    string
	ToolCalls    []types.ToolCall
	FinishReason string
}

// HasToolCalls reports whether the model asked for any tool invocation.
func (r *ChatResponse) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// ModelInfo describes the capabilities of the configured model.
type ModelInfo struct {
	Provider          string
	Name              string
	SupportsStreaming bool
	SupportsVision    bool
	MaxTokens         int
	Metadata          map[string]interface{}
}

// Provider defines the interface for reasoning service integrations.
//
// Providers only speak to the service. Turning chunks into agent events,
// keeping the conversation and dispatching tools is the agent's job.
type Provider interface {
	// StreamCompletion sends the request and streams back response chunks.
	//
	// The channel is closed when streaming completes or fails. Stream-time
	// errors arrive as chunks with Error set; the returned error is only for
	// failures to start the stream.
	StreamCompletion(ctx context.Context, req *ChatRequest) (<-chan *StreamChunk, error)

	// Complete drains StreamCompletion into a single response.
	Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// GetModelInfo returns information about the model being used.
	GetModelInfo() *ModelInfo

	// GetModel returns the model name being used.
	GetModel() string
}

var visionModelKeywords = []string{
	"qwen-vl",
	"qwen2.5-vl",
	"qwen3.5-plus",
	"gpt-4o",
	"gpt-4-vision",
	"gemini",
}

// ModelSupportsVision guesses image input support from the model name.
func ModelSupportsVision(model string) bool {
	lower := strings.ToLower(model)
	for _, kw := range visionModelKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
