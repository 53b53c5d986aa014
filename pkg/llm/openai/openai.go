// Package openai provides an OpenAI-compatible reasoning service provider.
//
// It talks to any endpoint implementing /chat/completions with tools, which
// includes DashScope compatible mode, DeepSeek and local gateways.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/llm"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/llm/parser"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/openai/openai-go"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model option is given.
	DefaultModel = "qwen3.5-plus"

	defaultTimeout = 120 * time.Second
)

// Provider implements llm.Provider for OpenAI-compatible APIs.
type Provider struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	vision     *bool
	modelInfo  *llm.ModelInfo
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// WithVision forces image input support on or off instead of guessing it
// from the model name.
func WithVision(enabled bool) ProviderOption {
	return func(p *Provider) {
		p.vision = &enabled
	}
}

// NewProvider creates a new provider with the given API key.
//
// If apiKey is empty, OPENAI_API_KEY is used. If no base URL option is
// given, OPENAI_BASE_URL is consulted before falling back to DefaultBaseURL.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	p := &Provider{
		model:      DefaultModel,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = strings.TrimRight(envBaseURL, "/")
		}
	}

	supportsVision := llm.ModelSupportsVision(p.model)
	if p.vision != nil {
		supportsVision = *p.vision
	}
	p.modelInfo = &llm.ModelInfo{
		Provider:          "openai-compatible",
		Name:              p.model,
		SupportsStreaming: true,
		SupportsVision:    supportsVision,
		MaxTokens:         8192,
		Metadata:          map[string]interface{}{},
	}
	if p.baseURL != DefaultBaseURL {
		p.modelInfo.Metadata["base_url"] = p.baseURL
	}
	return p, nil
}

// chatRequestBody is the wire body for /chat/completions. Messages and tools
// use the openai-go param types so their JSON matches the official schema.
type chatRequestBody struct {
	Model    string                                   `json:"model"`
	Messages []openai.ChatCompletionMessageParamUnion `json:"messages"`
	Tools    []openai.ChatCompletionToolParam         `json:"tools,omitempty"`
	Stream   bool                                     `json:"stream"`
}

// StreamCompletion sends the request and streams back response chunks.
//
// Raw HTTP streaming is used instead of the SDK stream so that SSE comments
// and vendor fields such as reasoning_content survive.
func (p *Provider) StreamCompletion(ctx context.Context, req *llm.ChatRequest) (<-chan *llm.StreamChunk, error) {
	resp, err := p.sendStreamRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	chunks := make(chan *llm.StreamChunk, 10)
	go p.processStreamResponse(ctx, resp, chunks)
	return chunks, nil
}

func (p *Provider) sendStreamRequest(ctx context.Context, req *llm.ChatRequest) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil chat request")
	}
	body := chatRequestBody{
		Model:    p.model,
		Messages: ConvertMessages(req.Messages),
		Tools:    ConvertTools(req.Tools),
		Stream:   true,
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		errBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if readErr != nil {
			return nil, fmt.Errorf("API request failed with status %d (failed to read error body: %w)", resp.StatusCode, readErr)
		}
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))
	}
	return resp, nil
}

// sseChunk is the subset of a chat.completion.chunk the provider reads.
type sseChunk struct {
	Choices []struct {
		Delta struct {
			Role             string `json:"role"`
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
			ToolCalls        []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (p *Provider) processStreamResponse(ctx context.Context, resp *http.Response, chunks chan<- *llm.StreamChunk) {
	defer close(chunks)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 4<<20)
	thinking := parser.NewThinkingParser()

	for scanner.Scan() {
		line := scanner.Text()
		if !isDataLine(line) {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			if p.flush(ctx, thinking, chunks) {
				p.send(ctx, &llm.StreamChunk{Finished: true}, chunks)
			}
			return
		}
		if !p.processSSEChunk(ctx, data, thinking, chunks) {
			return
		}
	}

	if !p.flush(ctx, thinking, chunks) {
		return
	}
	if err := scanner.Err(); err != nil {
		p.send(ctx, &llm.StreamChunk{Error: fmt.Errorf("stream read error: %w", err)}, chunks)
	}
}

func isDataLine(line string) bool {
	return line != "" && !strings.HasPrefix(line, ":") && strings.HasPrefix(line, "data:")
}

func (p *Provider) flush(ctx context.Context, thinking *parser.ThinkingParser, chunks chan<- *llm.StreamChunk) bool {
	th, msg := thinking.Flush()
	return p.send(ctx, th, chunks) && p.send(ctx, msg, chunks)
}

// send delivers chunk unless ctx is done. A nil chunk is a no-op.
func (p *Provider) send(ctx context.Context, chunk *llm.StreamChunk, chunks chan<- *llm.StreamChunk) bool {
	if chunk == nil {
		return true
	}
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		select {
		case chunks <- &llm.StreamChunk{Error: ctx.Err()}:
		default:
		}
		return false
	}
}

func (p *Provider) processSSEChunk(ctx context.Context, data string, thinking *parser.ThinkingParser, chunks chan<- *llm.StreamChunk) bool {
	var chunk sseChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return true // skip malformed chunks
	}
	if len(chunk.Choices) == 0 {
		return true
	}

	choice := chunk.Choices[0]
	delta := choice.Delta

	if delta.ReasoningContent != "" {
		if !p.send(ctx, &llm.StreamChunk{Role: delta.Role, Content: delta.ReasoningContent, Type: llm.ContentTypeThinking}, chunks) {
			return false
		}
	}

	if delta.Content != "" {
		th, msg := thinking.Parse(delta.Content)
		if !p.send(ctx, th, chunks) || !p.send(ctx, msg, chunks) {
			return false
		}
	}

	if len(delta.ToolCalls) > 0 {
		out := &llm.StreamChunk{Role: delta.Role, Type: llm.ContentTypeMessage}
		for _, tc := range delta.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, llm.ToolCallDelta{
				Index:     tc.Index,
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		if !p.send(ctx, out, chunks) {
			return false
		}
	}

	if choice.FinishReason != nil && *choice.FinishReason != "" {
		return p.send(ctx, &llm.StreamChunk{FinishReason: *choice.FinishReason}, chunks)
	}
	return true
}

// Complete sends the request and accumulates the full response.
func (p *Provider) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	stream, err := p.StreamCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	return llm.Accumulate(stream)
}

// GetModelInfo returns information about the model being used.
func (p *Provider) GetModelInfo() *llm.ModelInfo {
	return p.modelInfo
}

// GetModel returns the model name being used.
func (p *Provider) GetModel() string {
	return p.model
}

// GetBaseURL returns the base URL being used.
func (p *Provider) GetBaseURL() string {
	return p.baseURL
}

// ConvertMessages converts transcript messages to openai-go message params.
func ConvertMessages(messages []types.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case types.RoleAssistant:
			out = append(out, assistantMessage(msg))
		case types.RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			out = append(out, userMessage(msg))
		}
	}
	return out
}

func userMessage(msg types.Message) openai.ChatCompletionMessageParamUnion {
	if len(msg.Parts) == 0 {
		return openai.UserMessage(msg.Content)
	}
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(msg.Parts))
	for _, part := range msg.Parts {
		switch part.Type {
		case types.ContentPartImage:
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: part.ImageURL,
			}))
		default:
			parts = append(parts, openai.TextContentPart(part.Text))
		}
	}
	return openai.UserMessage(parts)
}

func assistantMessage(msg types.Message) openai.ChatCompletionMessageParamUnion {
	if len(msg.ToolCalls) == 0 {
		return openai.AssistantMessage(msg.Content)
	}
	param := openai.ChatCompletionAssistantMessageParam{}
	if msg.Content != "" {
		param.Content.OfString = openai.String(msg.Content)
	}
	for _, call := range msg.ToolCalls {
		param.ToolCalls = append(param.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: call.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Name,
				Arguments: call.ArgumentsJSON(),
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &param}
}

// ConvertTools converts the skill catalog to openai-go tool params.
func ConvertTools(specs []llm.ToolSpec) []openai.ChatCompletionToolParam {
	if len(specs) == 0 {
		return nil
	}
	out := make([]openai.ChatCompletionToolParam, 0, len(specs))
	for _, spec := range specs {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        spec.Name,
				Description: openai.String(spec.Description),
				Parameters:  openai.FunctionParameters(spec.Parameters),
			},
		})
	}
	return out
}
