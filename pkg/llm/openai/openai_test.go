package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/llm"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, lines []string, capture *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if capture != nil {
			raw, _ := io.ReadAll(r.Body)
			assert.NoError(t, json.Unmarshal(raw, capture))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, l := range lines {
			fmt.Fprintf(w, "%s\n\n", l)
		}
	}))
}

func newTestProvider(t *testing.T, url string, opts ...ProviderOption) *Provider {
	t.Helper()
	opts = append([]ProviderOption{WithBaseURL(url), WithModel("qwen3.5-plus")}, opts...)
	p, err := NewProvider("test-key", opts...)
	require.NoError(t, err)
	return p
}

func TestNewProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")

	_, err := NewProvider("")
	assert.Error(t, err)

	p, err := NewProvider("k", WithModel("deepseek-chat"))
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, p.GetBaseURL())
	assert.False(t, p.GetModelInfo().SupportsVision)

	p, err = NewProvider("k", WithModel("deepseek-chat"), WithVision(true), WithBaseURL("https://gw.example.com/v1/"))
	require.NoError(t, err)
	assert.True(t, p.GetModelInfo().SupportsVision)
	assert.Equal(t, "https://gw.example.com/v1", p.GetBaseURL())
	assert.Equal(t, "https://gw.example.com/v1", p.GetModelInfo().Metadata["base_url"])

	t.Setenv("OPENAI_BASE_URL", "https://env.example.com/v1")
	p, err = NewProvider("k")
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/v1", p.GetBaseURL())
	assert.Equal(t, DefaultModel, p.GetModel())
}

func TestComplete_TextWithReasoning(t *testing.T) {
	srv := sseServer(t, []string{
		": keep-alive",
		`data: {"choices":[{"delta":{"role":"assistant","reasoning_content":"先看截图"}}]}`,
		`data: {"choices":[{"delta":{"content":"<think>内联</think>已完成"}}]}`,
		`data: {"choices":[{"delta":{"content":"，请提供验证码？"},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
	}, nil)
	defer srv.Close()

	resp, err := newTestProvider(t, srv.URL).Complete(context.Background(), &llm.ChatRequest{
		Messages: []types.Message{types.NewUserMessage("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "已完成，请提供验证码？", resp.Content)
	assert.Equal(t, "先看截图内联", resp.Reasoning)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.False(t, resp.HasToolCalls())
}

func TestComplete_ToolCalls(t *testing.T) {
	var body map[string]interface{}
	srv := sseServer(t, []string{
		`data: {"choices":[{"delta":{"role":"assistant","tool_calls":[{"index":0,"id":"call_a","function":{"name":"android_list_devices","arguments":""}}]}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":1,"id":"call_b","function":{"name":"android_tap_coordinates","arguments":"{\"x\":[540],"}}]}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":1,"function":{"arguments":"\"y\":\"960\"}"}}]}}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
		`data: [DONE]`,
	}, &body)
	defer srv.Close()

	resp, err := newTestProvider(t, srv.URL).Complete(context.Background(), &llm.ChatRequest{
		Messages: []types.Message{
			types.NewSystemMessage("sys"),
			types.NewUserMessage("打开设备"),
		},
		Tools: []llm.ToolSpec{{
			Name:        "android_list_devices",
			Description: "List devices",
			Parameters:  map[string]interface{}{"type": "object", "properties": map[string]interface{}{}},
		}},
	})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 2)

	assert.Equal(t, "call_a", resp.ToolCalls[0].ID)
	assert.Equal(t, "android_list_devices", resp.ToolCalls[0].Name)
	assert.Empty(t, resp.ToolCalls[0].Arguments)

	assert.Equal(t, "call_b", resp.ToolCalls[1].ID)
	assert.Equal(t, `{"x":[540],"y":"960"}`, resp.ToolCalls[1].RawArguments)
	assert.Equal(t, []interface{}{float64(540)}, resp.ToolCalls[1].Arguments["x"])
	assert.Equal(t, "tool_calls", resp.FinishReason)

	assert.Equal(t, "qwen3.5-plus", body["model"])
	assert.Equal(t, true, body["stream"])
	tools := body["tools"].([]interface{})
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]interface{})["function"].(map[string]interface{})
	assert.Equal(t, "android_list_devices", fn["name"])
}

func TestComplete_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestProvider(t, srv.URL).Complete(context.Background(), &llm.ChatRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "bad key")
}

func TestConvertMessages(t *testing.T) {
	msgs := []types.Message{
		types.NewSystemMessage("rules"),
		types.NewAssistantMessage("", types.ToolCall{ID: "c1", Name: "android_dump_ui", Arguments: map[string]any{"max_chars": 100}}),
		types.NewToolMessage("c1", "android_dump_ui", `{"success":true}`),
		types.NewImageMessage("截图", "data:image/png;base64,AAAA"),
		{Role: "unknown", Content: "treated as user"},
	}

	raw, err := json.Marshal(ConvertMessages(msgs))
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 5)

	assert.Equal(t, "system", decoded[0]["role"])

	assert.Equal(t, "assistant", decoded[1]["role"])
	calls := decoded[1]["tool_calls"].([]interface{})
	call := calls[0].(map[string]interface{})
	assert.Equal(t, "c1", call["id"])
	assert.Equal(t, `{"max_chars":100}`, call["function"].(map[string]interface{})["arguments"])

	assert.Equal(t, "tool", decoded[2]["role"])
	assert.Equal(t, "c1", decoded[2]["tool_call_id"])

	assert.Equal(t, "user", decoded[3]["role"])
	parts := decoded[3]["content"].([]interface{})
	require.Len(t, parts, 2)
	assert.Equal(t, "image_url", parts[1].(map[string]interface{})["type"])
	assert.True(t, strings.HasPrefix(
		parts[1].(map[string]interface{})["image_url"].(map[string]interface{})["url"].(string),
		"data:image/png;base64,"))

	assert.Equal(t, "user", decoded[4]["role"])
}
