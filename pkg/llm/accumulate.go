package llm

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

// Accumulate drains a chunk stream into a ChatResponse. Tool call fragments
// are joined by index and their arguments decoded; arguments that are not a
// JSON object are kept only in RawArguments.
func Accumulate(stream <-chan *StreamChunk) (*ChatResponse, error) {
	var (
		content   strings.Builder
		reasoning strings.Builder
		finish    string
		calls     = map[int]*types.ToolCall{}
	)

	for chunk := range stream {
		if chunk.IsError() {
			// drain so the producer goroutine can exit
			for range stream {
			}
			return nil, chunk.Error
		}
		if chunk.IsThinking() {
			reasoning.WriteString(chunk.Content)
		} else {
			content.WriteString(chunk.Content)
		}
		for _, d := range chunk.ToolCalls {
			call, ok := calls[d.Index]
			if !ok {
				call = &types.ToolCall{}
				calls[d.Index] = call
			}
			if d.ID != "" {
				call.ID = d.ID
			}
			if d.Name != "" {
				call.Name += d.Name
			}
			call.RawArguments += d.Arguments
		}
		if chunk.FinishReason != "" {
			finish = chunk.FinishReason
		}
	}

	resp := &ChatResponse{
		Content:      strings.TrimSpace(content.String()),
		Reasoning:    strings.TrimSpace(reasoning.String()),
		FinishReason: finish,
	}

	indexes := make([]int, 0, len(calls))
	for idx := range calls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		call := calls[idx]
		if call.Name == "" {
			continue
		}
		call.Arguments = DecodeArguments(call.RawArguments)
		resp.ToolCalls = append(resp.ToolCalls, *call)
	}
	return resp, nil
}

// DecodeArguments parses a tool call argument string. Empty or malformed
// input yields an empty map.
func DecodeArguments(raw string) map[string]interface{} {
	args := map[string]interface{}{}
	if strings.TrimSpace(raw) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]interface{}{}
	}
	return args
}
