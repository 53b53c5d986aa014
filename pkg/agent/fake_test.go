package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent/tools"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/llm"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/llm/tokenizer"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/skills"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

// scriptedProvider answers Complete calls from a fixed script and keeps a
// copy of every request. An exhausted script answers with empty text.
type scriptedProvider struct {
	mu       sync.Mutex
	script   []scriptStep
	requests []*llm.ChatRequest
}

type scriptStep struct {
	resp *llm.ChatResponse
	err  error
}

func newScriptedProvider(steps ...scriptStep) *scriptedProvider {
	return &scriptedProvider{script: steps}
}

func reply(text string) scriptStep {
	return scriptStep{resp: &llm.ChatResponse{Content: text}}
}

func calls(tc ...types.ToolCall) scriptStep {
	return scriptStep{resp: &llm.ChatResponse{ToolCalls: tc}}
}

func failure(err error) scriptStep {
	return scriptStep{err: err}
}

func call(id, name string, args map[string]interface{}) types.ToolCall {
	return types.ToolCall{ID: id, Name: name, Arguments: args}
}

func (p *scriptedProvider) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, &llm.ChatRequest{
		Messages: types.CloneMessages(req.Messages),
		Tools:    req.Tools,
	})
	if len(p.script) == 0 {
		return &llm.ChatResponse{}, nil
	}
	step := p.script[0]
	p.script = p.script[1:]
	return step.resp, step.err
}

func (p *scriptedProvider) StreamCompletion(ctx context.Context, req *llm.ChatRequest) (<-chan *llm.StreamChunk, error) {
	return nil, errors.New("streaming not scripted")
}

func (p *scriptedProvider) GetModelInfo() *llm.ModelInfo {
	return &llm.ModelInfo{Provider: "scripted", Name: "scripted"}
}

func (p *scriptedProvider) GetModel() string { return "scripted" }

func (p *scriptedProvider) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// skill builds a test tool from a plain result function.
func skill(name string, fn func(args map[string]interface{}) types.ToolResult) *tools.Func {
	return &tools.Func{
		ToolName:        name,
		ToolDescription: name,
		Fn: func(ctx context.Context, args map[string]interface{}) (types.ToolResult, error) {
			return fn(args), nil
		},
	}
}

// recorder logs skill invocations in dispatch order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fatalErr struct{ msg string }

func (e fatalErr) Error() string { return e.msg }
func (e fatalErr) Fatal() bool   { return true }

// eventLog collects OnEvent notifications.
type eventLog struct {
	mu     sync.Mutex
	names  []string
	states []string
	byName map[string][]map[string]interface{}
}

func newEventLog() *eventLog {
	return &eventLog{byName: map[string][]map[string]interface{}{}}
}

func (l *eventLog) hook(name string, payload map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, name)
	l.byName[name] = append(l.byName[name], payload)
	if name == string(types.EventTypeStateChange) {
		l.states = append(l.states, payload["state"].(string))
	}
}

func (l *eventLog) count(name types.AgentEventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byName[string(name)])
}

func newTestAgent(p llm.Provider, reg *skills.Registry, opts ...AgentOption) *DefaultAgent {
	base := []AgentOption{WithTokenizer(&tokenizer.Tokenizer{}), WithVision(false)}
	return NewDefaultAgent(p, reg, append(base, opts...)...)
}
