// Package agent provides the orchestration loop that drives a reasoning
// service through rounds of tool calls.
//
// The DefaultAgent is available directly from this package for simple usage:
//
//	registry := skills.NewRegistry(skills.WithTools(android.Tools(devices, android.ToolOptions{})...))
//	ag := agent.NewDefaultAgent(provider, registry, agent.WithMaxRounds(40))
//	res, err := ag.Chat(ctx, "请在小红书发布长沙旅游帖子", nil, agent.Hooks{})
//
// One Chat call moves through planning, executing and optionally review
// before returning in waiting_user, completed or failed. Tool calls are
// dispatched strictly in order and their outcomes are appended to the
// conversation before the next reasoning round.
//
// Subpackages:
//   - heuristics: pure checks used to adapt strategy (game mode, user input)
//   - prompts: system prompt and supervisor-authored messages
//   - tools: the Tool interface and argument coercion
package agent

import (
	"context"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/workflow"
)

// Agent runs one user turn at a time.
type Agent interface {
	// Chat runs message against the reasoning service, seeded with history.
	//
	// The returned error is reserved for misuse such as a registry already
	// held by another chat. Failures during the run come back as a
	// ChatResult in StateFailed so the caller keeps the conversation.
	Chat(ctx context.Context, message string, history []types.Message, hooks Hooks) (*ChatResult, error)
}

// Hooks are synchronous observers. A panicking hook is recovered and
// logged; hooks never influence control flow.
type Hooks struct {
	// OnStepStart is called immediately before a skill is dispatched.
	OnStepStart func(index int, name string, args map[string]interface{})

	// OnStepEnd is called immediately after a skill returns.
	OnStepEnd func(index int, name string, result types.ToolResult)

	// OnEvent receives state_change, plan_created, thinking, tool_insight,
	// decision_summary and the other event types.
	OnEvent func(name string, payload map[string]interface{})
}

// EventSink receives every event of every run. Implementations must not
// block for long and must swallow their own errors.
type EventSink interface {
	Emit(ctx context.Context, event *types.AgentEvent)
}

// TraceKind labels a trace entry.
type TraceKind string

const (
	TraceToolCall   TraceKind = "tool_call"
	TraceToolResult TraceKind = "tool_result"
)

// TraceEntry is one dispatch record. Calls and results alternate.
type TraceEntry struct {
	Type      TraceKind              `json:"type"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
	Result    types.ToolResult       `json:"result,omitempty"`
}

// ChatResult is what one Chat call returns.
type ChatResult struct {
	RunID string `json:"run_id"`
	Reply string `json:"reply"`
	State State  `json:"state"`

	// Messages is the full conversation, suitable as history for the next call.
	Messages []types.Message `json:"messages"`
	Trace    []TraceEntry    `json:"trace"`
	Plan     *workflow.Plan  `json:"plan,omitempty"`

	RequiresUserInput bool `json:"requires_user_input,omitempty"`
}
