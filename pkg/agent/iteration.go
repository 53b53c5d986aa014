package agent

import (
	"fmt"
	"strings"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent/heuristics"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent/prompts"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/llm"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

// skippedMessage fills the tool slots of calls that never ran because an
// earlier call in the same turn was fatal.
const skippedMessage = "skipped: round aborted"

// executeIteration performs one reasoning round. It returns a result when
// the run is over and nil when the loop should continue.
func (r *run) executeIteration() *ChatResult {
	r.summarize("正在分析任务，决定下一步行动...")

	resp, err := r.a.provider.Complete(r.ctx, &llm.ChatRequest{
		Messages: r.messages,
		Tools:    r.a.registry.Catalog(),
	})
	if err != nil {
		return r.fail(fmt.Errorf("reasoning round %d: %w", r.round, err))
	}

	if thinking := heuristics.ReasoningText(resp.Reasoning, resp.Content, resp.HasToolCalls()); thinking != "" {
		r.emit(types.NewThinkingEvent(r.round, thinking))
	}

	if !resp.HasToolCalls() {
		return r.handleReply(strings.TrimSpace(resp.Content))
	}

	names := make([]string, len(resp.ToolCalls))
	for i, call := range resp.ToolCalls {
		names[i] = call.Name
	}
	r.summarize("决定调用: " + strings.Join(names, ", "))

	r.messages = append(r.messages, types.NewAssistantMessage(resp.Content, resp.ToolCalls...))
	for i, call := range resp.ToolCalls {
		if err := r.executeToolCall(call); err != nil {
			r.skipCalls(resp.ToolCalls[i+1:])
			return r.fail(err)
		}
	}
	return nil
}

// handleReply decides what a tool-free response means: a question for the
// user, silence while plan steps remain, or the final answer.
func (r *run) handleReply(reply string) *ChatResult {
	if !r.plan.IsGeneral() {
		r.summarize(r.plan.Summarize())
	}

	if heuristics.NeedsUserInput(reply) {
		r.messages = append(r.messages, types.NewAssistantMessage(reply))
		return r.finish(StateWaitingUser, reply)
	}

	if reply == "" && !r.plan.IsGeneral() {
		if pending := r.plan.PendingSteps(); len(pending) > 0 {
			titles := make([]string, len(pending))
			for i, s := range pending {
				titles[i] = s.Title
			}
			r.summarize("回复为空，任务未完成，继续执行: " + titles[0])
			r.addSystem(prompts.BuildNudgeMessage(titles))
			return nil
		}
	}

	if reply != "" {
		r.messages = append(r.messages, types.NewAssistantMessage(reply))
	}
	return r.finish(StateCompleted, reply)
}

// skipCalls answers calls left over after a fatal error so every tool call
// in the transcript keeps its tool message.
func (r *run) skipCalls(calls []types.ToolCall) {
	for _, call := range calls {
		res := types.Fail(types.ErrUnknown, skippedMessage)
		r.messages = append(r.messages, types.NewToolMessage(call.ID, call.Name, res.JSON()))
	}
}
