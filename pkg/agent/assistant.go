package agent

import (
	"encoding/json"
	"strings"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent/prompts"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/llm"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/workflow"
)

// runAgentLoop drives the run through planning, the bounded executing
// rounds and, if the budget runs out, review.
func (r *run) runAgentLoop() *ChatResult {
	r.transition(StatePlanning)
	r.planTask()
	r.transition(StateExecuting)

	if r.mobileOnly {
		if res := r.bootstrapMobile(); res != nil {
			return res
		}
	}

	for r.round = 1; r.round <= r.a.maxRounds; r.round++ {
		// Check if context was canceled between rounds
		if err := r.ctx.Err(); err != nil {
			return r.fail(err)
		}
		if res := r.executeIteration(); res != nil {
			return res
		}
	}

	return r.review()
}

// planTask records the plan for the run. A publishing intent gets the full
// workflow plan and restricts dispatch to Android skills; anything else gets
// the generic plan, which is only reported.
func (r *run) planTask() {
	if !workflow.DetectXHSIntent(r.userMessage) {
		r.plan = workflow.GeneralPlan()
		r.emit(types.NewPlanCreatedEvent(r.plan.Clone()))
		return
	}

	r.plan = workflow.CreatePlan(r.userMessage)
	r.mobileOnly = r.plan.MobileOnly
	if r.mobileOnly {
		r.a.registry.SetMobileOnly(true)
	}
	r.emit(types.NewPlanCreatedEvent(r.plan.Clone()))

	encoded, err := json.Marshal(r.plan)
	if err != nil {
		agentDebugLog.Warnf("run %s: failed to encode plan: %v", r.id, err)
	}
	r.addSystem(prompts.BuildPlanMessage(string(encoded)))
	if r.mobileOnly {
		r.addSystem(prompts.MobileOnlyPrompt)
	}
}

// review spends exactly one tool-free call asking for a closing reply.
func (r *run) review() *ChatResult {
	r.transition(StateReview)
	r.addSystem(prompts.ReviewPrompt)

	resp, err := r.a.provider.Complete(r.ctx, &llm.ChatRequest{Messages: r.messages})
	if err != nil {
		agentDebugLog.Warnf("run %s: review call failed: %v", r.id, err)
		r.emit(types.NewErrorEvent(err))
		return r.finish(StateFailed, prompts.FailedReply)
	}
	if resp.Reasoning != "" {
		r.emit(types.NewThinkingEvent(r.round, resp.Reasoning))
	}

	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		return r.finish(StateFailed, prompts.FailedReply)
	}
	r.messages = append(r.messages, types.NewAssistantMessage(reply))
	return r.finish(StateCompleted, reply)
}
