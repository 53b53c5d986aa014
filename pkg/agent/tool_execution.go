package agent

import (
	"fmt"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent/prompts"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/skills"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

// dispatch runs one skill with hooks, step events and trace entries around
// it. A start call for a surface that already has a live session returns
// that session instead of opening a second one.
func (r *run) dispatch(name string, args map[string]interface{}) (types.ToolResult, error) {
	reg := r.a.registry
	args = reg.PrepareArgs(name, args)

	r.trace = append(r.trace, TraceEntry{Type: TraceToolCall, Name: name, Arguments: args})
	r.stepStart(name, args)

	var (
		result types.ToolResult
		err    error
	)
	if id := r.reusableSession(name); id != "" {
		agentDebugLog.Debugf("run %s: %s reuses session %s", r.id, name, id)
		result = types.OK(map[string]any{"session_id": id, "reused": true})
	} else {
		result, err = reg.Dispatch(r.ctx, name, args)
	}

	r.stepEnd(name, result)
	r.step++
	r.trace = append(r.trace, TraceEntry{Type: TraceToolResult, Name: name, Result: result})
	return result, err
}

// reusableSession returns the active session a start call should reuse, or
// "". Calls the policy rejects are left to the dispatcher.
func (r *run) reusableSession(name string) string {
	if !skills.IsStart(name) {
		return ""
	}
	if allowed, _ := r.a.registry.Policy().Allows(name); !allowed {
		return ""
	}
	return r.a.registry.ActiveSession(skills.KindOf(name))
}

// executeToolCall dispatches one model-requested call, records its outcome
// in the conversation and adapts to it. The returned error is fatal to the
// round.
func (r *run) executeToolCall(call types.ToolCall) error {
	result, err := r.dispatch(call.Name, call.Arguments)
	r.messages = append(r.messages, types.NewToolMessage(call.ID, call.Name, result.JSON()))
	if err != nil {
		return fmt.Errorf("%s: %w", call.Name, err)
	}

	if result.Success() {
		r.emitInsight(call.Name, call.Arguments, result)
	} else {
		r.correct(call.Name, result)
	}

	if err := r.adapt(call.Name, result); err != nil {
		return fmt.Errorf("after %s: %w", call.Name, err)
	}
	return nil
}

// correct appends the single corrective message for a failed call.
func (r *run) correct(name string, result types.ToolResult) {
	reason := result.ErrorKind()
	if reason == "" {
		reason = result.Message()
	}
	if reason == "" {
		reason = types.ErrUnknown
	}
	r.summarize(fmt.Sprintf("%s 失败: %s，自动调整策略", name, reason))

	rc := prompts.ErrorRecoveryContext{
		Type:      prompts.ErrorTypeToolFailure,
		ToolName:  name,
		ErrorKind: result.ErrorKind(),
		Message:   result.Message(),
	}
	switch result.ErrorKind() {
	case types.ErrUnknownSkill:
		rc.Type = prompts.ErrorTypeUnknownTool
		rc.AvailableTools = r.a.registry.Names()
	case types.ErrDisabled:
		rc.Type = prompts.ErrorTypePolicy
	}
	r.addSystem(prompts.BuildErrorRecoveryMessage(rc))
}
