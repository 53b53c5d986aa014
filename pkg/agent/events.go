package agent

import (
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

// emit stamps the run id on event and hands it to the hook and the sink.
// Observers cannot break the run: panics are recovered and logged.
func (r *run) emit(event *types.AgentEvent) {
	if event == nil {
		return
	}
	event.RunID = r.id

	if r.hooks.OnEvent != nil {
		func() {
			defer r.recoverHook("OnEvent " + event.Name())
			r.hooks.OnEvent(event.Name(), event.Payload)
		}()
	}
	if r.a.sink != nil {
		func() {
			defer r.recoverHook("sink " + event.Name())
			r.a.sink.Emit(r.ctx, event)
		}()
	}
}

func (r *run) recoverHook(what string) {
	if p := recover(); p != nil {
		agentDebugLog.Warnf("run %s: %s panicked: %v", r.id, what, p)
	}
}

func (r *run) stepStart(name string, args map[string]interface{}) {
	if r.hooks.OnStepStart != nil {
		func() {
			defer r.recoverHook("OnStepStart " + name)
			r.hooks.OnStepStart(r.step, name, args)
		}()
	}
	r.emit(types.NewStepStartEvent(r.step, name, args))
}

func (r *run) stepEnd(name string, result types.ToolResult) {
	if r.hooks.OnStepEnd != nil {
		func() {
			defer r.recoverHook("OnStepEnd " + name)
			r.hooks.OnStepEnd(r.step, name, result)
		}()
	}
	r.emit(types.NewStepEndEvent(r.step, name, result))
}

// summarize emits a decision_summary with the current transcript size.
func (r *run) summarize(summary string) {
	r.emit(types.NewDecisionSummaryEvent(r.round, summary, r.a.tokenizer.CountMessagesTokens(r.messages)))
}
