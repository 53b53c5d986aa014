package types

import "time"

// AgentEventType defines the type of event emitted by the orchestration loop.
type AgentEventType string

const (
	EventTypeStateChange     AgentEventType = "state_change"     // EventTypeStateChange indicates the run state moved.
	EventTypePlanCreated     AgentEventType = "plan_created"     // EventTypePlanCreated carries the plan chosen for the run.
	EventTypeThinking        AgentEventType = "thinking"         // EventTypeThinking carries reasoning text returned by the model.
	EventTypeToolInsight     AgentEventType = "tool_insight"     // EventTypeToolInsight summarizes a successful tool outcome.
	EventTypeDecisionSummary AgentEventType = "decision_summary" // EventTypeDecisionSummary is emitted before each reasoning round.
	EventTypeStepStart       AgentEventType = "step_start"       // EventTypeStepStart precedes a skill dispatch.
	EventTypeStepEnd         AgentEventType = "step_end"         // EventTypeStepEnd follows a skill dispatch.
	EventTypeAutopilot       AgentEventType = "autopilot"        // EventTypeAutopilot reports a deterministic login action.
	EventTypeGameMode        AgentEventType = "game_mode"        // EventTypeGameMode reports game-mode activation.
	EventTypeError           AgentEventType = "error"            // EventTypeError reports a failure retained for operators.
)

// AgentEvent is a side-channel notification. Events never influence control flow.
type AgentEvent struct {
	// Type indicates the kind of event.
	Type AgentEventType `json:"type"`

	// RunID identifies the Chat invocation that produced the event.
	RunID string `json:"run_id,omitempty"`

	// Payload holds event specific data.
	Payload map[string]interface{} `json:"payload,omitempty"`

	// Time is when the event was created.
	Time time.Time `json:"time"`
}

// NewEvent creates an event of the given type with a copy of payload.
func NewEvent(eventType AgentEventType, payload map[string]interface{}) *AgentEvent {
	p := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		p[k] = v
	}
	return &AgentEvent{Type: eventType, Payload: p, Time: time.Now()}
}

// NewStateChangeEvent creates a state change event.
func NewStateChangeEvent(from, to string) *AgentEvent {
	return NewEvent(EventTypeStateChange, map[string]interface{}{"from": from, "state": to})
}

// NewPlanCreatedEvent creates a plan event. plan is usually a *workflow.Plan.
func NewPlanCreatedEvent(plan interface{}) *AgentEvent {
	return NewEvent(EventTypePlanCreated, map[string]interface{}{"plan": plan})
}

// NewThinkingEvent creates a thinking event.
func NewThinkingEvent(round int, content string) *AgentEvent {
	return NewEvent(EventTypeThinking, map[string]interface{}{"round": round, "content": content})
}

// NewToolInsightEvent creates a tool insight event.
func NewToolInsightEvent(toolName, insight string) *AgentEvent {
	return NewEvent(EventTypeToolInsight, map[string]interface{}{"tool": toolName, "insight": insight})
}

// NewDecisionSummaryEvent creates a decision summary event.
func NewDecisionSummaryEvent(round int, summary string, transcriptTokens int) *AgentEvent {
	return NewEvent(EventTypeDecisionSummary, map[string]interface{}{
		"round":             round,
		"summary":           summary,
		"transcript_tokens": transcriptTokens,
	})
}

// NewStepStartEvent creates a step start event.
func NewStepStartEvent(index int, toolName string, args map[string]interface{}) *AgentEvent {
	return NewEvent(EventTypeStepStart, map[string]interface{}{"index": index, "tool": toolName, "args": args})
}

// NewStepEndEvent creates a step end event.
func NewStepEndEvent(index int, toolName string, result ToolResult) *AgentEvent {
	return NewEvent(EventTypeStepEnd, map[string]interface{}{
		"index":   index,
		"tool":    toolName,
		"success": result.Success(),
		"error":   result.ErrorKind(),
	})
}

// NewAutopilotEvent creates an autopilot event.
func NewAutopilotEvent(action, toolName string, result ToolResult) *AgentEvent {
	return NewEvent(EventTypeAutopilot, map[string]interface{}{
		"action":  action,
		"tool":    toolName,
		"success": result.Success(),
	})
}

// NewGameModeEvent creates a game mode activation event.
func NewGameModeEvent(reason string, width, height int) *AgentEvent {
	return NewEvent(EventTypeGameMode, map[string]interface{}{"reason": reason, "width": width, "height": height})
}

// NewErrorEvent creates an error event.
func NewErrorEvent(err error) *AgentEvent {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return NewEvent(EventTypeError, map[string]interface{}{"error": msg})
}

// Name returns the event type as a plain string, the form handed to onEvent hooks.
func (e *AgentEvent) Name() string {
	return string(e.Type)
}
