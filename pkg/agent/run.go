package agent

import (
	"context"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent/prompts"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/workflow"
)

// environment holds the heuristic flags of one run. It is never carried
// across Chat calls.
type environment struct {
	gameMode          bool
	screenW, screenH  int
	emptySearchStreak int
	lastScreenshot    string
}

// loginProgress records which autopilot actions have fired. Each fires at
// most once per run.
type loginProgress struct {
	phoneAttempted     bool
	phoneFilled        bool
	agreementAttempted bool
	codeAttempted      bool
}

// run is the mutable state of one Chat call. Only the loop goroutine
// touches it.
type run struct {
	a     *DefaultAgent
	ctx   context.Context
	hooks Hooks
	id    string

	userMessage string
	vision      bool
	messages    []types.Message
	trace       []TraceEntry
	state       State
	plan        *workflow.Plan
	mobileOnly  bool
	step        int
	round       int

	env   environment
	login loginProgress
}

func (a *DefaultAgent) newRun(ctx context.Context, hooks Hooks) *run {
	return &run{
		a:      a,
		ctx:    ctx,
		hooks:  hooks,
		id:     a.newRunID(),
		vision: a.SupportsVision(),
	}
}

// seed builds the opening conversation. System messages from history are
// dropped since every run writes its own.
func (r *run) seed(message string, history []types.Message) {
	r.userMessage = message
	r.messages = make([]types.Message, 0, len(history)+4)
	r.messages = append(r.messages, types.NewSystemMessage(r.a.buildSystemPrompt(r.vision)))
	for _, m := range history {
		if m.Role == types.RoleSystem {
			continue
		}
		r.messages = append(r.messages, m)
	}
	r.messages = append(r.messages, types.NewUserMessage(message))
}

func (r *run) addSystem(content string) {
	r.messages = append(r.messages, types.NewSystemMessage(content))
}

// transition moves the state machine and emits state_change. An illegal
// transition is a bug in the loop; it is logged and the run is failed.
func (r *run) transition(to State) {
	from := r.state
	if !from.CanTransition(to) {
		err := &ErrIllegalTransition{From: from, To: to}
		agentDebugLog.Errorf("run %s: %v", r.id, err)
		r.emit(types.NewErrorEvent(err))
		to = StateFailed
	}
	r.state = to
	r.emit(types.NewStateChangeEvent(string(from), string(to)))
}

// finish transitions to a final state and builds the result.
func (r *run) finish(to State, reply string) *ChatResult {
	r.transition(to)
	return &ChatResult{
		RunID:             r.id,
		Reply:             reply,
		State:             r.state,
		Messages:          r.messages,
		Trace:             r.trace,
		Plan:              r.plan,
		RequiresUserInput: r.state == StateWaitingUser,
	}
}

// fail ends the run after a fatal error.
func (r *run) fail(err error) *ChatResult {
	agentDebugLog.Errorf("run %s failed: %v", r.id, err)
	r.emit(types.NewErrorEvent(err))
	return r.finish(StateFailed, prompts.ExecutionFailedReply)
}
