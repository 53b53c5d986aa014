package headless

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/logging"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

var headlessLog *logging.Logger

func init() {
	var err error
	headlessLog, err = logging.NewLogger("headless")
	if err != nil {
		headlessLog.Warnf("Failed to initialize headless logger, using stderr fallback: %v", err)
	}
}

const (
	statusRunning     = "running"
	statusSuccess     = "success"
	statusFailed      = "failed"
	statusWaitingUser = "waiting_user"
)

// ErrRunFailed is returned by Run when the agent finished in the failed state.
var ErrRunFailed = errors.New("run failed")

// Executor runs one task without a human at the keyboard.
type Executor struct {
	agent          agent.Agent
	config         *RunConfig
	artifactWriter *ArtifactWriter
	hooks          agent.Hooks
	history        []types.Message

	summary *ExecutionSummary
}

// Option configures an Executor.
type Option func(*Executor)

// WithHooks sets the observers handed to the agent, typically a terminal
// renderer.
func WithHooks(h agent.Hooks) Option {
	return func(e *Executor) {
		e.hooks = h
	}
}

// WithHistory seeds the run with an earlier conversation.
func WithHistory(history []types.Message) Option {
	return func(e *Executor) {
		e.history = types.CloneMessages(history)
	}
}

// NewExecutor creates a new headless executor with a pre-configured agent
func NewExecutor(ag agent.Agent, cfg *RunConfig, opts ...Option) (*Executor, error) {
	if ag == nil {
		return nil, fmt.Errorf("agent is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("run configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	e := &Executor{
		agent:          ag,
		config:         cfg,
		artifactWriter: NewArtifactWriter(cfg.Artifacts.OutputDir, cfg.Artifacts),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Summary returns the summary of the last Run, or nil before the first.
func (e *Executor) Summary() *ExecutionSummary {
	return e.summary
}

// Run executes the task once. A run that ends waiting for the user is not
// an error; one that ends failed returns ErrRunFailed along with the result.
func (e *Executor) Run(ctx context.Context) (*agent.ChatResult, error) {
	e.summary = &ExecutionSummary{
		Task:      e.config.Task,
		Status:    statusRunning,
		StartTime: time.Now(),
	}
	headlessLog.Infof("Starting execution: %s", e.config.Task)

	runCtx := ctx
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	res, err := e.agent.Chat(runCtx, e.config.Task, e.history, e.hooks)
	e.record(res, err)

	if e.config.Artifacts.Enabled {
		if writeErr := e.artifactWriter.WriteAll(e.summary); writeErr != nil {
			headlessLog.Errorf("Failed to write artifacts: %v", writeErr)
		} else {
			headlessLog.Infof("Artifacts written to %s", e.artifactWriter.Dir(e.summary))
		}
	}

	if err != nil {
		return nil, err
	}
	if res.State == agent.StateFailed {
		return res, fmt.Errorf("%w: %s", ErrRunFailed, res.Reply)
	}
	return res, nil
}

// ArtifactDir returns where the last run's artifacts went.
func (e *Executor) ArtifactDir() string {
	if e.summary == nil {
		return ""
	}
	return e.artifactWriter.Dir(e.summary)
}

func (e *Executor) record(res *agent.ChatResult, err error) {
	s := e.summary
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)

	if err != nil {
		s.Status = statusFailed
		s.Error = err.Error()
		headlessLog.Errorf("Execution failed: %v", err)
		return
	}

	s.RunID = res.RunID
	s.State = res.State
	s.Reply = res.Reply
	s.Plan = res.Plan
	s.Trace = res.Trace
	s.Metrics.Messages = len(res.Messages)

	for _, entry := range res.Trace {
		if entry.Type != agent.TraceToolResult {
			continue
		}
		step := StepRecord{Name: entry.Name, Success: entry.Result.Success(), ErrorKind: entry.Result.ErrorKind()}
		s.Steps = append(s.Steps, step)
		s.Metrics.Steps++
		if !step.Success {
			s.Metrics.FailedSteps++
		}
	}

	switch res.State {
	case agent.StateCompleted:
		s.Status = statusSuccess
	case agent.StateWaitingUser:
		s.Status = statusWaitingUser
	default:
		s.Status = statusFailed
		s.Error = res.Reply
	}
	headlessLog.Infof("Execution finished: run=%s state=%s steps=%d", res.RunID, res.State, s.Metrics.Steps)
}
