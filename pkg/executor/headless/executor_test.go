package headless

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/skills"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/workflow"
)

type stubAgent struct {
	result   *agent.ChatResult
	err      error
	message  string
	history  []types.Message
	deadline bool
	hooked   bool
}

func (s *stubAgent) Chat(ctx context.Context, message string, history []types.Message, hooks agent.Hooks) (*agent.ChatResult, error) {
	s.message = message
	s.history = history
	_, s.deadline = ctx.Deadline()
	s.hooked = hooks.OnEvent != nil
	return s.result, s.err
}

func newRunConfig(t *testing.T) *RunConfig {
	cfg := DefaultRunConfig()
	cfg.Task = "帮我在小红书发布一篇关于长沙旅游的帖子"
	cfg.Artifacts.OutputDir = t.TempDir()
	return cfg
}

func traceOf(steps ...types.ToolResult) []agent.TraceEntry {
	var trace []agent.TraceEntry
	for i, res := range steps {
		name := []string{"android_list_devices", "android_start", "android_dump_ui"}[i%3]
		trace = append(trace,
			agent.TraceEntry{Type: agent.TraceToolCall, Name: name},
			agent.TraceEntry{Type: agent.TraceToolResult, Name: name, Result: res},
		)
	}
	return trace
}

func TestNewExecutor_Validation(t *testing.T) {
	_, err := NewExecutor(nil, DefaultRunConfig())
	assert.Error(t, err)

	_, err = NewExecutor(&stubAgent{}, nil)
	assert.Error(t, err)

	_, err = NewExecutor(&stubAgent{}, DefaultRunConfig())
	assert.ErrorContains(t, err, "task description is required")
}

func TestExecutor_Success(t *testing.T) {
	plan := workflow.CreatePlan("帮我在小红书发布一篇关于长沙旅游的帖子")
	plan.UpdateStep(workflow.StepOpenXHS, workflow.StatusCompleted, "已打开手机端小红书")

	ag := &stubAgent{result: &agent.ChatResult{
		RunID:    "run-1",
		Reply:    "已发布",
		State:    agent.StateCompleted,
		Plan:     plan,
		Messages: make([]types.Message, 5),
		Trace: traceOf(
			types.OK(map[string]any{"devices": []string{"emulator-5554"}}),
			types.Fail(types.ErrNoDevice, "no device"),
		),
	}}
	cfg := newRunConfig(t)
	history := []types.Message{types.NewUserMessage("earlier")}

	e, err := NewExecutor(ag, cfg, WithHistory(history), WithHooks(agent.Hooks{OnEvent: func(string, map[string]interface{}) {}}))
	require.NoError(t, err)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "已发布", res.Reply)

	assert.Equal(t, cfg.Task, ag.message)
	assert.Len(t, ag.history, 1)
	assert.True(t, ag.deadline)
	assert.True(t, ag.hooked)

	s := e.Summary()
	assert.Equal(t, statusSuccess, s.Status)
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, 2, s.Metrics.Steps)
	assert.Equal(t, 1, s.Metrics.FailedSteps)
	assert.Equal(t, 5, s.Metrics.Messages)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, types.ErrNoDevice, s.Steps[1].ErrorKind)

	dir := e.ArtifactDir()
	assert.Equal(t, filepath.Join(cfg.Artifacts.OutputDir, "run-1"), dir)

	raw, err := os.ReadFile(filepath.Join(dir, "execution.json"))
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "success", decoded["status"])
	assert.Equal(t, "completed", decoded["state"])

	md, err := os.ReadFile(filepath.Join(dir, "summary.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "已发布")
	assert.Contains(t, string(md), "- [x] 手机端打开小红书 (已打开手机端小红书)")
	assert.Contains(t, string(md), "`android_start` ❌ no_device")
}

func TestExecutor_WaitingUserIsNotAnError(t *testing.T) {
	ag := &stubAgent{result: &agent.ChatResult{
		RunID:             "run-2",
		Reply:             "请提供验证码",
		State:             agent.StateWaitingUser,
		RequiresUserInput: true,
	}}
	cfg := newRunConfig(t)
	cfg.Artifacts.Markdown = false

	e, err := NewExecutor(ag, cfg)
	require.NoError(t, err)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.RequiresUserInput)
	assert.Equal(t, statusWaitingUser, e.Summary().Status)

	assert.FileExists(t, filepath.Join(e.ArtifactDir(), "execution.json"))
	assert.NoFileExists(t, filepath.Join(e.ArtifactDir(), "summary.md"))
}

func TestExecutor_FailedState(t *testing.T) {
	ag := &stubAgent{result: &agent.ChatResult{
		RunID: "run-3",
		Reply: "执行失败",
		State: agent.StateFailed,
	}}
	cfg := newRunConfig(t)
	cfg.Timeout = 0
	cfg.Artifacts.Enabled = false

	e, err := NewExecutor(ag, cfg)
	require.NoError(t, err)

	res, err := e.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunFailed)
	require.NotNil(t, res)
	assert.False(t, ag.deadline)

	s := e.Summary()
	assert.Equal(t, statusFailed, s.Status)
	assert.Equal(t, "执行失败", s.Error)
	assert.NoDirExists(t, e.ArtifactDir())
}

func TestExecutor_AgentError(t *testing.T) {
	ag := &stubAgent{err: skills.ErrRegistryBusy}
	cfg := newRunConfig(t)
	cfg.Timeout = time.Minute

	e, err := NewExecutor(ag, cfg)
	require.NoError(t, err)

	res, err := e.Run(context.Background())
	assert.ErrorIs(t, err, skills.ErrRegistryBusy)
	assert.Nil(t, res)

	s := e.Summary()
	assert.Equal(t, statusFailed, s.Status)
	assert.Equal(t, skills.ErrRegistryBusy.Error(), s.Error)

	// no run id yet, so the directory is named by start time
	assert.FileExists(t, filepath.Join(e.ArtifactDir(), "execution.json"))
	assert.Equal(t, s.StartTime.Format("20060102-150405"), filepath.Base(e.ArtifactDir()))
}
