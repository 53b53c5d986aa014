package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/skills"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/workflow"
)

type fakeAgent struct {
	histories [][]types.Message
	messages  []string
	err       error
}

func (f *fakeAgent) Chat(ctx context.Context, message string, history []types.Message, hooks agent.Hooks) (*agent.ChatResult, error) {
	f.histories = append(f.histories, types.CloneMessages(history))
	f.messages = append(f.messages, message)
	if f.err != nil {
		return nil, f.err
	}

	hooks.OnStepStart(0, "web_search", map[string]interface{}{"query": message})
	hooks.OnStepEnd(0, "web_search", types.OK(map[string]any{"count": 1}))
	hooks.OnEvent("tool_insight", map[string]interface{}{"tool": "web_search", "insight": "搜索到 1 条结果"})

	reply := "done: " + message
	msgs := append(types.CloneMessages(history), types.NewUserMessage(message), types.NewAssistantMessage(reply))
	return &agent.ChatResult{
		Reply:    reply,
		State:    agent.StateCompleted,
		Messages: msgs,
		Trace:    make([]agent.TraceEntry, 2),
	}, nil
}

func newTestExecutor(ag agent.Agent, input string, out *bytes.Buffer, opts ...RenderOption) *Executor {
	opts = append([]RenderOption{WithFormatter("noop")}, opts...)
	return NewExecutor(ag,
		WithReader(strings.NewReader(input)),
		WithRenderer(NewRenderer(out, opts...)),
	)
}

func TestExecutor_CarriesHistory(t *testing.T) {
	ag := &fakeAgent{}
	var out bytes.Buffer
	e := newTestExecutor(ag, "第一条\n\n第二条\nexit\n", &out)

	require.NoError(t, e.Run(context.Background()))

	require.Len(t, ag.histories, 2)
	assert.Empty(t, ag.histories[0])
	require.Len(t, ag.histories[1], 2)
	assert.Equal(t, "第一条", ag.histories[1][0].Content)
	assert.Len(t, e.History(), 4)

	text := out.String()
	assert.Contains(t, text, "done: 第一条")
	assert.Contains(t, text, "done: 第二条")
	assert.Contains(t, text, "🔧 [1] web_search")
	assert.Contains(t, text, "✅ [1] web_search")
	assert.Contains(t, text, "💡 搜索到 1 条结果")
}

func TestExecutor_Reset(t *testing.T) {
	ag := &fakeAgent{}
	var out bytes.Buffer
	e := newTestExecutor(ag, "a\n/reset\nb\nquit\n", &out)

	require.NoError(t, e.Run(context.Background()))
	require.Len(t, ag.histories, 2)
	assert.Empty(t, ag.histories[1])
	assert.Contains(t, out.String(), "对话已清空")
}

func TestExecutor_EOFWithoutNewline(t *testing.T) {
	ag := &fakeAgent{}
	var out bytes.Buffer
	e := newTestExecutor(ag, "only line", &out)

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, []string{"only line"}, ag.messages)
}

func TestExecutor_ErrorKeepsHistory(t *testing.T) {
	ag := &fakeAgent{}
	var out bytes.Buffer
	e := newTestExecutor(ag, "", &out)
	e.history = []types.Message{types.NewUserMessage("earlier")}

	ag.err = skills.ErrRegistryBusy
	_, err := e.Turn(context.Background(), "again")
	assert.ErrorIs(t, err, skills.ErrRegistryBusy)
	assert.Len(t, e.History(), 1)
	assert.Contains(t, out.String(), "❌ Error")
}

func TestExecutor_CanceledContext(t *testing.T) {
	ag := &fakeAgent{}
	var out bytes.Buffer
	e := newTestExecutor(ag, "never read\n", &out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, e.Run(ctx), context.Canceled)
	assert.Empty(t, ag.messages)
}

func TestRenderer_Verbose(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, WithVerbose(true), WithFormatter("noop"), WithShowThinking(false))
	hooks := r.Hooks()

	hooks.OnStepStart(2, "android_tap_text", map[string]interface{}{"text": "发布"})
	hooks.OnStepEnd(2, "android_tap_text", types.Fail(types.ErrSessionNotFound, "no session"))
	hooks.OnEvent("thinking", map[string]interface{}{"content": "hidden"})
	hooks.OnEvent("state_change", map[string]interface{}{"from": "planning", "state": "executing"})
	hooks.OnEvent("autopilot", map[string]interface{}{"action": "填写手机号", "tool": "android_input_text", "success": true})
	hooks.OnEvent("plan_created", map[string]interface{}{"plan": workflow.CreatePlan("在小红书发布一篇帖子")})

	text := out.String()
	assert.Contains(t, text, "🔧 [3] android_tap_text")
	assert.Contains(t, text, `"text": "发布"`)
	assert.Contains(t, text, "❌ [3] android_tap_text: session_not_found no session")
	assert.NotContains(t, text, "hidden")
	assert.Contains(t, text, "planning → executing")
	assert.Contains(t, text, "🤖 系统自动执行: 填写手机号 (android_input_text) ✓")
	assert.Contains(t, text, "📋 计划")
	assert.Contains(t, text, "[pending]")
}

func TestRenderer_QuietSkipsGeneralPlan(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out)
	r.Hooks().OnEvent("plan_created", map[string]interface{}{"plan": workflow.GeneralPlan()})
	r.Hooks().OnEvent("state_change", map[string]interface{}{"from": "planning", "state": "executing"})
	assert.Empty(t, out.String())
}

func TestRenderer_Result(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out)

	r.Result(&agent.ChatResult{Reply: "请提供验证码", State: agent.StateWaitingUser, RequiresUserInput: true})
	r.Result(nil)

	text := out.String()
	assert.Contains(t, text, "请提供验证码")
	assert.Contains(t, text, "等待你的输入")
	assert.Contains(t, text, "waiting_user")
	assert.Contains(t, text, "进度 0/0")
}

func TestRenderer_Busy(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, WithAnimation(true))

	stop := r.Busy("思考中...")
	r.println("interleaved")
	stop()
	stop()

	text := out.String()
	assert.Contains(t, text, "思考中...")
	assert.Contains(t, text, "interleaved")
	assert.True(t, strings.HasSuffix(text, clearLine))
	assert.False(t, r.spinning)
}

func TestRenderer_BusyWithoutAnimation(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out)
	r.Busy("思考中...")()
	assert.Empty(t, out.String())
}
