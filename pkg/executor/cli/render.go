package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/workflow"
)

// Color palette shared by every rendered line.
var (
	salmonPink  = lipgloss.Color("#FFB3BA")
	coralPink   = lipgloss.Color("#FFCCCB")
	mintGreen   = lipgloss.Color("#A8E6CF")
	mutedGray   = lipgloss.Color("#6B7280")
	brightWhite = lipgloss.Color("#F9FAFB")
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	tipsStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	thinkingStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Italic(true)

	toolStyle = lipgloss.NewStyle().
			Foreground(mintGreen)

	insightStyle = lipgloss.NewStyle().
			Foreground(coralPink)

	replyStyle = lipgloss.NewStyle().
			Foreground(brightWhite)

	errorStyle = lipgloss.NewStyle().
			Foreground(salmonPink)
)

// clearLine returns the cursor to column 0 and erases the line.
const clearLine = "\r\033[K"

// DefaultFormatter is the chroma formatter used for verbose JSON output.
const DefaultFormatter = "terminal256"

// Renderer turns hook callbacks and chat results into terminal lines. It is
// safe for concurrent use; the busy indicator and the hooks share one lock.
type Renderer struct {
	w  io.Writer
	mu sync.Mutex

	showThinking bool
	verbose      bool
	formatter    string
	animate      bool
	spinner      spinner.Spinner

	spinning bool
}

// RenderOption configures a Renderer.
type RenderOption func(*Renderer)

// WithShowThinking enables/disables displaying the model's reasoning text.
func WithShowThinking(show bool) RenderOption {
	return func(r *Renderer) {
		r.showThinking = show
	}
}

// WithVerbose prints highlighted arguments and results for every step.
func WithVerbose(verbose bool) RenderOption {
	return func(r *Renderer) {
		r.verbose = verbose
	}
}

// WithFormatter selects the chroma formatter ("terminal256", "terminal16m",
// "noop", ...).
func WithFormatter(name string) RenderOption {
	return func(r *Renderer) {
		if name != "" {
			r.formatter = name
		}
	}
}

// WithAnimation enables the busy indicator. Leave it off when the output
// is not a terminal.
func WithAnimation(animate bool) RenderOption {
	return func(r *Renderer) {
		r.animate = animate
	}
}

// NewRenderer creates a renderer writing to w.
func NewRenderer(w io.Writer, opts ...RenderOption) *Renderer {
	r := &Renderer{
		w:            w,
		showThinking: true,
		formatter:    DefaultFormatter,
		spinner:      spinner.MiniDot,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// println writes one line, erasing a busy indicator first.
func (r *Renderer) println(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spinning {
		fmt.Fprint(r.w, clearLine)
	}
	fmt.Fprintln(r.w, line)
}

func (r *Renderer) prompt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprint(r.w, headerStyle.Render(">")+" ")
}

// Header prints a title followed by muted tip lines.
func (r *Renderer) Header(title string, tips ...string) {
	r.println(headerStyle.Render(title))
	for _, tip := range tips {
		r.println(tipsStyle.Render(tip))
	}
	r.println("")
}

// Error prints err.
func (r *Renderer) Error(err error) {
	r.println(errorStyle.Render("❌ Error: " + err.Error()))
}

// highlight renders a value as indented JSON, colored when a formatter is set.
func (r *Renderer) highlight(v interface{}) string {
	var raw []byte
	switch val := v.(type) {
	case types.ToolResult:
		raw = []byte(val.JSON())
	default:
		var err error
		raw, err = json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "   ", "  "); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	source := "   " + buf.String()

	var out strings.Builder
	if err := quick.Highlight(&out, source, "json", r.formatter, "monokai"); err != nil {
		return source
	}
	return strings.TrimRight(out.String(), "\n")
}

// Hooks returns agent hooks that render each step and event.
func (r *Renderer) Hooks() agent.Hooks {
	return agent.Hooks{
		OnStepStart: r.stepStart,
		OnStepEnd:   r.stepEnd,
		OnEvent:     r.event,
	}
}

func (r *Renderer) stepStart(index int, name string, args map[string]interface{}) {
	r.println(toolStyle.Render(fmt.Sprintf("🔧 [%d] %s", index+1, name)))
	if r.verbose && len(args) > 0 {
		r.println(r.highlight(args))
	}
}

func (r *Renderer) stepEnd(index int, name string, result types.ToolResult) {
	if result.Success() {
		r.println(toolStyle.Render(fmt.Sprintf("✅ [%d] %s", index+1, name)))
	} else {
		r.println(errorStyle.Render(fmt.Sprintf("❌ [%d] %s: %s %s", index+1, name, result.ErrorKind(), result.Message())))
	}
	if r.verbose {
		r.println(r.highlight(result))
	}
}

func (r *Renderer) event(name string, payload map[string]interface{}) {
	switch types.AgentEventType(name) {
	case types.EventTypeStateChange:
		if r.verbose {
			r.println(tipsStyle.Render(fmt.Sprintf("· %v → %v", payload["from"], payload["state"])))
		}
	case types.EventTypePlanCreated:
		r.plan(payload["plan"])
	case types.EventTypeThinking:
		if r.showThinking {
			r.println(thinkingStyle.Render(fmt.Sprintf("💭 %v", payload["content"])))
		}
	case types.EventTypeToolInsight:
		r.println(insightStyle.Render(fmt.Sprintf("💡 %v", payload["insight"])))
	case types.EventTypeDecisionSummary:
		r.println(tipsStyle.Render(fmt.Sprintf("🧭 %v", payload["summary"])))
	case types.EventTypeAutopilot:
		mark := "✓"
		if ok, _ := payload["success"].(bool); !ok {
			mark = "✗"
		}
		r.println(toolStyle.Render(fmt.Sprintf("🤖 系统自动执行: %v (%v) %s", payload["action"], payload["tool"], mark)))
	case types.EventTypeGameMode:
		r.println(insightStyle.Render(fmt.Sprintf("🎮 游戏模式: %v (%vx%v)", payload["reason"], payload["width"], payload["height"])))
	case types.EventTypeError:
		r.println(errorStyle.Render(fmt.Sprintf("❌ %v", payload["error"])))
	}
}

func (r *Renderer) plan(v interface{}) {
	plan, ok := v.(*workflow.Plan)
	if !ok || plan == nil {
		return
	}
	if plan.IsGeneral() && !r.verbose {
		return
	}
	r.println(headerStyle.Render("📋 计划: " + plan.Goal))
	for _, step := range plan.Steps {
		r.println(tipsStyle.Render(fmt.Sprintf("   [%s] %s", step.Status, step.Title)))
	}
}

// Result prints the reply of a finished run.
func (r *Renderer) Result(res *agent.ChatResult) {
	if res == nil {
		return
	}
	if res.Reply != "" {
		style := replyStyle
		if res.State == agent.StateFailed {
			style = errorStyle
		}
		r.println(headerStyle.Render("Assistant:"))
		r.println(style.Render(res.Reply))
	}
	if res.RequiresUserInput {
		r.println(tipsStyle.Render("(等待你的输入)"))
	}
	r.println(tipsStyle.Render(fmt.Sprintf("· %s · %d 步 · %s", res.State, len(res.Trace)/2, res.Plan.Summarize())))
}
