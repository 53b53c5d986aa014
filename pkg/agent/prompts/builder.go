// Package prompts builds the system prompt and the supervisor-authored
// messages the orchestration loop injects into the conversation.
package prompts

import (
	"fmt"
	"strings"
)

// PromptBuilder constructs the system prompt for one chat run.
type PromptBuilder struct {
	customInstructions string
	vision             bool
}

// NewPromptBuilder creates a new prompt builder with default settings
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// WithCustomInstructions adds user-provided instructions ahead of the rules.
func (pb *PromptBuilder) WithCustomInstructions(instructions string) *PromptBuilder {
	pb.customInstructions = instructions
	return pb
}

// WithVision adds the screenshot strategies.
func (pb *PromptBuilder) WithVision(enabled bool) *PromptBuilder {
	pb.vision = enabled
	return pb
}

// Build constructs the complete system prompt by assembling all sections
func (pb *PromptBuilder) Build() string {
	var builder strings.Builder

	if pb.customInstructions != "" {
		builder.WriteString("<custom_instructions>\n")
		builder.WriteString(pb.customInstructions)
		builder.WriteString("\n</custom_instructions>\n\n")
	}

	builder.WriteString(BaseRulesPrompt)
	builder.WriteString("\n\n")
	builder.WriteString(XHSPrompt)

	if pb.vision {
		builder.WriteString("\n\n")
		builder.WriteString(VisionStrategyPrompt)
	}

	return builder.String()
}

// BuildPlanMessage announces an established plan. planJSON is the encoded plan.
func BuildPlanMessage(planJSON string) string {
	return "任务计划已建立，请按计划执行并持续推进：" + planJSON
}

// BuildNudgeMessage is injected when the model goes silent while plan steps
// are still pending.
func BuildNudgeMessage(pendingTitles []string) string {
	return fmt.Sprintf("你的回复为空且未调用任何工具，但任务尚未完成。待完成步骤: %s。"+
		"请立即调用工具继续执行下一步，不要返回空回复。系统会自动注入 session_id，你无需手动传入。",
		strings.Join(pendingTitles, ", "))
}

// GameModeReason says what tripped game mode.
type GameModeReason string

const (
	GameModeSparseDump  GameModeReason = "sparse_dump"
	GameModeEmptySearch GameModeReason = "empty_search"
)

// BuildGameModeMessage forbids structural introspection for the rest of the
// run. Zero dimensions are left out.
func BuildGameModeMessage(reason GameModeReason, width, height int) string {
	var b strings.Builder
	switch reason {
	case GameModeEmptySearch:
		b.WriteString("⚠️ 游戏模式已激活：find_elements 连续返回空，当前界面可能是游戏引擎渲染。\n")
		b.WriteString("请停止调用 android_find_elements / android_dump_ui / android_tap_text。\n")
		b.WriteString("改为截图后根据坐标网格直接 android_tap_coordinates 点击。\n")
		if width > 0 && height > 0 {
			fmt.Fprintf(&b, "屏幕分辨率: %d×%d\n", width, height)
		}
	default:
		b.WriteString("⚠️ 游戏模式已激活：当前为游戏引擎渲染界面，dump_ui/find_elements 无法识别任何游戏内元素。\n")
		b.WriteString("请切换为【游戏引擎界面策略】：\n")
		b.WriteString("- 不要再调用 android_find_elements / android_dump_ui / android_tap_text\n")
		b.WriteString("- 截图上有红色坐标网格参考线，根据网格读取目标的像素坐标\n")
		b.WriteString("- 直接用 android_tap_coordinates 点击，点击后截图确认\n")
		b.WriteString("- 如果点击无效，在附近 ±30~50px 偏移重试\n")
		if width > 0 && height > 0 {
			fmt.Fprintf(&b, "- 屏幕分辨率: %d×%d\n", width, height)
		}
	}
	return b.String()
}

// BuildSessionReadyMessage tells the model the device session is up and the
// app is open. uiSummary is the encoded dump result for text-only models;
// it is truncated to maxSummary runes.
func BuildSessionReadyMessage(sessionID string, vision bool, uiSummary string, maxSummary int) string {
	head := fmt.Sprintf("Android 会话已就绪，session_id=%s。后续调用 android_* 工具时无需手动传入 session_id，系统会自动注入。\n", sessionID)
	if vision {
		return head + "当前已打开小红书，下方附有启动后的手机截图，请直接根据画面判断界面状态。"
	}
	if r := []rune(uiSummary); maxSummary > 0 && len(r) > maxSummary {
		uiSummary = string(r[:maxSummary])
	}
	return head + "当前已打开小红书，UI 树摘要如下（用于后续定位）：\n" + uiSummary
}

// BootScreenshotCaption accompanies the screenshot taken after app launch.
func BootScreenshotCaption(width, height int) string {
	caption := "小红书启动后的界面截图，请判断当前状态（首页/登录/其他）。" +
		"注意：截图仅用于理解界面，点击时必须先用 android_find_elements 获取目标元素的精确 bounds 再计算中心坐标点击，不要从截图猜坐标。"
	if width > 0 && height > 0 {
		caption += fmt.Sprintf("（屏幕分辨率: %d×%d）", width, height)
	}
	return caption
}

// BuildAutopilotMessage reports a deterministic login action back to the model.
func BuildAutopilotMessage(action, resultJSON string) string {
	return fmt.Sprintf("系统自动执行：已尝试%s。结果=%s", action, resultJSON)
}
