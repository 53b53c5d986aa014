package prompts

import (
	"fmt"
	"strings"
)

// ErrorType classifies a failure reported back to the model.
type ErrorType int

const (
	// ErrorTypeToolFailure is a skill that returned success=false.
	ErrorTypeToolFailure ErrorType = iota
	// ErrorTypeUnknownTool is a call to a name outside the catalog.
	ErrorTypeUnknownTool
	// ErrorTypePolicy is a call rejected by the surface policy.
	ErrorTypePolicy
)

// ErrorRecoveryContext describes one failed tool outcome.
type ErrorRecoveryContext struct {
	Type      ErrorType
	ToolName  string
	ErrorKind string
	Message   string

	// AvailableTools is listed for ErrorTypeUnknownTool.
	AvailableTools []string
}

// BuildErrorRecoveryMessage returns the corrective system message appended
// after a failed tool outcome. It steers the model to adapt instead of
// restarting sessions.
func BuildErrorRecoveryMessage(ctx ErrorRecoveryContext) string {
	reason := ctx.ErrorKind
	if reason == "" {
		reason = ctx.Message
	}
	if reason == "" {
		reason = "unknown_error"
	}

	switch ctx.Type {
	case ErrorTypeUnknownTool:
		return fmt.Sprintf("工具 %s 不存在，错误=%s。只能调用以下工具：%s。请改用可用工具继续。",
			ctx.ToolName, reason, strings.Join(ctx.AvailableTools, ", "))
	case ErrorTypePolicy:
		return fmt.Sprintf("工具 %s 在当前任务中被禁用，错误=%s。%s 请改用允许的工具继续执行。",
			ctx.ToolName, reason, ctx.Message)
	default:
		return fmt.Sprintf("工具 %s 执行失败，错误=%s。"+
			"你必须承认失败并调整策略：不要重复从头启动会话；"+
			"优先复用当前 session，重新读取页面元素后再重试。", ctx.ToolName, reason)
	}
}
