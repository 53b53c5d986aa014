// Package heuristics holds the text and UI-tree checks the orchestration loop
// uses to adapt its strategy. Every function is pure so a different
// classifier can replace one without touching the state machine.
package heuristics

import (
	"reflect"
	"strings"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/llm"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

// Thresholds below which a UI dump is treated as not introspectable.
const (
	DefaultSparseDumpChars = 3000
	DefaultSparseDumpNodes = 5

	// DefaultEmptySearchStreak is the number of consecutive empty element
	// searches that switch the loop to game mode.
	DefaultEmptySearchStreak = 2
)

var userInputKeywords = []string{"请提供", "请输入", "验证码", "密码", "短信码", "授权码"}

// NeedsUserInput reports whether a final reply is asking the user for
// something, such as a verification code.
func NeedsUserInput(reply string) bool {
	if reply == "" {
		return false
	}
	if strings.ContainsAny(reply, "?？") {
		return true
	}
	for _, k := range userInputKeywords {
		if strings.Contains(reply, k) {
			return true
		}
	}
	return false
}

// CountUINodes counts element nodes in a hierarchy dump. Both the
// uiautomator <node> form and class-named <android.*> tags are counted.
func CountUINodes(xml string) int {
	return strings.Count(xml, "<node") + strings.Count(xml, "<android.")
}

// SparseDump configures IsSparseUIDump.
type SparseDump struct {
	MinChars int
	MinNodes int
}

// DefaultSparseDump returns the stock thresholds.
func DefaultSparseDump() SparseDump {
	return SparseDump{MinChars: DefaultSparseDumpChars, MinNodes: DefaultSparseDumpNodes}
}

// IsSparseUIDump reports whether xml is implausibly small for a native
// screen, the signature of an engine-rendered game surface.
func (s SparseDump) IsSparseUIDump(xml string) bool {
	minChars, minNodes := s.MinChars, s.MinNodes
	if minChars <= 0 {
		minChars = DefaultSparseDumpChars
	}
	if minNodes <= 0 {
		minNodes = DefaultSparseDumpNodes
	}
	return len(xml) < minChars || CountUINodes(xml) < minNodes
}

// IsSparseUIDump applies the default thresholds.
func IsSparseUIDump(xml string) bool {
	return DefaultSparseDump().IsSparseUIDump(xml)
}

// FoundCount returns how many elements a find-elements result reports. The
// count field wins; otherwise the length of the elements list is used.
func FoundCount(result types.ToolResult) int {
	if n, ok := result.Int("count"); ok && n > 0 {
		return n
	}
	v, ok := result["elements"]
	if !ok || v == nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv.Len()
	}
	return 0
}

// SupportsVision reports whether the model accepts image input. An explicit
// override wins over the name-based guess.
func SupportsVision(model string, override *bool) bool {
	if override != nil {
		return *override
	}
	return llm.ModelSupportsVision(model)
}

// HasPhoneInput reports whether any visible input's placeholder asks for a
// phone number. inputs is the "inputs" field of browser_get_visible_inputs.
func HasPhoneInput(inputs interface{}) bool {
	for _, placeholder := range placeholders(inputs) {
		if strings.Contains(placeholder, "手机号") {
			return true
		}
	}
	return false
}

func placeholders(inputs interface{}) []string {
	var out []string
	switch v := inputs.(type) {
	case []interface{}:
		for _, item := range v {
			if m, ok := item.(map[string]interface{}); ok {
				if s, ok := m["placeholder"].(string); ok {
					out = append(out, s)
				}
			}
		}
	case []map[string]interface{}:
		for _, m := range v {
			if s, ok := m["placeholder"].(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// ReasoningText picks the text to surface as a thinking event. Explicit
// reasoning wins. Otherwise the visible content of a turn that also requests
// tools is treated as the model thinking out loud.
func ReasoningText(reasoning, content string, hasToolCalls bool) string {
	if r := strings.TrimSpace(reasoning); r != "" {
		return r
	}
	if hasToolCalls {
		return strings.TrimSpace(content)
	}
	return ""
}

// TranscriptText joins the text of every message, the haystack searched
// for a phone number by the login autopilots.
func TranscriptText(messages []types.Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.Content)
	}
	return b.String()
}
