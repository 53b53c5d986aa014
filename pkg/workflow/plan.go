// Package workflow builds structured task plans for recognised intents.
//
// Planning is keyword based. The orchestration loop creates a plan once per
// chat call and advances step statuses only as a side effect of tool
// outcomes.
package workflow

import (
	"fmt"
	"regexp"
	"strings"
)

// Status is the progress of one plan step.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Step ids of the publishing workflow.
const (
	StepCollectInfo  = "collect_info"
	StepSearchTopic  = "search_topic"
	StepDraftPost    = "draft_post"
	StepOpenXHS      = "open_xhs"
	StepPrepareLogin = "prepare_login"
	StepPublishNote  = "publish_note"
)

// Required inputs the user may have to supply.
const (
	InputPhone   = "phone"
	InputSMSCode = "sms_code"
)

// GoalGeneral marks the observability-only plan recorded for unrecognised
// requests.
const GoalGeneral = "general_task"

const defaultTopic = "长沙旅游景点"

var (
	intentKeywords = []string{"小红书", "xhs", "发布", "帖子", "笔记"}
	phonePattern   = regexp.MustCompile(`(?:^|[^0-9])(1[0-9]{10})(?:[^0-9]|$)`)
	topicPattern   = regexp.MustCompile(`(关于|发布|写)(.*?)(帖子|笔记|内容)`)
)

// Step is one named unit of work.
type Step struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status Status `json:"status"`
	Note   string `json:"note,omitempty"`
}

// Plan is an ordered list of steps plus what the user still has to provide.
type Plan struct {
	Goal            string   `json:"goal"`
	Topic           string   `json:"topic,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	Steps           []*Step  `json:"steps"`
	RequiredInputs  []string `json:"required_inputs,omitempty"`
	SuccessCriteria []string `json:"success_criteria,omitempty"`

	// MobileOnly restricts execution to device skills.
	MobileOnly bool `json:"mobile_only,omitempty"`
}

// DetectXHSIntent reports whether text asks to publish on Xiaohongshu. At
// least two of the intent keywords must appear.
func DetectXHSIntent(text string) bool {
	t := strings.ToLower(text)
	hits := 0
	for _, k := range intentKeywords {
		if strings.Contains(t, k) {
			hits++
		}
	}
	return hits >= 2
}

// ExtractPhone returns the first mainland mobile number in text, or "".
func ExtractPhone(text string) string {
	m := phonePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// CreatePlan builds the publishing plan for message.
func CreatePlan(message string) *Plan {
	topic := defaultTopic
	if m := topicPattern.FindStringSubmatch(message); m != nil {
		if t := strings.TrimSpace(m[2]); t != "" {
			topic = t
		}
	}
	phone := ExtractPhone(message)

	required := []string{}
	if phone == "" {
		required = append(required, InputPhone)
	}
	required = append(required, InputSMSCode)

	return &Plan{
		Goal:  "发布小红书帖子",
		Topic: topic,
		Phone: phone,
		Steps: []*Step{
			{ID: StepCollectInfo, Title: "解析用户意图与约束", Status: StatusPending},
			{ID: StepSearchTopic, Title: fmt.Sprintf("web_search 检索 %s 的可发布要点（不要在APP内搜索）", topic), Status: StatusPending},
			{ID: StepDraftPost, Title: "根据搜索结果生成标题与正文草稿", Status: StatusPending},
			{ID: StepOpenXHS, Title: "手机端打开小红书", Status: StatusPending},
			{ID: StepPrepareLogin, Title: "填写手机号→勾选同意→获取验证码", Status: StatusPending},
			{ID: StepPublishNote, Title: "手机端点击发布按钮→选图→填写标题正文→发布", Status: StatusPending},
		},
		RequiredInputs: required,
		SuccessCriteria: []string{
			"已触发验证码发送",
			"已生成可发布标题与正文",
			"用户提供验证码后可继续登录发布",
		},
		MobileOnly: true,
	}
}

// GeneralPlan is recorded when no intent matches. Its steps are all
// informational and never block completion.
func GeneralPlan() *Plan {
	return &Plan{
		Goal: GoalGeneral,
		Steps: []*Step{
			{ID: "analyze", Title: "analyze", Status: StatusPending},
			{ID: "execute", Title: "execute", Status: StatusPending},
			{ID: "respond", Title: "respond", Status: StatusPending},
		},
	}
}

// IsGeneral reports whether p is the observability-only plan.
func (p *Plan) IsGeneral() bool {
	return p == nil || p.Goal == GoalGeneral
}

// Step returns the step with id, or nil.
func (p *Plan) Step(id string) *Step {
	if p == nil {
		return nil
	}
	for _, s := range p.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// UpdateStep sets the status of step id and, when note is non-empty, its
// note. Unknown ids are ignored. It reports whether a step changed.
func (p *Plan) UpdateStep(id string, status Status, note string) bool {
	s := p.Step(id)
	if s == nil {
		return false
	}
	s.Status = status
	if note != "" {
		s.Note = note
	}
	return true
}

// PendingSteps returns the steps not yet completed, in plan order.
func (p *Plan) PendingSteps() []*Step {
	if p == nil {
		return nil
	}
	var out []*Step
	for _, s := range p.Steps {
		if s.Status != StatusCompleted {
			out = append(out, s)
		}
	}
	return out
}

// Summarize returns a short progress line such as "进度 2/6".
func (p *Plan) Summarize() string {
	if p == nil {
		return "进度 0/0"
	}
	return fmt.Sprintf("进度 %d/%d", len(p.Steps)-len(p.PendingSteps()), len(p.Steps))
}

// Clone returns a deep copy, so snapshots handed to observers do not change
// as the loop advances.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	out := *p
	out.Steps = make([]*Step, len(p.Steps))
	for i, s := range p.Steps {
		cp := *s
		out.Steps[i] = &cp
	}
	out.RequiredInputs = append([]string(nil), p.RequiredInputs...)
	out.SuccessCriteria = append([]string(nil), p.SuccessCriteria...)
	return &out
}
