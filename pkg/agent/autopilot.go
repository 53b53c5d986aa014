package agent

import (
	"fmt"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent/heuristics"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent/prompts"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/skills"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/workflow"
)

// Autopilot action names reported in events and messages.
const (
	actionFillPhone   = "填写手机号"
	actionAgreement   = "勾选同意选项"
	actionRequestCode = "点击验证码按钮"
)

var (
	mobilePhoneTokens     = []string{"输入手机号", "手机号", "手机号码"}
	mobileAgreementTokens = []string{"我已阅读并同意", "同意", "用户协议"}
	mobileCodeTokens      = []string{"获取验证码", "发送验证码", "获取"}
	browserCodeTokens     = []string{"获取验证码", "获取", "发送验证码"}
)

// bootstrapMobile opens a device session and the target app before the
// first reasoning round. It returns a result when the run cannot go on
// without the user.
func (r *run) bootstrapMobile() *ChatResult {
	listed, err := r.dispatch(toolAndroidListDevices, map[string]interface{}{})
	if err != nil {
		return r.fail(err)
	}
	if !listed.Success() {
		return r.finish(StateWaitingUser, prompts.NoDeviceReply)
	}

	started, err := r.dispatch(toolAndroidStart, map[string]interface{}{})
	if err != nil {
		return r.fail(err)
	}
	if !started.Success() {
		if started.ErrorKind() == types.ErrNoDevice {
			return r.finish(StateWaitingUser, prompts.NoDeviceReply)
		}
		return r.finish(StateWaitingUser, prompts.StartFailedReply)
	}
	sid := started.SessionID()
	if err := r.ensureScreenSize(); err != nil {
		return r.fail(err)
	}

	if _, err := r.dispatch(toolAndroidOpenApp, map[string]interface{}{"session_id": sid, "package": r.a.mobilePackage}); err != nil {
		return r.fail(err)
	}
	if _, err := r.dispatch(toolAndroidWait, map[string]interface{}{"session_id": sid, "wait_ms": bootWaitMs}); err != nil {
		return r.fail(err)
	}
	r.plan.UpdateStep(workflow.StepOpenXHS, workflow.StatusCompleted, "已打开手机端小红书")

	if r.vision {
		shot, err := r.dispatch(toolAndroidScreenshot, map[string]interface{}{
			"session_id":  sid,
			"output_path": r.a.bootScreenshotPath(),
		})
		if err != nil {
			return r.fail(err)
		}
		r.addSystem(prompts.BuildSessionReadyMessage(sid, true, "", 0))
		if path := shot.String("screenshot"); shot.Success() && path != "" {
			r.env.lastScreenshot = path
			caption := prompts.BootScreenshotCaption(r.env.screenW, r.env.screenH)
			if r.attachScreenshot(path, caption) {
				r.summarize("📷 启动截图已发送给视觉模型")
			}
		}
	} else {
		dumped, err := r.dispatch(toolAndroidDumpUI, map[string]interface{}{"session_id": sid, "max_chars": bootDumpChars})
		if err != nil {
			return r.fail(err)
		}
		r.addSystem(prompts.BuildSessionReadyMessage(sid, false, dumped.JSON(), bootSummaryRunes))
	}

	r.summarize("已切换手机端发布流程并完成小红书启动")
	return nil
}

// conversationPhone returns the first phone number mentioned anywhere in
// the conversation.
func (r *run) conversationPhone() string {
	return workflow.ExtractPhone(heuristics.TranscriptText(r.messages))
}

// autopilot dispatches one deterministic action and reports it. A fatal
// dispatcher error is returned and ends the round.
func (r *run) autopilot(action, name string, args map[string]interface{}) (types.ToolResult, error) {
	result, err := r.dispatch(name, args)
	r.emit(types.NewAutopilotEvent(action, name, result))
	if err != nil {
		return result, fmt.Errorf("autopilot %s: %w", name, err)
	}
	return result, nil
}

// tapFirst taps the first token that matches on screen.
func (r *run) tapFirst(action string, tokens []string) (types.ToolResult, error) {
	var result types.ToolResult
	for _, token := range tokens {
		var err error
		result, err = r.autopilot(action, toolAndroidTapText, map[string]interface{}{"text": token})
		if err != nil {
			return result, err
		}
		if result.Success() {
			break
		}
	}
	return result, nil
}

// mobileLoginAutopilot runs after each successful UI dump in the mobile
// flow. Phone entry, agreement and code request are each attempted at
// most once per run, in that order.
func (r *run) mobileLoginAutopilot() error {
	if r.a.registry.ActiveSession(skills.KindAndroid) == "" {
		return nil
	}

	if !r.login.phoneAttempted {
		phone := r.conversationPhone()
		if phone == "" {
			return nil
		}
		r.login.phoneAttempted = true
		if _, err := r.tapFirst(actionFillPhone, mobilePhoneTokens); err != nil {
			return err
		}
		res, err := r.autopilot(actionFillPhone, toolAndroidInputText, map[string]interface{}{"text": phone, "clear": true})
		if err != nil {
			return err
		}
		r.login.phoneFilled = res.Success()
		r.addSystem(prompts.BuildAutopilotMessage(actionFillPhone, res.JSON()))
		if r.login.phoneFilled {
			r.plan.UpdateStep(workflow.StepPrepareLogin, workflow.StatusInProgress, "已在手机端填写手机号")
		}
	}
	if !r.login.phoneFilled {
		return nil
	}

	if !r.login.agreementAttempted {
		r.login.agreementAttempted = true
		res, err := r.tapFirst(actionAgreement, mobileAgreementTokens)
		if err != nil {
			return err
		}
		r.addSystem(prompts.BuildAutopilotMessage(actionAgreement, res.JSON()))
	}

	if !r.login.codeAttempted {
		r.login.codeAttempted = true
		res, err := r.tapFirst(actionRequestCode, mobileCodeTokens)
		if err != nil {
			return err
		}
		r.addSystem(prompts.BuildAutopilotMessage(actionRequestCode, res.JSON()))
		if res.Success() {
			r.plan.UpdateStep(workflow.StepPrepareLogin, workflow.StatusCompleted, "已触发手机端验证码发送")
		}
	}
	return nil
}

// browserLoginAutopilot is the desktop counterpart, triggered when the
// visible inputs include a phone field.
func (r *run) browserLoginAutopilot(inputs types.ToolResult) error {
	if r.a.registry.ActiveSession(skills.KindBrowser) == "" || !heuristics.HasPhoneInput(inputs["inputs"]) {
		return nil
	}

	if !r.login.phoneAttempted {
		phone := r.conversationPhone()
		if phone == "" {
			return nil
		}
		r.login.phoneAttempted = true
		res, err := r.autopilot(actionFillPhone, toolBrowserFill, map[string]interface{}{
			"placeholder_substring": "输入手机号",
			"text":                  phone,
		})
		if err != nil {
			return err
		}
		r.login.phoneFilled = res.Success()
		r.plan.UpdateStep(workflow.StepPrepareLogin, workflow.StatusInProgress, "已填写手机号")
		r.addSystem(prompts.BuildAutopilotMessage(actionFillPhone, res.JSON()))
	}
	if !r.login.phoneFilled {
		return nil
	}

	if !r.login.agreementAttempted {
		r.login.agreementAttempted = true
		res, err := r.autopilot(actionAgreement, toolBrowserAgreement, map[string]interface{}{})
		if err != nil {
			return err
		}
		r.addSystem(prompts.BuildAutopilotMessage(actionAgreement, res.JSON()))
	}

	if !r.login.codeAttempted {
		r.login.codeAttempted = true
		var res types.ToolResult
		for _, token := range browserCodeTokens {
			var err error
			res, err = r.autopilot(actionRequestCode, toolBrowserClickText, map[string]interface{}{"text_substring": token})
			if err != nil {
				return err
			}
			if res.Success() {
				break
			}
		}
		if res.Success() {
			r.plan.UpdateStep(workflow.StepPrepareLogin, workflow.StatusCompleted, "已触发验证码发送")
		}
		r.addSystem(prompts.BuildAutopilotMessage(actionRequestCode, res.JSON()))
	}
	return nil
}
