package agent

import (
	"fmt"
	"os"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent/heuristics"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent/prompts"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/skills"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/vision"
)

// Skill names the loop reacts to.
const (
	toolAndroidListDevices   = "android_list_devices"
	toolAndroidStart         = "android_start"
	toolAndroidOpenApp       = "android_open_app"
	toolAndroidWait          = "android_wait"
	toolAndroidScreenshot    = "android_screenshot"
	toolAndroidDumpUI        = "android_dump_ui"
	toolAndroidFindElements  = "android_find_elements"
	toolAndroidTapText       = "android_tap_text"
	toolAndroidInputText     = "android_input_text"
	toolAndroidScreenSize    = "android_get_screen_size"
	toolBrowserScreenshot    = "browser_screenshot"
	toolBrowserVisibleInputs = "browser_get_visible_inputs"
	toolBrowserFill          = "browser_fill_by_placeholder"
	toolBrowserAgreement     = "browser_check_agreement"
	toolBrowserClickText     = "browser_click_by_text"
)

// adapt applies the environment heuristics after a model-requested call.
// Only fatal dispatcher errors from follow-up calls are returned.
func (r *run) adapt(name string, result types.ToolResult) error {
	switch name {
	case toolAndroidDumpUI:
		if result.Success() && !r.env.gameMode && r.a.sparse.IsSparseUIDump(result.String("xml")) {
			if err := r.activateGameMode(prompts.GameModeSparseDump, "🎮 检测到游戏引擎界面，已切换为游戏操作模式"); err != nil {
				return err
			}
		}
		if result.Success() && r.mobileOnly {
			return r.mobileLoginAutopilot()
		}

	case toolAndroidFindElements:
		if heuristics.FoundCount(result) == 0 {
			r.env.emptySearchStreak++
		} else {
			r.env.emptySearchStreak = 0
		}
		if !r.env.gameMode && r.env.emptySearchStreak >= r.a.emptySearchStreak {
			return r.activateGameMode(prompts.GameModeEmptySearch, "🎮 连续多次 find_elements 返回空，切换为游戏操作模式")
		}

	case toolAndroidStart:
		if result.Success() {
			return r.ensureScreenSize()
		}

	case toolAndroidScreenshot, toolBrowserScreenshot:
		if result.Success() {
			r.injectScreenshot(result)
		}

	case toolBrowserVisibleInputs:
		if result.Success() && !r.mobileOnly {
			return r.browserLoginAutopilot(result)
		}
	}
	return nil
}

// activateGameMode switches the run to coordinate-only interaction. It is
// never turned off again within the run.
func (r *run) activateGameMode(reason prompts.GameModeReason, summary string) error {
	r.env.gameMode = true
	r.summarize(summary)
	if err := r.ensureScreenSize(); err != nil {
		return err
	}
	r.emit(types.NewGameModeEvent(string(reason), r.env.screenW, r.env.screenH))
	r.addSystem(prompts.BuildGameModeMessage(reason, r.env.screenW, r.env.screenH))
	return nil
}

// ensureScreenSize probes the active device once. The probe bypasses hooks
// and trace since the model never asked for it. Only a fatal dispatcher
// error is returned; an unknown size is left at zero.
func (r *run) ensureScreenSize() error {
	if r.env.screenW > 0 {
		return nil
	}
	sid := r.a.registry.ActiveSession(skills.KindAndroid)
	if sid == "" {
		return nil
	}
	res, err := r.a.registry.Dispatch(r.ctx, toolAndroidScreenSize, map[string]interface{}{"session_id": sid})
	if err != nil {
		return fmt.Errorf("%s: %w", toolAndroidScreenSize, err)
	}
	if !res.Success() {
		agentDebugLog.Debugf("run %s: screen size unavailable: %s", r.id, res.Message())
		return nil
	}
	w, okW := res.Int("width")
	h, okH := res.Int("height")
	if okW && okH && w > 0 && h > 0 {
		r.env.screenW, r.env.screenH = w, h
	}
	return nil
}

// injectScreenshot shows a successful capture to a vision model.
func (r *run) injectScreenshot(result types.ToolResult) {
	path := result.String("screenshot")
	if path == "" {
		path = result.String("path")
	}
	if path == "" {
		return
	}
	r.env.lastScreenshot = path

	if !r.vision || !r.attachScreenshot(path, "") {
		return
	}
	tag := "📷"
	if r.env.gameMode {
		tag = "🎮"
	}
	r.summarize(tag + " 截图已发送给视觉模型分析")
}

// attachScreenshot appends the image at path as a user turn. An empty
// caption picks the one for the current mode. In game mode with a known
// resolution the grid is drawn and the larger size is used.
func (r *run) attachScreenshot(path, caption string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		agentDebugLog.Warnf("run %s: cannot read screenshot %s: %v", r.id, path, err)
		return false
	}

	w, h := r.env.screenW, r.env.screenH
	grid := r.env.gameMode && w > 0 && h > 0
	uri, err := vision.Prepare(raw, vision.Options{Grid: grid, ScreenWidth: w, ScreenHeight: h})
	if err != nil {
		agentDebugLog.Warnf("run %s: cannot encode screenshot %s: %v", r.id, path, err)
		return false
	}

	if caption == "" {
		caption = vision.Caption(grid, w, h)
	}
	r.messages = append(r.messages, types.NewImageMessage(vision.WithResolution(caption, w, h), uri))
	return true
}
