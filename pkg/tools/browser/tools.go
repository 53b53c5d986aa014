package browser

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent/tools"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

// Caller sends one operation to the worker.
type Caller interface {
	Call(ctx context.Context, op Op, params interface{}) (types.ToolResult, error)
}

// ToolOptions holds defaults applied when the model omits an argument.
type ToolOptions struct {
	Headless      bool
	ScreenshotDir string
}

type sessionArgs struct {
	SessionID tools.FlexString `json:"session_id"`
}

type startArgs struct {
	Headless tools.FlexBool `json:"headless"`
}

type openArgs struct {
	SessionID tools.FlexString `json:"session_id"`
	URL       tools.FlexString `json:"url"`
	WaitMs    tools.FlexInt    `json:"wait_ms"`
}

type selectorArgs struct {
	SessionID tools.FlexString `json:"session_id"`
	Selector  tools.FlexString `json:"selector"`
	Text      tools.FlexString `json:"text"`
}

type getTextArgs struct {
	SessionID tools.FlexString `json:"session_id"`
	Selector  tools.FlexString `json:"selector"`
	MaxChars  tools.FlexInt    `json:"max_chars"`
}

type pageSourceArgs struct {
	SessionID tools.FlexString `json:"session_id"`
	MaxChars  tools.FlexInt    `json:"max_chars"`
	Clean     tools.FlexBool   `json:"clean"`
}

type screenshotArgs struct {
	SessionID tools.FlexString `json:"session_id"`
	Path      tools.FlexString `json:"screenshot_path"`
	FullPage  tools.FlexBool   `json:"full_page"`
}

type placeholderArgs struct {
	SessionID   tools.FlexString `json:"session_id"`
	Placeholder tools.FlexString `json:"placeholder_substring"`
	Text        tools.FlexString `json:"text"`
}

type clickTextArgs struct {
	SessionID tools.FlexString `json:"session_id"`
	Text      tools.FlexString `json:"text_substring"`
}

func sessionProp() map[string]interface{} {
	return tools.StringProp("Browser session id")
}

func missing(field string) types.ToolResult {
	return types.Fail(types.ErrInvalidArguments, fmt.Sprintf("%s is required", field))
}

// Tools returns the browser skills backed by c.
func Tools(c Caller, opts ToolOptions) []tools.Tool {
	if opts.ScreenshotDir == "" {
		opts.ScreenshotDir = filepath.Join("output", "screenshots")
	}

	return []tools.Tool{
		tools.TypedE("browser_start", "Start a browser session.",
			tools.BaseToolSchema(map[string]interface{}{
				"headless": tools.BoolProp("Run browser headless"),
			}, nil),
			func(ctx context.Context, a startArgs) (types.ToolResult, error) {
				return c.Call(ctx, OpStartSession, StartParams{Headless: a.Headless.Or(opts.Headless)})
			}),

		tools.TypedE("browser_open", "Open a URL in an existing browser session.",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id": sessionProp(),
				"url":        tools.StringProp("URL to open"),
				"wait_ms":    tools.IntProp("Wait time after load (ms)"),
			}, []string{"session_id", "url"}),
			func(ctx context.Context, a openArgs) (types.ToolResult, error) {
				if a.URL == "" {
					return missing("url"), nil
				}
				return c.Call(ctx, OpOpenURL, OpenParams{
					SessionID: a.SessionID.String(),
					URL:       a.URL.String(),
					WaitMs:    a.WaitMs.Or(DefaultWaitMs),
				})
			}),

		tools.TypedE("browser_fill", "Fill a selector with text.",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id": sessionProp(),
				"selector":   tools.StringProp("CSS selector"),
				"text":       tools.StringProp("Text to fill"),
			}, []string{"session_id", "selector", "text"}),
			func(ctx context.Context, a selectorArgs) (types.ToolResult, error) {
				if a.Selector == "" {
					return missing("selector"), nil
				}
				return c.Call(ctx, OpFillSelector, SelectorParams{
					SessionID: a.SessionID.String(),
					Selector:  a.Selector.String(),
					Text:      a.Text.String(),
				})
			}),

		tools.TypedE("browser_click", "Click a selector.",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id": sessionProp(),
				"selector":   tools.StringProp("CSS selector"),
			}, []string{"session_id", "selector"}),
			func(ctx context.Context, a selectorArgs) (types.ToolResult, error) {
				if a.Selector == "" {
					return missing("selector"), nil
				}
				return c.Call(ctx, OpClickSelector, SelectorParams{
					SessionID: a.SessionID.String(),
					Selector:  a.Selector.String(),
				})
			}),

		tools.TypedE("browser_get_text", "Get text from a selector.",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id": sessionProp(),
				"selector":   tools.StringProp("CSS selector"),
				"max_chars":  tools.IntProp("Max text length"),
			}, []string{"session_id"}),
			func(ctx context.Context, a getTextArgs) (types.ToolResult, error) {
				selector := a.Selector.String()
				if selector == "" {
					selector = "body"
				}
				return c.Call(ctx, OpGetText, GetTextParams{
					SessionID: a.SessionID.String(),
					Selector:  selector,
					MaxChars:  a.MaxChars.Or(DefaultTextChars),
				})
			}),

		tools.TypedE("browser_get_page_source",
			"Get the current page HTML source. Call this after opening a URL to see the real page structure "+
				"(forms, inputs, buttons, placeholders). Use the returned html to decide how to fill and click. "+
				"Set clean=true to strip scripts and styles.",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id": sessionProp(),
				"max_chars":  tools.IntProp("Max HTML length to return (default 18000)"),
				"clean":      tools.BoolProp("Strip scripts, styles and noise attributes"),
			}, []string{"session_id"}),
			func(ctx context.Context, a pageSourceArgs) (types.ToolResult, error) {
				return c.Call(ctx, OpGetPageSource, PageSourceParams{
					SessionID: a.SessionID.String(),
					MaxChars:  a.MaxChars.Or(DefaultSourceChars),
					Clean:     a.Clean.Or(false),
				})
			}),

		tools.TypedE("browser_screenshot", "Take a screenshot.",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id":      sessionProp(),
				"screenshot_path": tools.StringProp("Save path"),
				"full_page":       tools.BoolProp("Full page screenshot"),
			}, []string{"session_id"}),
			func(ctx context.Context, a screenshotArgs) (types.ToolResult, error) {
				path := a.Path.String()
				if path == "" {
					path = filepath.Join(opts.ScreenshotDir, fmt.Sprintf("browser_%d.png", time.Now().UnixMilli()))
				}
				return c.Call(ctx, OpScreenshot, ScreenshotParams{
					SessionID: a.SessionID.String(),
					Path:      path,
					FullPage:  a.FullPage.Or(true),
				})
			}),

		tools.TypedE("browser_close", "Close a browser session.",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id": sessionProp(),
			}, []string{"session_id"}),
			func(ctx context.Context, a sessionArgs) (types.ToolResult, error) {
				return c.Call(ctx, OpCloseSession, SessionParams{SessionID: a.SessionID.String()})
			}),

		tools.TypedE("browser_get_visible_inputs",
			"Get visible input/textarea/button elements on current page (placeholder, name, id, type, text). "+
				"Call this before filling login forms to see what fields exist (e.g. phone+code vs username+password).",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id": sessionProp(),
			}, []string{"session_id"}),
			func(ctx context.Context, a sessionArgs) (types.ToolResult, error) {
				return c.Call(ctx, OpGetVisibleInputs, SessionParams{SessionID: a.SessionID.String()})
			}),

		tools.TypedE("browser_fill_by_placeholder",
			"Fill the first input whose placeholder contains the given substring. "+
				"Use for login when page has placeholders like 输入手机号, 输入验证码.",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id":            sessionProp(),
				"placeholder_substring": tools.StringProp("Placeholder text or substring (e.g. 输入手机号, 验证码)"),
				"text":                  tools.StringProp("Text to fill"),
			}, []string{"session_id", "placeholder_substring", "text"}),
			func(ctx context.Context, a placeholderArgs) (types.ToolResult, error) {
				return c.Call(ctx, OpFillByPlaceholder, PlaceholderParams{
					SessionID:   a.SessionID.String(),
					Placeholder: a.Placeholder.String(),
					Text:        a.Text.String(),
				})
			}),

		tools.TypedE("browser_click_by_text",
			"Click the first element whose visible text contains the given substring (e.g. 获取验证码, 登录).",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id":     sessionProp(),
				"text_substring": tools.StringProp("Button/link text or substring"),
			}, []string{"session_id", "text_substring"}),
			func(ctx context.Context, a clickTextArgs) (types.ToolResult, error) {
				if a.Text == "" {
					return missing("text_substring"), nil
				}
				return c.Call(ctx, OpClickByText, TextParams{
					SessionID: a.SessionID.String(),
					Text:      a.Text.String(),
				})
			}),

		tools.TypedE("browser_check_agreement",
			"Check login agreement checkbox/label if present (e.g. 我已阅读并同意 ...). Use before clicking 获取验证码 or 登录.",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id": sessionProp(),
			}, []string{"session_id"}),
			func(ctx context.Context, a sessionArgs) (types.ToolResult, error) {
				return c.Call(ctx, OpCheckAgreement, SessionParams{SessionID: a.SessionID.String()})
			}),
	}
}
