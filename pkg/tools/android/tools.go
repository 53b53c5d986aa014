package android

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent/tools"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

// ToolOptions holds defaults applied when the model omits an argument.
type ToolOptions struct {
	ScreenshotDir string
}

type sessionArgs struct {
	SessionID tools.FlexString `json:"session_id"`
}

type startArgs struct {
	DeviceID tools.FlexString `json:"device_id"`
}

type openAppArgs struct {
	SessionID tools.FlexString `json:"session_id"`
	Package   tools.FlexString `json:"package"`
}

type textArgs struct {
	SessionID tools.FlexString `json:"session_id"`
	Text      tools.FlexString `json:"text"`
}

type inputArgs struct {
	SessionID tools.FlexString `json:"session_id"`
	Text      tools.FlexString `json:"text"`
	Clear     tools.FlexBool   `json:"clear"`
}

type coordArgs struct {
	SessionID tools.FlexString `json:"session_id"`
	X         tools.FlexInt    `json:"x"`
	Y         tools.FlexInt    `json:"y"`
}

type percentArgs struct {
	SessionID tools.FlexString `json:"session_id"`
	XPct      tools.FlexFloat  `json:"x_pct"`
	YPct      tools.FlexFloat  `json:"y_pct"`
}

type resourceArgs struct {
	SessionID  tools.FlexString `json:"session_id"`
	ResourceID tools.FlexString `json:"resource_id"`
}

type descArgs struct {
	SessionID tools.FlexString `json:"session_id"`
	Desc      tools.FlexString `json:"desc"`
}

type swipeArgs struct {
	SessionID   tools.FlexString `json:"session_id"`
	Direction   tools.FlexString `json:"direction"`
	DistancePct tools.FlexFloat  `json:"distance_pct"`
	DurationMs  tools.FlexInt    `json:"duration_ms"`
}

type findArgs struct {
	SessionID   tools.FlexString `json:"session_id"`
	Text        tools.FlexString `json:"text"`
	ResourceID  tools.FlexString `json:"resource_id"`
	ContentDesc tools.FlexString `json:"content_desc"`
	ClassName   tools.FlexString `json:"class_name"`
	MaxResults  tools.FlexInt    `json:"max_results"`
}

type keyArgs struct {
	SessionID tools.FlexString `json:"session_id"`
	Key       tools.FlexString `json:"key"`
}

type dumpArgs struct {
	SessionID tools.FlexString `json:"session_id"`
	MaxChars  tools.FlexInt    `json:"max_chars"`
}

type screenshotArgs struct {
	SessionID  tools.FlexString `json:"session_id"`
	OutputPath tools.FlexString `json:"output_path"`
}

type waitArgs struct {
	SessionID tools.FlexString `json:"session_id"`
	WaitMs    tools.FlexInt    `json:"wait_ms"`
}

func session() map[string]interface{} {
	return tools.StringProp("")
}

func missing(field string) types.ToolResult {
	return types.Fail(types.ErrInvalidArguments, fmt.Sprintf("%s is required", field))
}

// tapCoordinatesTool decodes its own arguments so that malformed
// coordinates are reported as invalid_coordinates.
func tapCoordinatesTool(reg *Registry) tools.Tool {
	return &tools.Func{
		ToolName:        "android_tap_coordinates",
		ToolDescription: "Tap at absolute screen coordinates (x, y). Use for normal apps with find_elements bounds.",
		Parameters: tools.BaseToolSchema(map[string]interface{}{
			"session_id": session(),
			"x":          tools.IntProp("X coordinate"),
			"y":          tools.IntProp("Y coordinate"),
		}, []string{"session_id", "x", "y"}),
		Fn: func(ctx context.Context, raw map[string]interface{}) (types.ToolResult, error) {
			var a coordArgs
			if err := tools.DecodeArgs(raw, &a); err != nil {
				return types.Fail(types.ErrInvalidCoords,
					fmt.Sprintf("x=%v, y=%v not valid integers: %v", raw["x"], raw["y"], err)), nil
			}
			if !a.X.Set || !a.Y.Set {
				return types.Fail(types.ErrInvalidCoords, "both x and y are required"), nil
			}
			return reg.TapCoordinates(ctx, a.SessionID.String(), a.X.Value, a.Y.Value), nil
		},
	}
}

// Tools returns the android_* skills backed by reg.
func Tools(reg *Registry, opts ToolOptions) []tools.Tool {
	if opts.ScreenshotDir == "" {
		opts.ScreenshotDir = filepath.Join("output", "screenshots")
	}

	return []tools.Tool{
		tools.Typed("android_list_devices", "List connected Android devices from ADB.",
			tools.BaseToolSchema(nil, nil),
			func(ctx context.Context, _ struct{}) types.ToolResult {
				return reg.ListDevices(ctx)
			}),

		tools.Typed("android_start", "Start Android automation session with optional device id.",
			tools.BaseToolSchema(map[string]interface{}{
				"device_id": tools.StringProp("ADB device id, optional"),
			}, nil),
			func(ctx context.Context, a startArgs) types.ToolResult {
				return reg.StartSession(ctx, a.DeviceID.String())
			}),

		tools.Typed("android_stop", "Stop Android automation session.",
			tools.BaseToolSchema(map[string]interface{}{"session_id": session()}, []string{"session_id"}),
			func(ctx context.Context, a sessionArgs) types.ToolResult {
				return reg.StopSession(a.SessionID.String())
			}),

		tools.Typed("android_open_app", "Open Android app by package name (e.g. com.xingin.xhs).",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id": session(),
				"package":    tools.StringProp(""),
			}, []string{"session_id", "package"}),
			func(ctx context.Context, a openAppArgs) types.ToolResult {
				if a.Package == "" {
					return missing("package")
				}
				return reg.OpenApp(ctx, a.SessionID.String(), a.Package.String())
			}),

		tools.Typed("android_tap_text", "Tap Android UI element by visible text. Use when the element has readable text.",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id": session(),
				"text":       tools.StringProp("Visible text on the element"),
			}, []string{"session_id", "text"}),
			func(ctx context.Context, a textArgs) types.ToolResult {
				if a.Text == "" {
					return missing("text")
				}
				return reg.TapText(ctx, a.SessionID.String(), a.Text.String())
			}),

		tapCoordinatesTool(reg),

		tools.Typed("android_tap_percent",
			"Tap at a percentage position on screen (0-100). x_pct=50 means horizontal center, y_pct=70 means 70% from top. "+
				"USE THIS for game engine UIs: read the percentage grid lines on the screenshot and pass the matching percentages. "+
				"Handles screen orientation automatically.",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id": session(),
				"x_pct":      tools.NumberProp("Horizontal percentage 0-100 (0=left edge, 100=right edge)"),
				"y_pct":      tools.NumberProp("Vertical percentage 0-100 (0=top edge, 100=bottom edge)"),
			}, []string{"session_id", "x_pct", "y_pct"}),
			func(ctx context.Context, a percentArgs) types.ToolResult {
				if !a.XPct.Set || !a.YPct.Set {
					return types.Fail(types.ErrInvalidCoords, "both x_pct and y_pct are required")
				}
				return reg.TapPercent(ctx, a.SessionID.String(), a.XPct.Value, a.YPct.Value)
			}),

		tools.Typed("android_tap_resource_id",
			"Tap element by resource-id attribute (e.g. 'com.xingin.xhs:id/xxx'). Get resource-id from dump_ui XML or find_elements.",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id":  session(),
				"resource_id": tools.StringProp("Full or partial resource-id"),
			}, []string{"session_id", "resource_id"}),
			func(ctx context.Context, a resourceArgs) types.ToolResult {
				if a.ResourceID == "" {
					return missing("resource_id")
				}
				return reg.TapResourceID(ctx, a.SessionID.String(), a.ResourceID.String())
			}),

		tools.Typed("android_tap_content_desc",
			"Tap element by content-desc (accessibility label). Useful for image buttons with accessibility descriptions.",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id": session(),
				"desc":       tools.StringProp("Full or partial content-description"),
			}, []string{"session_id", "desc"}),
			func(ctx context.Context, a descArgs) types.ToolResult {
				if a.Desc == "" {
					return missing("desc")
				}
				return reg.TapContentDesc(ctx, a.SessionID.String(), a.Desc.String())
			}),

		tools.Typed("android_swipe", "Swipe screen in a direction. Use for scrolling through feeds or pages.",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id":   session(),
				"direction":    tools.EnumProp("Swipe direction", "up", "down", "left", "right"),
				"distance_pct": tools.NumberProp("Swipe distance as fraction of screen (0.0-1.0, default 0.5)"),
				"duration_ms":  tools.IntProp("Swipe duration in ms (default 300)"),
			}, []string{"session_id", "direction"}),
			func(ctx context.Context, a swipeArgs) types.ToolResult {
				direction := a.Direction.String()
				if direction == "" {
					direction = "up"
				}
				return reg.Swipe(ctx, a.SessionID.String(), direction,
					a.DistancePct.Or(DefaultSwipePct), a.DurationMs.Or(DefaultSwipeMs))
			}),

		tools.Typed("android_find_elements",
			"Find UI elements by criteria (text, resource_id, content_desc, class_name). Returns list with text, "+
				"resource-id, content-desc, bounds, clickable status. Use to locate elements before tapping.",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id":   session(),
				"text":         tools.StringProp("Text or partial text to match"),
				"resource_id":  tools.StringProp("Resource ID or partial match"),
				"content_desc": tools.StringProp("Content description or partial match"),
				"class_name":   tools.StringProp("Android class name (e.g. android.widget.ImageView)"),
				"max_results":  tools.IntProp("Max elements to return (default 10)"),
			}, []string{"session_id"}),
			func(ctx context.Context, a findArgs) types.ToolResult {
				return reg.FindElements(ctx, a.SessionID.String(), FindQuery{
					Text:        a.Text.String(),
					ResourceID:  a.ResourceID.String(),
					ContentDesc: a.ContentDesc.String(),
					ClassName:   a.ClassName.String(),
					MaxResults:  a.MaxResults.Or(DefaultFindResults),
				})
			}),

		tools.Typed("android_input_text", "Input text on Android device.",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id": session(),
				"text":       tools.StringProp(""),
				"clear":      tools.BoolProp(""),
			}, []string{"session_id", "text"}),
			func(ctx context.Context, a inputArgs) types.ToolResult {
				return reg.InputText(ctx, a.SessionID.String(), a.Text.String(), a.Clear.Or(false))
			}),

		tools.Typed("android_press_key", "Press Android key event (back/home/enter/recent).",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id": session(),
				"key":        tools.StringProp(""),
			}, []string{"session_id", "key"}),
			func(ctx context.Context, a keyArgs) types.ToolResult {
				if a.Key == "" {
					return missing("key")
				}
				return reg.PressKey(ctx, a.SessionID.String(), a.Key.String())
			}),

		tools.Typed("android_dump_ui", "Dump Android UI hierarchy XML for planning and element discovery.",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id": session(),
				"max_chars":  tools.IntProp(""),
			}, []string{"session_id"}),
			func(ctx context.Context, a dumpArgs) types.ToolResult {
				return reg.DumpUI(ctx, a.SessionID.String(), a.MaxChars.Or(DefaultDumpChars))
			}),

		tools.Typed("android_screenshot", "Take Android screenshot to output path.",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id":  session(),
				"output_path": tools.StringProp(""),
			}, []string{"session_id"}),
			func(ctx context.Context, a screenshotArgs) types.ToolResult {
				path := a.OutputPath.String()
				if path == "" {
					path = filepath.Join(opts.ScreenshotDir, fmt.Sprintf("android_%d.png", time.Now().UnixMilli()))
				}
				return reg.Screenshot(ctx, a.SessionID.String(), path)
			}),

		tools.Typed("android_wait", "Wait for a short time in Android workflow.",
			tools.BaseToolSchema(map[string]interface{}{
				"session_id": session(),
				"wait_ms":    tools.IntProp(""),
			}, []string{"session_id"}),
			func(ctx context.Context, a waitArgs) types.ToolResult {
				return reg.Wait(ctx, a.SessionID.String(), a.WaitMs.Or(DefaultWaitMs))
			}),

		tools.Typed("android_get_screen_size", "Get screen width, height and orientation of the Android device.",
			tools.BaseToolSchema(map[string]interface{}{"session_id": session()}, []string{"session_id"}),
			func(ctx context.Context, a sessionArgs) types.ToolResult {
				return reg.GetScreenSize(ctx, a.SessionID.String())
			}),
	}
}
