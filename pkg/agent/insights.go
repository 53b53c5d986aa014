package agent

import (
	"fmt"
	"strings"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/tidwall/gjson"
)

// emitInsight reports a one-line, human-readable outcome of a successful
// call. Skills without an insight are silent.
func (r *run) emitInsight(name string, args map[string]interface{}, result types.ToolResult) {
	if text := toolInsight(name, args, result); text != "" {
		r.emit(types.NewToolInsightEvent(name, text))
	}
}

func toolInsight(name string, args map[string]interface{}, result types.ToolResult) string {
	arg := func(key string) string {
		if v, ok := args[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return ""
	}
	doc := result.JSON()

	switch name {
	case "web_search":
		var titles []string
		for _, row := range gjson.Get(doc, "results").Array() {
			title := row.Get("title").String()
			if title == "" {
				title = row.Get("name").String()
			}
			if title != "" {
				titles = append(titles, truncateRunes(title, 40))
			}
			if len(titles) == 3 {
				break
			}
		}
		if len(titles) == 0 {
			return ""
		}
		return "搜索到: " + strings.Join(titles, "; ")
	case "browser_start":
		return fmt.Sprintf("浏览器会话已创建 (id: %s...)", truncateRunes(result.SessionID(), 8))
	case "browser_open":
		return "已打开页面: " + truncateRunes(arg("url"), 60)
	case "browser_get_visible_inputs":
		return fmt.Sprintf("发现 %d 个输入框, %d 个按钮",
			len(gjson.Get(doc, "inputs").Array()), len(gjson.Get(doc, "buttons").Array()))
	case "browser_get_page_source":
		src := result.String("html")
		if src == "" {
			src = result.String("source")
		}
		return fmt.Sprintf("获取到页面源码 (%d 字符)", len([]rune(src)))
	case "browser_fill_by_placeholder":
		return "已填写: " + arg("placeholder_substring")
	case "browser_click_by_text":
		return "已点击: " + arg("text_substring")
	case "android_list_devices":
		var devices []string
		for _, d := range gjson.Get(doc, "devices").Array() {
			devices = append(devices, d.String())
		}
		shown := devices
		if len(shown) > 3 {
			shown = shown[:3]
		}
		return fmt.Sprintf("检测到 %d 台设备: %s", len(devices), strings.Join(shown, ", "))
	case "android_start":
		driver := result.String("driver")
		if driver == "" {
			driver = "adb"
		}
		return fmt.Sprintf("已连接设备 %s (驱动: %s)", result.String("device_id"), driver)
	case "android_open_app":
		return "已启动应用: " + arg("package")
	case "android_tap_text":
		return fmt.Sprintf("已点击文本: '%s'", arg("text"))
	case "android_tap_coordinates":
		x, y := arg("x"), arg("y")
		if x == "" {
			x = "?"
		}
		if y == "" {
			y = "?"
		}
		return fmt.Sprintf("已点击坐标 (%s, %s)", x, y)
	case "android_tap_resource_id":
		return "已点击资源ID: " + arg("resource_id")
	case "android_tap_content_desc":
		return fmt.Sprintf("已点击描述: '%s'", arg("desc"))
	case "android_swipe":
		return "已滑动: " + arg("direction")
	case "android_find_elements":
		return fmt.Sprintf("找到 %d 个匹配元素", gjson.Get(doc, "count").Int())
	case "android_input_text":
		return "已输入文本内容"
	case "android_dump_ui":
		return fmt.Sprintf("读取界面树 (%d 字符)", len([]rune(result.String("xml"))))
	case "android_screenshot":
		return "截图已保存: " + result.String("screenshot")
	case "android_get_screen_size":
		w, h := gjson.Get(doc, "width"), gjson.Get(doc, "height")
		return fmt.Sprintf("屏幕尺寸: %s×%s (%s)", orUnknown(w), orUnknown(h), result.String("orientation"))
	}
	return ""
}

func orUnknown(v gjson.Result) string {
	if !v.Exists() {
		return "?"
	}
	return v.String()
}

func truncateRunes(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
