package browser

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent/tools"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCaller struct {
	op     Op
	params interface{}
	calls  int
}

func (r *recordingCaller) Call(ctx context.Context, op Op, params interface{}) (types.ToolResult, error) {
	r.op = op
	r.params = params
	r.calls++
	return types.OK(nil), nil
}

func toolByName(t *testing.T, all []tools.Tool, name string) tools.Tool {
	t.Helper()
	for _, tool := range all {
		if tool.Name() == name {
			return tool
		}
	}
	t.Fatalf("tool %s not found", name)
	return nil
}

func TestTools_Catalog(t *testing.T) {
	all := Tools(&recordingCaller{}, ToolOptions{})
	require.Len(t, all, 12)
	for _, tool := range all {
		assert.True(t, strings.HasPrefix(tool.Name(), "browser_"), tool.Name())
		assert.Equal(t, "object", tool.Schema()["type"])
	}
}

func TestTools_Defaults(t *testing.T) {
	caller := &recordingCaller{}
	all := Tools(caller, ToolOptions{Headless: true, ScreenshotDir: "shots"})
	ctx := context.Background()

	_, err := toolByName(t, all, "browser_start").Execute(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, StartParams{Headless: true}, caller.params)

	_, err = toolByName(t, all, "browser_open").Execute(ctx, map[string]interface{}{
		"session_id": "s1", "url": "https://www.xiaohongshu.com",
	})
	require.NoError(t, err)
	assert.Equal(t, OpOpenURL, caller.op)
	assert.Equal(t, OpenParams{SessionID: "s1", URL: "https://www.xiaohongshu.com", WaitMs: DefaultWaitMs}, caller.params)

	_, err = toolByName(t, all, "browser_get_text").Execute(ctx, map[string]interface{}{"session_id": "s1"})
	require.NoError(t, err)
	assert.Equal(t, GetTextParams{SessionID: "s1", Selector: "body", MaxChars: DefaultTextChars}, caller.params)

	_, err = toolByName(t, all, "browser_get_page_source").Execute(ctx, map[string]interface{}{
		"session_id": "s1", "clean": "true", "max_chars": "500",
	})
	require.NoError(t, err)
	assert.Equal(t, PageSourceParams{SessionID: "s1", MaxChars: 500, Clean: true}, caller.params)

	_, err = toolByName(t, all, "browser_screenshot").Execute(ctx, map[string]interface{}{"session_id": "s1"})
	require.NoError(t, err)
	shot := caller.params.(ScreenshotParams)
	assert.True(t, shot.FullPage)
	assert.Equal(t, "shots", filepath.Dir(shot.Path))
	assert.True(t, strings.HasPrefix(filepath.Base(shot.Path), "browser_"))
}

func TestTools_MissingArguments(t *testing.T) {
	caller := &recordingCaller{}
	all := Tools(caller, ToolOptions{})

	for name, args := range map[string]map[string]interface{}{
		"browser_open":          {"session_id": "s1"},
		"browser_fill":          {"session_id": "s1", "text": "x"},
		"browser_click":         {"session_id": "s1"},
		"browser_click_by_text": {"session_id": "s1"},
	} {
		res, err := toolByName(t, all, name).Execute(context.Background(), args)
		require.NoError(t, err)
		assert.Equal(t, types.ErrInvalidArguments, res.ErrorKind(), name)
	}
	assert.Equal(t, 0, caller.calls)
}
