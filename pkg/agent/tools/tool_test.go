package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tapArgs struct {
	SessionID string     `json:"session_id"`
	X         FlexInt    `json:"x"`
	Y         FlexInt    `json:"y"`
	Pct       FlexFloat  `json:"pct"`
	Clear     FlexBool   `json:"clear"`
	DeviceID  FlexString `json:"device_id"`
}

func TestDecodeArgs_Coercion(t *testing.T) {
	tests := []struct {
		name  string
		args  map[string]interface{}
		wantX int
		wantY int
	}{
		{"plain ints", map[string]interface{}{"x": 540, "y": 960}, 540, 960},
		{"json floats", map[string]interface{}{"x": float64(540.9), "y": float64(960)}, 540, 960},
		{"numeric strings", map[string]interface{}{"x": "540", "y": " 960.0 "}, 540, 960},
		{"single element lists", map[string]interface{}{"x": []interface{}{540}, "y": []interface{}{"960"}}, 540, 960},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got tapArgs
			require.NoError(t, DecodeArgs(tt.args, &got))
			assert.True(t, got.X.Set)
			assert.Equal(t, tt.wantX, got.X.Value)
			assert.Equal(t, tt.wantY, got.Y.Value)
		})
	}
}

func TestDecodeArgs_Rejects(t *testing.T) {
	for name, args := range map[string]map[string]interface{}{
		"two element list": {"x": []interface{}{540, 2299}},
		"word":             {"x": "left"},
		"object":           {"x": map[string]interface{}{"v": 1}},
		"bad bool":         {"clear": "maybe"},
		"huge float":       {"x": float64(1e19)},
		"above int32":      {"x": "2147483648"},
		"below int32":      {"y": -3e9},
	} {
		t.Run(name, func(t *testing.T) {
			var got tapArgs
			assert.Error(t, DecodeArgs(args, &got))
		})
	}
}

func TestDecodeArgs_Defaults(t *testing.T) {
	var got tapArgs
	require.NoError(t, DecodeArgs(map[string]interface{}{
		"y":         nil,
		"clear":     "TRUE",
		"pct":       []interface{}{"12.5"},
		"device_id": 5554,
	}, &got))

	assert.False(t, got.X.Set)
	assert.Equal(t, 7, got.X.Or(7))
	assert.False(t, got.Y.Set)
	assert.True(t, got.Clear.Or(false))
	assert.Equal(t, 12.5, got.Pct.Or(0))
	assert.Equal(t, "5554", got.DeviceID.String())

	require.NoError(t, DecodeArgs(nil, &got))
}

func TestFlexString_KeepsWhitespace(t *testing.T) {
	var got struct {
		Text FlexString `json:"text"`
	}
	require.NoError(t, DecodeArgs(map[string]interface{}{"text": " hello world "}, &got))
	assert.Equal(t, " hello world ", got.Text.String())
}

func TestBaseToolSchema(t *testing.T) {
	schema := BaseToolSchema(map[string]interface{}{
		"x":         IntProp("X coordinate"),
		"direction": EnumProp("", "up", "down"),
	}, []string{"x"})

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"x"}, schema["required"])
	props := schema["properties"].(map[string]interface{})
	assert.Equal(t, "integer", props["x"].(map[string]interface{})["type"])
	assert.Equal(t, []string{"up", "down"}, props["direction"].(map[string]interface{})["enum"])
	assert.NotContains(t, props["direction"], "description")

	empty := BaseToolSchema(nil, nil)
	assert.NotContains(t, empty, "required")
	assert.Empty(t, empty["properties"])
}

func TestTyped(t *testing.T) {
	called := 0
	tool := Typed("android_tap_coordinates", "Tap", BaseToolSchema(nil, nil),
		func(ctx context.Context, args tapArgs) types.ToolResult {
			called++
			return types.OK(map[string]any{"x": args.X.Value})
		})

	var _ Tool = tool
	assert.Equal(t, "android_tap_coordinates", tool.Name())

	res, err := tool.Execute(context.Background(), map[string]interface{}{"x": []interface{}{3}})
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, 1, called)

	res, err = tool.Execute(context.Background(), map[string]interface{}{"x": "nope"})
	require.NoError(t, err)
	assert.False(t, res.Success())
	assert.Equal(t, types.ErrInvalidArguments, res.ErrorKind())
	assert.Equal(t, 1, called)
}

func TestFunc(t *testing.T) {
	boom := errors.New("boom")
	tool := &Func{
		ToolName: "broken",
		Fn: func(ctx context.Context, args map[string]interface{}) (types.ToolResult, error) {
			return nil, boom
		},
	}
	assert.Equal(t, "object", tool.Schema()["type"])
	_, err := tool.Execute(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}
