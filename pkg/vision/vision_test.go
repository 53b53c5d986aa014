package vision

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeURI(t *testing.T, uri string) image.Image {
	t.Helper()
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestResize(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1080, 2400))
	out := Resize(src, 1024)
	assert.Equal(t, 460, out.Bounds().Dx())
	assert.Equal(t, 1024, out.Bounds().Dy())

	small := image.NewRGBA(image.Rect(0, 0, 100, 50))
	assert.Same(t, small, Resize(small, 1024))
}

func TestPrepare(t *testing.T) {
	uri, err := Prepare(solidPNG(t, 2000, 1000), Options{})
	require.NoError(t, err)
	img := decodeURI(t, uri)
	assert.Equal(t, 1024, img.Bounds().Dx())
	assert.Equal(t, 512, img.Bounds().Dy())

	uri, err = Prepare(solidPNG(t, 2000, 1000), Options{Grid: true, ScreenWidth: 2400, ScreenHeight: 1080})
	require.NoError(t, err)
	img = decodeURI(t, uri)
	assert.Equal(t, GameMaxSide, img.Bounds().Dx())

	_, err = Prepare([]byte("not an image"), Options{})
	assert.Error(t, err)
}

func TestDrawGrid(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 400))
	for y := 0; y < 400; y++ {
		for x := 0; x < 200; x++ {
			src.Set(x, y, color.White)
		}
	}
	out := DrawGrid(src, 1080, 2400)

	// vertical line at 10% of the width, away from any label
	r, g, b, _ := out.At(20, 190).RGBA()
	assert.Greater(t, r, g)
	assert.Equal(t, g, b)

	// untouched pixel
	r, g, b, _ = out.At(50, 190).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)

	// the source is not modified
	r, g, _, _ = src.At(20, 190).RGBA()
	assert.Equal(t, r, g)
}

func TestCaption(t *testing.T) {
	game := Caption(true, 2400, 1080)
	assert.Contains(t, game, "横屏")
	assert.Contains(t, game, "2400×1080")

	assert.Contains(t, Caption(true, 1080, 2400), "竖屏")

	normal := Caption(false, 1080, 2400)
	assert.True(t, strings.HasSuffix(normal, "（屏幕分辨率: 1080×2400）"))
	assert.NotContains(t, Caption(false, 0, 0), "分辨率")

	assert.Equal(t, "已含分辨率", WithResolution("已含分辨率", 1, 1))
}
