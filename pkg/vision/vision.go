// Package vision prepares device screenshots for a multimodal model:
// downscaling, an optional coordinate grid, and data URI encoding.
package vision

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"
	_ "image/jpeg"
	"image/png"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// MaxSide is the longest edge sent in normal mode.
	MaxSide = 1024

	// GameMaxSide is the longest edge sent when the grid is drawn.
	GameMaxSide = 1600

	gridStepPct = 10
)

var (
	gridLine  = color.NRGBA{R: 255, G: 50, B: 50, A: 90}
	gridLabel = color.NRGBA{R: 255, G: 50, B: 50, A: 220}
)

// Options controls Prepare.
type Options struct {
	// MaxSide bounds the longest edge. Zero means MaxSide, or GameMaxSide
	// when Grid is set.
	MaxSide int

	// Grid draws lines every 10% labelled with real device pixels.
	Grid bool

	// ScreenWidth and ScreenHeight are the real device resolution used for
	// grid labels. When zero the image size is used.
	ScreenWidth  int
	ScreenHeight int
}

// Prepare decodes a PNG or JPEG screenshot, optionally overlays the grid,
// resizes it and returns a PNG data URI.
func Prepare(raw []byte, opts Options) (string, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode screenshot: %w", err)
	}

	maxSide := opts.MaxSide
	if maxSide <= 0 {
		maxSide = MaxSide
		if opts.Grid {
			maxSide = GameMaxSide
		}
	}

	img := src
	if opts.Grid {
		w, h := opts.ScreenWidth, opts.ScreenHeight
		if w <= 0 || h <= 0 {
			b := src.Bounds()
			w, h = b.Dx(), b.Dy()
		}
		img = DrawGrid(src, w, h)
	}
	img = Resize(img, maxSide)

	return EncodeDataURI(img)
}

// EncodeDataURI encodes img as a PNG data URI.
func EncodeDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Resize scales img so that its longest edge is at most maxSide, keeping
// the aspect ratio. Smaller images are returned unchanged.
func Resize(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if maxSide <= 0 || longest <= maxSide {
		return img
	}

	nw := max(1, w*maxSide/longest)
	nh := max(1, h*maxSide/longest)
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// DrawGrid returns a copy of img with translucent lines at every 10% of
// each axis. Each line is labelled with the coordinate it represents on a
// realW x realH screen, so a model can read tap targets off the image.
func DrawGrid(img image.Image, realW, realH int) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	stddraw.Draw(dst, dst.Bounds(), img, b.Min, stddraw.Src)

	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	line := image.NewUniform(gridLine)
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(gridLabel),
		Face: basicfont.Face7x13,
	}
	ascent := basicfont.Face7x13.Metrics().Ascent.Ceil()

	for pct := gridStepPct; pct < 100; pct += gridStepPct {
		x := w * pct / 100
		stddraw.Draw(dst, image.Rect(x, 0, x+1, h), line, image.Point{}, stddraw.Over)
		d.Dot = fixed.P(x+3, 3+ascent)
		d.DrawString(strconv.Itoa(realW * pct / 100))

		y := h * pct / 100
		stddraw.Draw(dst, image.Rect(0, y, w, y+1), line, image.Point{}, stddraw.Over)
		d.Dot = fixed.P(3, y+3+ascent)
		d.DrawString(strconv.Itoa(realH * pct / 100))
	}
	return dst
}

// Caption builds the text that accompanies an injected screenshot.
func Caption(grid bool, screenW, screenH int) string {
	var text string
	if grid && screenW > 0 {
		orientation := "竖屏"
		if screenW > screenH {
			orientation = "横屏"
		}
		text = fmt.Sprintf("当前手机屏幕截图（%s，实际分辨率 %d×%d）。"+
			"图片上叠加了红色坐标网格线（每条线旁标注了真实像素坐标）。"+
			"请根据网格参考线精确定位目标元素的坐标，然后直接用 android_tap_coordinates 点击。"+
			"不要调用 android_find_elements（游戏引擎界面无法识别 UI 元素）。",
			orientation, screenW, screenH)
		return text
	}
	text = "当前手机屏幕截图，请根据画面判断界面状态。" +
		"要点击某个元素时，先用 android_find_elements 获取精确 bounds，计算中心坐标后再 tap，不要从截图估算坐标。"
	return WithResolution(text, screenW, screenH)
}

// WithResolution appends the screen resolution to caption unless it is
// unknown or already mentioned.
func WithResolution(caption string, screenW, screenH int) string {
	if screenW <= 0 || screenH <= 0 || strings.Contains(caption, "分辨率") {
		return caption
	}
	return fmt.Sprintf("%s（屏幕分辨率: %d×%d）", caption, screenW, screenH)
}
