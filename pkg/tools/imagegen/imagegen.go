// Package imagegen renders illustrations through a Stable Diffusion WebUI
// txt2img endpoint.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent/tools"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/config"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/logging"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
)

var imagegenLog *logging.Logger

func init() {
	var err error
	imagegenLog, err = logging.NewLogger("imagegen")
	if err != nil {
		imagegenLog.Warnf("Failed to initialize imagegen logger, using stderr fallback: %v", err)
	}
}

// ErrGenerationFailed is the error kind for backend or decoding failures.
const ErrGenerationFailed = "image_generation_failed"

const (
	// BasePrompt is prefixed to every positive prompt.
	BasePrompt = "(masterpiece, best quality), "

	// BaseNegativePrompt is used when the caller passes no negative prompt.
	BaseNegativePrompt = "EasyNegative, (worst quality, low quality:1.4), lowres, bad anatomy, bad hands, text, error, " +
		"missing fingers, extra digit, fewer digits, cropped, worst quality, low quality, normal quality, " +
		"jpeg artifacts, signature, watermark, username, blurry"

	// DefaultFilename is the skill's default output name.
	DefaultFilename = "topic_illustration.png"

	txt2imgPath = "/sdapi/v1/txt2img"
)

// Request is one txt2img job.
type Request struct {
	Prompt         string
	NegativePrompt string
	OutputDir      string
	Filename       string
}

type txt2imgPayload struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Steps          int     `json:"steps"`
	CFGScale       float64 `json:"cfg_scale"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	SamplerName    string  `json:"sampler_name"`
	Seed           int     `json:"seed"`
	RestoreFaces   bool    `json:"restore_faces"`
}

type txt2imgResponse struct {
	Images []string `json:"images"`
}

// Client talks to one WebUI instance.
type Client struct {
	settings config.ImageGenSettings
	http     *http.Client
	now      func() time.Time
}

// NewClient creates a client. A nil httpClient gets a generous timeout since
// sampling takes tens of seconds on consumer GPUs.
func NewClient(settings config.ImageGenSettings, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{settings: settings, http: httpClient, now: time.Now}
}

// Generate runs txt2img and writes the first image as PNG. It returns the
// path written.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	negative := req.NegativePrompt
	if strings.TrimSpace(negative) == "" {
		negative = BaseNegativePrompt
	}
	payload := txt2imgPayload{
		Prompt:         BasePrompt + req.Prompt,
		NegativePrompt: negative,
		Steps:          c.settings.Steps,
		CFGScale:       c.settings.CFGScale,
		Width:          c.settings.Width,
		Height:         c.settings.Height,
		SamplerName:    c.settings.Sampler,
		Seed:           -1,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(c.settings.URL, "/") + txt2imgPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build txt2img request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	imagegenLog.Infof("txt2img %dx%d steps=%d", payload.Width, payload.Height, payload.Steps)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("txt2img request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read txt2img response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("txt2img HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded txt2imgResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode txt2img response: %w", err)
	}
	if len(decoded.Images) == 0 {
		return "", fmt.Errorf("txt2img returned no images")
	}

	img, err := decodeImage(decoded.Images[0])
	if err != nil {
		return "", err
	}
	return c.writePNG(img, req.OutputDir, req.Filename)
}

// decodeImage accepts plain base64 or a data URI.
func decodeImage(encoded string) (image.Image, error) {
	if i := strings.Index(encoded, ","); strings.HasPrefix(encoded, "data:") && i >= 0 {
		encoded = encoded[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode image base64: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func (c *Client) writePNG(img image.Image, dir, name string) (string, error) {
	if dir == "" {
		dir = c.settings.OutputDir
	}
	if dir == "" {
		dir = "."
	}
	if name == "" {
		name = fmt.Sprintf("illustration_%d.png", c.now().Unix())
	}
	if !strings.EqualFold(filepath.Ext(name), ".png") {
		name += ".png"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, filepath.Base(name))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// PromptFromText turns note text into a short English-tagged prompt. The
// first non-empty line carries the subject.
func PromptFromText(text string) string {
	subject := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "#*"))
		if line != "" {
			subject = line
			break
		}
	}
	if r := []rune(subject); len(r) > 80 {
		subject = string(r[:80])
	}
	if subject == "" {
		return "illustration, soft lighting, clean composition"
	}
	return subject + ", illustration, soft lighting, clean composition"
}

type generateArgs struct {
	Text           tools.FlexString `json:"text"`
	OutputDir      tools.FlexString `json:"output_dir"`
	OutputFilename tools.FlexString `json:"output_filename"`
}

// Tool returns the generate_image_from_text skill.
func Tool(c *Client) tools.Tool {
	return tools.Typed("generate_image_from_text",
		"Generate an illustration for the given text with Stable Diffusion and save it as PNG.",
		tools.BaseToolSchema(map[string]interface{}{
			"text":            tools.StringProp("Text describing the topic"),
			"output_dir":      tools.StringProp("Directory to save the image"),
			"output_filename": tools.StringProp("File name, default " + DefaultFilename),
		}, []string{"text"}),
		func(ctx context.Context, a generateArgs) types.ToolResult {
			if strings.TrimSpace(a.Text.String()) == "" {
				return types.Fail(types.ErrInvalidArguments, "text is required")
			}
			filename := a.OutputFilename.String()
			if filename == "" {
				filename = DefaultFilename
			}
			prompt := PromptFromText(a.Text.String())
			path, err := c.Generate(ctx, Request{
				Prompt:    prompt,
				OutputDir: a.OutputDir.String(),
				Filename:  filename,
			})
			if err != nil {
				imagegenLog.Warnf("image generation failed: %v", err)
				return types.Fail(ErrGenerationFailed, err.Error())
			}
			return types.OK(map[string]any{
				"image_path": path,
				"prompts": map[string]string{
					"positive": BasePrompt + prompt,
					"negative": BaseNegativePrompt,
				},
			})
		})
}
