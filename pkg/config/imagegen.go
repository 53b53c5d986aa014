package config

import (
	"fmt"
	"sync"
)

// SectionIDImageGen is the identifier for the image generation section
const SectionIDImageGen = "imagegen"

// ImageGenSettings is a value copy of the image generation section.
type ImageGenSettings struct {
	URL       string
	Width     int
	Height    int
	Steps     int
	CFGScale  float64
	Sampler   string
	OutputDir string
}

// ImageGenSection configures the Stable Diffusion WebUI backend.
type ImageGenSection struct {
	settings ImageGenSettings
	mu       sync.RWMutex
}

// NewImageGenSection creates the section with defaults.
func NewImageGenSection() *ImageGenSection {
	s := &ImageGenSection{}
	s.Reset()
	return s
}

func (s *ImageGenSection) ID() string    { return SectionIDImageGen }
func (s *ImageGenSection) Title() string { return "Image Generation" }
func (s *ImageGenSection) Description() string {
	return "Stable Diffusion WebUI txt2img endpoint and sampling parameters."
}

func (s *ImageGenSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"url":        s.settings.URL,
		"width":      s.settings.Width,
		"height":     s.settings.Height,
		"steps":      s.settings.Steps,
		"cfg_scale":  s.settings.CFGScale,
		"sampler":    s.settings.Sampler,
		"output_dir": s.settings.OutputDir,
	}
}

func (s *ImageGenSection) SetData(data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := asString(data["url"]); ok && v != "" {
		s.settings.URL = v
	}
	if v, ok := asInt(data["width"]); ok {
		s.settings.Width = v
	}
	if v, ok := asInt(data["height"]); ok {
		s.settings.Height = v
	}
	if v, ok := asInt(data["steps"]); ok {
		s.settings.Steps = v
	}
	if v, ok := asFloat(data["cfg_scale"]); ok {
		s.settings.CFGScale = v
	}
	if v, ok := asString(data["sampler"]); ok && v != "" {
		s.settings.Sampler = v
	}
	if v, ok := asString(data["output_dir"]); ok && v != "" {
		s.settings.OutputDir = v
	}
	return nil
}

func (s *ImageGenSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings.Width <= 0 || s.settings.Height <= 0 {
		return fmt.Errorf("image size must be positive, got %dx%d", s.settings.Width, s.settings.Height)
	}
	if s.settings.Steps <= 0 {
		return fmt.Errorf("steps must be positive")
	}
	return nil
}

func (s *ImageGenSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = ImageGenSettings{
		URL:       "http://127.0.0.1:7860",
		Width:     512,
		Height:    768,
		Steps:     25,
		CFGScale:  7,
		Sampler:   "DPM++ 2M Karras",
		OutputDir: "output",
	}
}

// Settings returns a copy of the current values.
func (s *ImageGenSection) Settings() ImageGenSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}
