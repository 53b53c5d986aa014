package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDLLM is the identifier for the LLM settings section
	SectionIDLLM = "llm"
)

// Vision modes for the LLM section.
const (
	VisionAuto = "auto"
	VisionOn   = "on"
	VisionOff  = "off"
)

// LLMSection manages the reasoning service connection.
type LLMSection struct {
	// Provider selects a credential family: dashscope, deepseek or openai.
	// Empty means infer it from the model name.
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	// Vision overrides model-name based detection of image input support.
	Vision string
	mu     sync.RWMutex
}

// NewLLMSection creates a new LLM section with default settings.
func NewLLMSection() *LLMSection {
	return &LLMSection{Vision: VisionAuto}
}

// ID returns the section identifier.
func (s *LLMSection) ID() string {
	return SectionIDLLM
}

// Title returns the section title.
func (s *LLMSection) Title() string {
	return "LLM Settings"
}

// Description returns the section description.
func (s *LLMSection) Description() string {
	return "OpenAI-compatible endpoint used for planning and tool selection. vision is auto, on or off."
}

// Data returns the current configuration data.
func (s *LLMSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"provider": s.Provider,
		"model":    s.Model,
		"base_url": s.BaseURL,
		"api_key":  s.APIKey,
		"vision":   s.Vision,
	}
}

// SetData updates the configuration from the provided data.
func (s *LLMSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if provider, ok := asString(data["provider"]); ok {
		s.Provider = provider
	}
	if model, ok := asString(data["model"]); ok {
		s.Model = model
	}
	if baseURL, ok := asString(data["base_url"]); ok {
		s.BaseURL = baseURL
	}
	if apiKey, ok := asString(data["api_key"]); ok {
		s.APIKey = apiKey
	}
	if vision, ok := asString(data["vision"]); ok && vision != "" {
		s.Vision = vision
	}
	return nil
}

// Validate validates the current configuration.
func (s *LLMSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.Vision {
	case VisionAuto, VisionOn, VisionOff:
		return nil
	default:
		return fmt.Errorf("vision must be auto, on or off, got %q", s.Vision)
	}
}

// Reset resets the section to default configuration.
func (s *LLMSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Provider = ""
	s.Model = ""
	s.BaseURL = ""
	s.APIKey = ""
	s.Vision = VisionAuto
}

// GetProvider returns the configured provider family.
func (s *LLMSection) GetProvider() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Provider
}

// GetModel returns the configured model name.
func (s *LLMSection) GetModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Model
}

// GetBaseURL returns the configured base URL.
func (s *LLMSection) GetBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.BaseURL
}

// GetAPIKey returns the configured API key.
func (s *LLMSection) GetAPIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.APIKey
}

// GetVision returns the vision mode.
func (s *LLMSection) GetVision() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Vision
}
