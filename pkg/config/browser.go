package config

import (
	"fmt"
	"sync"
)

// SectionIDBrowser is the identifier for the browser worker section
const SectionIDBrowser = "browser"

// BrowserSettings is a value copy of the browser section.
type BrowserSettings struct {
	Headless       bool
	TimeoutMs      float64
	ViewportWidth  int
	ViewportHeight int
	// WorkerCommand overrides the worker process command line. Empty means
	// the current executable with the browser-worker subcommand.
	WorkerCommand []string
}

// BrowserSection configures the out-of-process browser worker.
type BrowserSection struct {
	settings BrowserSettings
	mu       sync.RWMutex
}

// NewBrowserSection creates the section with defaults.
func NewBrowserSection() *BrowserSection {
	s := &BrowserSection{}
	s.Reset()
	return s
}

func (s *BrowserSection) ID() string    { return SectionIDBrowser }
func (s *BrowserSection) Title() string { return "Browser Worker" }
func (s *BrowserSection) Description() string {
	return "Playwright worker process command, headless mode and timeouts."
}

func (s *BrowserSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"headless":        s.settings.Headless,
		"timeout_ms":      s.settings.TimeoutMs,
		"viewport_width":  s.settings.ViewportWidth,
		"viewport_height": s.settings.ViewportHeight,
		"worker_command":  append([]string(nil), s.settings.WorkerCommand...),
	}
}

func (s *BrowserSection) SetData(data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := asBool(data["headless"]); ok {
		s.settings.Headless = v
	}
	if v, ok := asFloat(data["timeout_ms"]); ok {
		s.settings.TimeoutMs = v
	}
	if v, ok := asInt(data["viewport_width"]); ok {
		s.settings.ViewportWidth = v
	}
	if v, ok := asInt(data["viewport_height"]); ok {
		s.settings.ViewportHeight = v
	}
	if v, ok := asStringSlice(data["worker_command"]); ok {
		s.settings.WorkerCommand = v
	}
	return nil
}

func (s *BrowserSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings.TimeoutMs < 0 {
		return fmt.Errorf("timeout_ms cannot be negative")
	}
	if s.settings.ViewportWidth <= 0 || s.settings.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", s.settings.ViewportWidth, s.settings.ViewportHeight)
	}
	return nil
}

func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = BrowserSettings{
		TimeoutMs:      30000,
		ViewportWidth:  1280,
		ViewportHeight: 720,
	}
}

// Settings returns a copy of the current values.
func (s *BrowserSection) Settings() BrowserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.settings
	out.WorkerCommand = append([]string(nil), s.settings.WorkerCommand...)
	return out
}
