package config

import (
	"fmt"
	"sync"
)

// SectionIDAgent is the identifier for the orchestration loop section
const SectionIDAgent = "agent"

// Defaults for the orchestration loop.
const (
	DefaultMaxRounds         = 40
	DefaultMobilePackage     = "com.xingin.xhs"
	DefaultSparseDumpChars   = 3000
	DefaultSparseDumpNodes   = 5
	DefaultEmptySearchStreak = 2
	DefaultScreenshotDir     = "output/screenshots"
)

// AgentSettings is a value copy of the agent section.
type AgentSettings struct {
	MaxRounds         int
	MobilePackage     string
	SparseDumpChars   int
	SparseDumpNodes   int
	EmptySearchStreak int
	ScreenshotDir     string
}

// AgentSection configures the round budget and the adaptation thresholds.
type AgentSection struct {
	settings AgentSettings
	mu       sync.RWMutex
}

// NewAgentSection creates the section with defaults.
func NewAgentSection() *AgentSection {
	s := &AgentSection{}
	s.Reset()
	return s
}

func (s *AgentSection) ID() string    { return SectionIDAgent }
func (s *AgentSection) Title() string { return "Agent Loop" }
func (s *AgentSection) Description() string {
	return "Round budget, target app package and game-mode detection thresholds."
}

func (s *AgentSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"max_rounds":          s.settings.MaxRounds,
		"mobile_package":      s.settings.MobilePackage,
		"sparse_dump_chars":   s.settings.SparseDumpChars,
		"sparse_dump_nodes":   s.settings.SparseDumpNodes,
		"empty_search_streak": s.settings.EmptySearchStreak,
		"screenshot_dir":      s.settings.ScreenshotDir,
	}
}

func (s *AgentSection) SetData(data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := asInt(data["max_rounds"]); ok {
		s.settings.MaxRounds = v
	}
	if v, ok := asString(data["mobile_package"]); ok && v != "" {
		s.settings.MobilePackage = v
	}
	if v, ok := asInt(data["sparse_dump_chars"]); ok {
		s.settings.SparseDumpChars = v
	}
	if v, ok := asInt(data["sparse_dump_nodes"]); ok {
		s.settings.SparseDumpNodes = v
	}
	if v, ok := asInt(data["empty_search_streak"]); ok {
		s.settings.EmptySearchStreak = v
	}
	if v, ok := asString(data["screenshot_dir"]); ok && v != "" {
		s.settings.ScreenshotDir = v
	}
	return nil
}

func (s *AgentSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.settings.MaxRounds <= 0 {
		return fmt.Errorf("max_rounds must be positive, got %d", s.settings.MaxRounds)
	}
	if s.settings.EmptySearchStreak <= 0 {
		return fmt.Errorf("empty_search_streak must be positive, got %d", s.settings.EmptySearchStreak)
	}
	return nil
}

func (s *AgentSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = AgentSettings{
		MaxRounds:         DefaultMaxRounds,
		MobilePackage:     DefaultMobilePackage,
		SparseDumpChars:   DefaultSparseDumpChars,
		SparseDumpNodes:   DefaultSparseDumpNodes,
		EmptySearchStreak: DefaultEmptySearchStreak,
		ScreenshotDir:     DefaultScreenshotDir,
	}
}

// Settings returns a copy of the current values.
func (s *AgentSection) Settings() AgentSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}
