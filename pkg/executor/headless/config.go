package headless

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/config"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/skills"
)

// RunConfig is the YAML run file for one unattended task.
//
//	task: 帮我在小红书发布一篇关于长沙旅游的帖子，手机号15007473274
//	timeout: 15m
//	skills:
//	  denied: ["browser_*"]
//	agent:
//	  max_rounds: 60
//	device:
//	  rich_driver: true
//
// The section blocks (llm, agent, device, browser, search, imagegen,
// events) use the same keys as the JSON config file and override it for
// this run only.
type RunConfig struct {
	// Task description
	Task string `yaml:"task" json:"task"`

	// Timeout bounds the whole run. Zero means no limit.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Skill restrictions, as glob patterns over skill names
	Skills SkillConstraints `yaml:"skills" json:"skills"`

	// Artifacts configuration
	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts"`

	LLM      map[string]interface{} `yaml:"llm" json:"llm,omitempty"`
	Agent    map[string]interface{} `yaml:"agent" json:"agent,omitempty"`
	Device   map[string]interface{} `yaml:"device" json:"device,omitempty"`
	Browser  map[string]interface{} `yaml:"browser" json:"browser,omitempty"`
	Search   map[string]interface{} `yaml:"search" json:"search,omitempty"`
	ImageGen map[string]interface{} `yaml:"imagegen" json:"imagegen,omitempty"`
	Events   map[string]interface{} `yaml:"events" json:"events,omitempty"`

	// ConfigFilePath is where the run file was loaded from, if anywhere.
	ConfigFilePath string `yaml:"-" json:"-"`
}

// SkillConstraints limits which skills the run may dispatch.
type SkillConstraints struct {
	Allowed []string `yaml:"allowed" json:"allowed"`
	Denied  []string `yaml:"denied" json:"denied"`
}

// ArtifactConfig defines artifact generation configuration
type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// Individual format flags
	JSON     bool `yaml:"json" json:"json"`
	Markdown bool `yaml:"markdown" json:"markdown"`
}

// Validate validates the configuration
func (c *RunConfig) Validate() error {
	if c.Task == "" {
		return fmt.Errorf("task description is required")
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	if c.Artifacts.Enabled && c.Artifacts.OutputDir == "" {
		return fmt.Errorf("artifacts.output_dir is required when artifacts are enabled")
	}

	if _, err := c.Policy(); err != nil {
		return err
	}
	return nil
}

// Policy builds the surface policy for the skills block, or nil when the
// block is empty.
func (c *RunConfig) Policy() (*skills.SurfacePolicy, error) {
	if len(c.Skills.Allowed) == 0 && len(c.Skills.Denied) == 0 {
		return nil, nil
	}
	p, err := skills.NewSurfacePolicy(c.Skills.Allowed, c.Skills.Denied)
	if err != nil {
		return nil, fmt.Errorf("invalid skills constraint: %w", err)
	}
	return p.WithReason("restricted by the run file"), nil
}

// Sections returns the non-empty section overrides keyed by section id.
func (c *RunConfig) Sections() map[string]map[string]interface{} {
	out := map[string]map[string]interface{}{}
	for id, data := range map[string]map[string]interface{}{
		config.SectionIDLLM:      c.LLM,
		config.SectionIDAgent:    c.Agent,
		config.SectionIDDevice:   c.Device,
		config.SectionIDBrowser:  c.Browser,
		config.SectionIDSearch:   c.Search,
		config.SectionIDImageGen: c.ImageGen,
		config.SectionIDEvents:   c.Events,
	} {
		if len(data) > 0 {
			out[id] = data
		}
	}
	return out
}

// Apply merges the section overrides into m. Nothing is saved; the store on
// disk keeps its values.
func (c *RunConfig) Apply(m *config.Manager) error {
	if m == nil {
		return fmt.Errorf("configuration is not initialized")
	}

	sections := c.Sections()
	ids := make([]string, 0, len(sections))
	for id := range sections {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		section, ok := m.GetSection(id)
		if !ok {
			return fmt.Errorf("unknown config section %q", id)
		}
		if err := section.SetData(sections[id]); err != nil {
			return fmt.Errorf("section %s: %w", id, err)
		}
		if err := section.Validate(); err != nil {
			return fmt.Errorf("section %s: %w", id, err)
		}
	}
	return nil
}

// DefaultRunConfig returns a default configuration suitable for most use cases
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		Timeout: 15 * time.Minute,
		Artifacts: ArtifactConfig{
			Enabled:   true,
			OutputDir: "output/runs",
			JSON:      true,
			Markdown:  true,
		},
	}
}

// LoadRunConfig loads a run file over the defaults.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	cfg := DefaultRunConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse run file: %w", err)
	}
	cfg.ConfigFilePath = path
	return cfg, nil
}
