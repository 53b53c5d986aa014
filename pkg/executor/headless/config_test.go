package headless

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/config"
)

const sampleRunFile = `
task: 帮我在小红书发布一篇关于长沙旅游的帖子，手机号15007473274
timeout: 5m
skills:
  denied: ["browser_*"]
agent:
  max_rounds: 60
  mobile_package: com.xingin.xhs
device:
  rich_driver: true
  driver_port: 7912
artifacts:
  output_dir: runs
`

func writeRunFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadRunConfig(t *testing.T) {
	path := writeRunFile(t, sampleRunFile)

	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, path, cfg.ConfigFilePath)
	assert.Contains(t, cfg.Task, "小红书")
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
	assert.Equal(t, []string{"browser_*"}, cfg.Skills.Denied)

	// defaults survive partial blocks
	assert.True(t, cfg.Artifacts.Enabled)
	assert.True(t, cfg.Artifacts.JSON)
	assert.Equal(t, "runs", cfg.Artifacts.OutputDir)

	sections := cfg.Sections()
	assert.Len(t, sections, 2)
	assert.Equal(t, 60, sections[config.SectionIDAgent]["max_rounds"])
	assert.Equal(t, true, sections[config.SectionIDDevice]["rich_driver"])
}

func TestLoadRunConfig_Errors(t *testing.T) {
	_, err := LoadRunConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read run file")

	_, err = LoadRunConfig(writeRunFile(t, "task: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse run file")
}

func TestRunConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RunConfig)
		wantErr string
	}{
		{"valid", func(c *RunConfig) {}, ""},
		{"missing task", func(c *RunConfig) { c.Task = "" }, "task description is required"},
		{"negative timeout", func(c *RunConfig) { c.Timeout = -time.Second }, "timeout cannot be negative"},
		{"artifacts without dir", func(c *RunConfig) { c.Artifacts.OutputDir = "" }, "output_dir"},
		{"artifacts disabled", func(c *RunConfig) { c.Artifacts = ArtifactConfig{} }, ""},
		{"bad pattern", func(c *RunConfig) { c.Skills.Allowed = []string{"android_[*"} }, "invalid skills constraint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRunConfig()
			cfg.Task = "打开设备"
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestRunConfig_Policy(t *testing.T) {
	cfg := DefaultRunConfig()
	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Nil(t, p)

	cfg.Skills.Denied = []string{"browser_*"}
	p, err = cfg.Policy()
	require.NoError(t, err)

	ok, pattern := p.Allows("browser_open")
	assert.False(t, ok)
	assert.Equal(t, "browser_*", pattern)
	assert.Equal(t, "restricted by the run file", p.Reason())
	ok, _ = p.Allows("android_tap_text")
	assert.True(t, ok)
}

func TestRunConfig_Apply(t *testing.T) {
	store, err := config.NewFileStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	m := config.NewManager(store)
	require.NoError(t, m.RegisterSection(config.NewAgentSection()))
	require.NoError(t, m.RegisterSection(config.NewDeviceSection()))

	cfg, err := LoadRunConfig(writeRunFile(t, sampleRunFile))
	require.NoError(t, err)
	require.NoError(t, cfg.Apply(m))

	section, ok := m.GetSection(config.SectionIDAgent)
	require.True(t, ok)
	assert.Equal(t, 60, section.(*config.AgentSection).Settings().MaxRounds)
	assert.False(t, store.IsModified())

	cfg.Agent = map[string]interface{}{"max_rounds": 0}
	assert.ErrorContains(t, cfg.Apply(m), "section agent")

	cfg.Agent = nil
	cfg.Search = map[string]interface{}{"provider": "tavily"}
	assert.ErrorContains(t, cfg.Apply(m), `unknown config section "search"`)

	assert.ErrorContains(t, cfg.Apply(nil), "not initialized")
}
